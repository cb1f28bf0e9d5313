package planhat_sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/caarlos0/env/v11"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/rs/zerolog/log"

	"github.com/crmops/planhat-sync/planhat"
)

func init() {
	// Register an HTTP function with the Functions Framework
	functions.HTTP("PlanhatSyncHttp", planhatSyncHttp)
	functions.CloudEvent("PlanhatSyncPubSub", planhatSyncPubSub)
}

type syncConfig struct {
	ApiUrl            string   `env:"PLANHAT_API_URL" envDefault:"https://api.planhat.com"`
	ApiKey            string   `env:"PLANHAT_API_KEY"`
	KsmConfig         string   `env:"KSM_CONFIG_BASE64"`
	KsmRecordUid      string   `env:"KSM_RECORD_UID"`
	GoogleCredentials string   `env:"GOOGLE_CREDENTIALS_JSON"`
	GoogleSubject     string   `env:"GOOGLE_ADMIN_SUBJECT"`
	GoogleOrgGroups   []string `env:"GOOGLE_ORG_GROUPS" envSeparator:","`
	Passes            int      `env:"SYNC_PASSES" envDefault:"1"`
	DemoOrgs          int      `env:"DEMO_ORGS" envDefault:"4"`
	DemoUsers         int      `env:"DEMO_USERS" envDefault:"3"`
}

// recordSourceFor selects the Google Workspace source when its parameters are
// configured, otherwise the synthetic demo snapshot.
func recordSourceFor(cfg syncConfig, workspace *planhat.WorkspaceParameters) planhat.RecordSource {
	if workspace != nil {
		return planhat.NewGoogleWorkspaceSource(workspace.Credentials, workspace.AdminAccount, workspace.OrgGroups)
	}
	return planhat.NewDemoSource(cfg.DemoOrgs, cfg.DemoUsers)
}

func runPlanhatSync(ctx context.Context) (report *planhat.SyncReport, err error) {
	var cfg syncConfig
	if err = env.Parse(&cfg); err != nil {
		log.Error().Err(err).Msg("parse environment")
		return
	}

	var token = cfg.ApiKey
	var workspace *planhat.WorkspaceParameters
	if len(cfg.GoogleCredentials) > 0 {
		workspace = &planhat.WorkspaceParameters{
			AdminAccount: cfg.GoogleSubject,
			Credentials:  []byte(cfg.GoogleCredentials),
			OrgGroups:    cfg.GoogleOrgGroups,
		}
	}
	if (len(token) == 0 || workspace == nil) && len(cfg.KsmConfig) > 0 {
		var ksmToken string
		var ksmWorkspace *planhat.WorkspaceParameters
		if ksmToken, ksmWorkspace, err = planhat.LoadSyncParametersFromKsm(cfg.KsmConfig, cfg.KsmRecordUid, cfg.ApiUrl); err != nil {
			log.Error().Err(err).Msg("load sync parameters from KSM")
			return
		}
		if len(token) == 0 {
			token = ksmToken
		}
		if workspace == nil {
			workspace = ksmWorkspace
		}
	}
	// an empty token is not rejected here; upserts fail remotely

	var source = recordSourceFor(cfg, workspace)
	var sync = planhat.NewSync(source, planhat.NewClient(cfg.ApiUrl, token))
	if report, err = sync.Run(ctx, cfg.Passes); err == nil {
		printReport(os.Stdout, report)
	}
	return
}

func printReport(w io.Writer, report *planhat.SyncReport) {
	if report == nil {
		return
	}
	if len(report.SuccessCompanies) > 0 {
		_, _ = fmt.Fprintf(w, "Company Success:\n")
		for _, txt := range report.SuccessCompanies {
			_, _ = fmt.Fprintf(w, "\t%s\n", txt)
		}
	}
	if len(report.FailedCompanies) > 0 {
		_, _ = fmt.Fprintf(w, "Company Failure:\n")
		for _, failure := range report.FailedCompanies {
			_, _ = fmt.Fprintf(w, "\t%s: %v\n", failure.ExternalId, failure.Err)
		}
	}
	if len(report.SuccessEndUsers) > 0 {
		_, _ = fmt.Fprintf(w, "End User Success:\n")
		for _, txt := range report.SuccessEndUsers {
			_, _ = fmt.Fprintf(w, "\t%s\n", txt)
		}
	}
	if len(report.FailedEndUsers) > 0 {
		_, _ = fmt.Fprintf(w, "End User Failure:\n")
		for _, failure := range report.FailedEndUsers {
			_, _ = fmt.Fprintf(w, "\t%s: %v\n", failure.ExternalId, failure.Err)
		}
	}
}

// Function planhatSyncHttp is an HTTP handler
func planhatSyncHttp(w http.ResponseWriter, r *http.Request) {
	var report, err = runPlanhatSync(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	printReport(w, report)
}

// planhatSyncPubSub consumes a CloudEvent message from a scheduler topic.
func planhatSyncPubSub(ctx context.Context, _ event.Event) (err error) {
	_, err = runPlanhatSync(ctx)
	return
}
