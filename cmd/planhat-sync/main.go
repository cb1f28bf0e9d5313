package main

import (
	"context"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/crmops/planhat-sync/planhat"
)

var (
	version = "dev"
	cli     struct {
		Sync    SyncCmd `cmd:"" default:"1" help:"Sync demo organizations and end users into Planhat"`
		Debug   bool    `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

type Globals struct {
	Debug   bool
	Version string
}

type SyncCmd struct {
	ApiUrl            string   `help:"Planhat API base URL" default:"https://api.planhat.com"`
	Token             string   `help:"Planhat API bearer token" env:"PLANHAT_API_KEY"`
	GoogleCredentials string   `help:"GCP service account JWT credentials file; syncs Google Workspace instead of demo data" type:"existingfile"`
	GoogleSubject     string   `help:"Google Workspace admin account"`
	GoogleGroups      []string `help:"Workspace groups to sync as organizations"`
	Orgs              int      `help:"Demo organizations to generate" default:"4"`
	Users             int      `help:"Demo end users to generate" default:"3"`
	Passes            int      `help:"Sync passes to run" default:"6"`
	Mutate            bool     `help:"Vary a user field between passes" default:"true" negatable:""`
}

func (s *SyncCmd) Run(ctx context.Context, globals *Globals) error {
	if len(s.Token) == 0 {
		log.Warn().Msg("no API token configured, upserts will be rejected remotely")
	}

	var source planhat.RecordSource
	var demo *planhat.DemoSource
	if len(s.GoogleCredentials) > 0 {
		credentials, err := os.ReadFile(s.GoogleCredentials)
		if err != nil {
			return err
		}
		source = planhat.NewGoogleWorkspaceSource(credentials, s.GoogleSubject, s.GoogleGroups)
	} else {
		demo = planhat.NewDemoSource(s.Orgs, s.Users)
		source = demo
	}
	var sync = planhat.NewSync(source, planhat.NewClient(s.ApiUrl, s.Token))

	if s.Passes < 1 {
		s.Passes = 1
	}
	var report *planhat.SyncReport
	var err error
	for pass := 0; pass < s.Passes; pass++ {
		if report, err = sync.Run(ctx, 1); err != nil {
			return err
		}
		if s.Mutate && demo != nil {
			demo.TouchUsers()
		}
	}

	log.Info().
		Str("run", report.RunId).
		Int("companies_ok", len(report.SuccessCompanies)).
		Int("companies_failed", len(report.FailedCompanies)).
		Int("endusers_ok", len(report.SuccessEndUsers)).
		Int("endusers_failed", len(report.FailedEndUsers)).
		Msg("Sync finished")
	return nil
}

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()
	if cli.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	err := cmd.Run(&Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
