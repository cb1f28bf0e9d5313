package planhat

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	ksm "github.com/keeper-security/secrets-manager-go/core"
)

// WorkspaceParameters configures the Google Workspace record source.
type WorkspaceParameters struct {
	AdminAccount string
	Credentials  []byte
	OrgGroups    []string
}

// LoadSyncParametersFromKsm locates the Planhat login record shared to the
// KSM application and returns its password as the bearer token. recordUid
// narrows the lookup when set; otherwise the record is matched by the API
// host in its url field. When the record also carries a credentials.json
// attachment, a login subject and an "Org Groups" custom field, those are
// returned as Workspace source parameters.
func LoadSyncParametersFromKsm(configBase64 string, recordUid string, apiBaseUrl string) (token string, workspace *WorkspaceParameters, err error) {
	if len(configBase64) == 0 {
		err = errors.New("KSM configuration is empty")
		return
	}

	var config = ksm.NewMemoryKeyValueStorage(configBase64)
	var sm = ksm.NewSecretsManager(&ksm.ClientOptions{
		Config: config,
	})

	var filter []string
	if len(recordUid) > 0 {
		filter = append(filter, recordUid)
	}

	var records []*ksm.Record
	if records, err = sm.GetSecrets(filter); err != nil {
		return
	}

	var host = apiHost(apiBaseUrl)
	var planhatRecord *ksm.Record
	for _, r := range records {
		if r.Type() != "login" {
			continue
		}
		var webUrl = r.GetFieldValueByType("url")
		if len(webUrl) == 0 {
			continue
		}
		var uri *url.URL
		var er1 error
		if uri, er1 = url.Parse(webUrl); er1 != nil {
			continue
		}
		if !strings.EqualFold(uri.Host, host) {
			continue
		}
		planhatRecord = r
		break
	}
	if planhatRecord == nil {
		err = fmt.Errorf("no login record for \"%s\" was found. Make sure the record is valid and shared to the KSM application", host)
		return
	}

	token = planhatRecord.Password()
	workspace = workspaceParametersFromRecord(planhatRecord)
	return
}

func workspaceParametersFromRecord(record *ksm.Record) (workspace *WorkspaceParameters) {
	var files = record.FindFiles("credentials.json")
	if len(files) == 0 {
		return
	}
	var subject = record.GetFieldValueByType("login")
	if len(subject) == 0 {
		return
	}

	var groups []string
	for _, label := range []string{"Org Group", "Org Groups"} {
		var fields = record.GetCustomFieldsByLabel(label)
		if len(fields) != 0 {
			groups = append(groups, parseGroupList(fields)...)
		}
	}
	if len(groups) == 0 {
		return
	}

	workspace = &WorkspaceParameters{
		AdminAccount: subject,
		Credentials:  files[0].GetFileData(),
		OrgGroups:    groups,
	}
	return
}

func parseGroupList(fields []map[string]any) (groups []string) {
	for _, field := range fields {
		var v any
		var ok bool
		if v, ok = field["value"]; ok {
			if v == nil {
				continue
			}
			switch vt := v.(type) {
			case []any:
				for _, v = range vt {
					var group string
					if group, ok = toString(v); ok {
						groups = append(groups, group)
					}
				}
			case string:
				groups = append(groups, vt)
			}
		}
	}
	return
}

func apiHost(baseUrl string) string {
	if uri, err := url.Parse(baseUrl); err == nil && len(uri.Host) > 0 {
		return uri.Host
	}
	return baseUrl
}
