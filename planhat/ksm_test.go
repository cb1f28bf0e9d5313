package planhat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGroupList(t *testing.T) {
	fields := []map[string]any{
		{"value": []any{"engineering@example.com", "sales@example.com"}},
		{"value": "ops@example.com"},
		{"value": nil},
		{"other": "ignored"},
		{"value": []any{42}},
	}

	got := parseGroupList(fields)
	require.Equal(t, []string{"engineering@example.com", "sales@example.com", "ops@example.com"}, got)
}

func TestApiHost(t *testing.T) {
	require.Equal(t, "api.planhat.com", apiHost("https://api.planhat.com"))
	require.Equal(t, "api.planhat.com", apiHost("https://api.planhat.com/some/path"))
	require.Equal(t, "api.planhat.com", apiHost("api.planhat.com"))
}

func TestLoadSyncParametersRequiresConfig(t *testing.T) {
	_, _, err := LoadSyncParametersFromKsm("", "", DefaultBaseUrl)
	require.ErrorContains(t, err, "KSM configuration is empty")
}
