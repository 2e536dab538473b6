package entitlement

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlans(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plans.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writePlans(t, `{
		"tiers": [
			{"name": "basic", "display_name": "Basic", "rank": 0, "price": 0,
			 "limits": {"max_assignments": 3, "max_courses": 1, "sync_frequency": "daily", "themes": ["default"]}},
			{"name": "max", "display_name": "Max", "rank": 5, "price": 12.5, "price_id": "price_max",
			 "limits": {"max_assignments": -1, "max_courses": -1, "sync_frequency": "realtime", "themes": "all", "analytics": true}}
		]
	}`)

	c, err := LoadFromFile(path)
	require.NoError(t, err)

	basic := mustTier(t, c, "basic")
	assert.Equal(t, 3, basic.Limits.MaxAssignments)
	assert.Equal(t, []string{"default"}, basic.Limits.Themes.Names)
	assert.False(t, basic.Limits.Themes.All)

	maxTier := mustTier(t, c, "max")
	assert.True(t, maxTier.Limits.Themes.All)
	assert.True(t, maxTier.Limits.Analytics)
	assert.False(t, c.Exists("free"))
}

func TestLoadFromFileRejectsBadPlans(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `tiers:`},
		{name: "empty", body: `{"tiers": []}`},
		{name: "blank name", body: `{"tiers": [{"name": " ", "display_name": "X", "limits": {"sync_frequency": "daily"}}]}`},
		{name: "bad frequency", body: `{"tiers": [{"name": "x", "display_name": "X", "limits": {"sync_frequency": "hourly"}}]}`},
		{name: "bad themes", body: `{"tiers": [{"name": "x", "display_name": "X", "limits": {"sync_frequency": "daily", "themes": "some"}}]}`},
		{name: "duplicate", body: `{"tiers": [
			{"name": "x", "display_name": "X", "limits": {"sync_frequency": "daily"}},
			{"name": "x", "display_name": "Y", "limits": {"sync_frequency": "daily"}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writePlans(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestThemesJSON(t *testing.T) {
	out, err := json.Marshal(AllThemes())
	require.NoError(t, err)
	assert.JSONEq(t, `"all"`, string(out))

	out, err = json.Marshal(ThemeList("default", "dark"))
	require.NoError(t, err)
	assert.JSONEq(t, `["default","dark"]`, string(out))

	out, err = json.Marshal(Themes{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(out))
}
