package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveValue_CreatesNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fairbio", "config.yaml")

	require.NoError(t, SaveValue(path, "trs.url", "https://dockstore.org/api"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "trs:\n  url: https://dockstore.org/api\n", string(data))
}

func TestSaveValue_PreservesCommentsAndOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(DefaultConfigTemplate()), 0o600))

	require.NoError(t, SaveValue(path, "http.max_retries", "3"))
	require.NoError(t, SaveValue(path, "trs.url", "https://workflowhub.eu"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "# fairbio configuration")
	assert.Contains(t, content, "# retry transport errors, 429 and 5xx (0 = never)")
	assert.Contains(t, content, "max_retries: 3")
	assert.NotContains(t, content, "max_retries: 0")

	v := NewViper()
	cfg, _, err := Load(v, path)
	require.NoError(t, err)
	assert.EqualValues(t, 3, cfg.HTTP.MaxRetries)
	assert.Equal(t, "https://workflowhub.eu", cfg.TRS.URL)
	assert.Equal(t, 1000, cfg.TRS.PageSize)
	assert.Equal(t, "https://registry.ga4gh.org/v1", cfg.Registry.URL)
}

func TestSaveValue_ReplacesScalarParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tracing: off\n"), 0o600))

	require.NoError(t, SaveValue(path, "tracing.enabled", "true"))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.True(t, v.GetBool("tracing.enabled"))
}

func TestSaveValue_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := SaveValue(path, "ui.theme", "dark")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "ui.theme"`)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing is written for unknown keys")
}

func TestSaveValue_RejectsNonMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o600))

	err := SaveValue(path, "log.level", "debug")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a mapping")
}

func TestKeys_AllHaveDefaults(t *testing.T) {
	v := NewViper()
	for _, k := range Keys() {
		assert.True(t, v.IsSet(k) || v.Get(k) != nil, "key %s has no default", k)
	}
}

func TestCheckValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trs:\n  page_size: 20\n"), 0o600))

	require.NoError(t, CheckValue(path, "http.timeout", "30s"))
	require.NoError(t, CheckValue(path, "trs.url", "https://dockstore.org/api"))
	require.NoError(t, CheckValue(filepath.Join(t.TempDir(), "missing.yaml"), "log.level", "debug"))

	err := CheckValue(path, "http.timeout", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid value for http.timeout")

	err = CheckValue(path, "output.format", "zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.format")

	err = CheckValue(path, "ui.theme", "dark")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "trs:\n  page_size: 20\n", string(data), "checking never writes")
}
