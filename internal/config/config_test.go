package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fairbio/fairbio-cli/internal/tracing"
)

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "https://registry.ga4gh.org/v1", cfg.Registry.URL)
	assert.Equal(t, 1000, cfg.TRS.PageSize)
	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Zero(t, cfg.HTTP.MaxRetries)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestDefaultConfigTemplate_MatchesDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(DefaultConfigTemplate())))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	d := Defaults()
	assert.Equal(t, d.Registry, cfg.Registry)
	assert.Equal(t, d.TRS, cfg.TRS)
	assert.Equal(t, d.HTTP, cfg.HTTP)
	assert.Equal(t, d.Output, cfg.Output)
	assert.Equal(t, d.Log, cfg.Log)
	assert.Equal(t, d.Tracing.Exporter, cfg.Tracing.Exporter)
	assert.Equal(t, d.Tracing.ServiceName, cfg.Tracing.ServiceName)
}

func TestLoad_ExplicitFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
trs:
  url: https://dockstore.org/api
  page_size: 50
http:
  timeout: 30s
  max_retries: 2
log:
  level: debug
`), 0o600))

	t.Setenv("FAIRBIO_OUTPUT_FORMAT", "yaml")
	t.Setenv("FAIRBIO_HTTP_USER_AGENT", "tests/1.0")

	cfg, used, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "https://dockstore.org/api", cfg.TRS.URL)
	assert.Equal(t, 50, cfg.TRS.PageSize)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.EqualValues(t, 2, cfg.HTTP.MaxRetries)
	assert.Equal(t, "tests/1.0", cfg.HTTP.UserAgent)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "https://registry.ga4gh.org/v1", cfg.Registry.URL, "unset keys keep defaults")
	require.NoError(t, Validate(cfg))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trs:\n  url: https://from-file.org\n"), 0o600))
	t.Setenv("FAIRBIO_TRS_URL", "https://from-env.org")

	cfg, _, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, "https://from-env.org", cfg.TRS.URL)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, _, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestLoad_LookupOrder(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(work)

	// Nothing on disk: defaults only.
	cfg, used, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, Defaults().Registry.URL, cfg.Registry.URL)
	assert.Equal(t, filepath.Join(home, ".config", "fairbio", "traces", "traces.jsonl"), cfg.Tracing.FilePath)

	// User config.
	userPath := filepath.Join(home, ".config", "fairbio", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userPath), 0o750))
	require.NoError(t, os.WriteFile(userPath, []byte("registry:\n  url: https://user.example/v1\n"), 0o600))

	cfg, used, err = Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, userPath, used)
	assert.Equal(t, "https://user.example/v1", cfg.Registry.URL)

	// Local config wins over user config.
	require.NoError(t, os.MkdirAll(".fairbio", 0o750))
	require.NoError(t, os.WriteFile(LocalConfigPath, []byte("registry:\n  url: https://local.example/v1\n"), 0o600))

	cfg, used, err = Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, LocalConfigPath, used)
	assert.Equal(t, "https://local.example/v1", cfg.Registry.URL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "empty registry url", modify: func(c *Config) { c.Registry.URL = "" }},
		{name: "bad registry scheme", modify: func(c *Config) { c.Registry.URL = "ftp://x.org" }, wantErr: "registry.url must be an http or https URL"},
		{name: "trs url without host", modify: func(c *Config) { c.TRS.URL = "https://" }, wantErr: "trs.url has no host"},
		{name: "zero page size", modify: func(c *Config) { c.TRS.PageSize = 0 }, wantErr: "trs.page_size must be positive"},
		{name: "zero timeout", modify: func(c *Config) { c.HTTP.Timeout = 0 }, wantErr: "http.timeout must be positive"},
		{name: "too many retries", modify: func(c *Config) { c.HTTP.MaxRetries = 11 }, wantErr: "http.max_retries"},
		{name: "zip default format", modify: func(c *Config) { c.Output.Format = "zip" }, wantErr: "output.format"},
		{name: "bad log level", modify: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "bad exporter", modify: func(c *Config) { c.Tracing.Exporter = "jaeger" }, wantErr: "tracing.exporter"},
		{
			name: "otlp without endpoint",
			modify: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = tracing.ExporterOTLP
				c.Tracing.OTLPEndpoint = ""
			},
			wantErr: "tracing.otlp_endpoint",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path, false))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigTemplate(), string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	err = WriteDefaultConfig(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, WriteDefaultConfig(path, true))
}

func TestMarshal_RoundTrips(t *testing.T) {
	cfg := Defaults()
	cfg.TRS.URL = "https://dockstore.org/api"

	data, err := Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 10s")
	assert.Contains(t, string(data), "url: https://dockstore.org/api")

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, cfg, back)
}
