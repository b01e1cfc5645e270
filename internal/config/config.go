// Package config provides configuration types, defaults, loading and
// persistence for the fairbio command-line tools.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fairbio/fairbio-cli/internal/log"
	"github.com/fairbio/fairbio-cli/internal/tracing"
)

const (
	// EnvPrefix is prepended to environment overrides, e.g. FAIRBIO_TRS_URL.
	EnvPrefix = "FAIRBIO"

	// LocalConfigPath is checked before the user config.
	LocalConfigPath = ".fairbio/config.yaml"

	defaultRegistryURL = "https://registry.ga4gh.org/v1"
)

// ErrDecode marks a config file that was read but holds a value of the
// wrong type, e.g. a timeout that is not a duration.
var ErrDecode = errors.New("decoding config")

// Config is the full configuration of both tools.
type Config struct {
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`
	TRS      TRSConfig      `mapstructure:"trs" yaml:"trs"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Tracing  tracing.Config `mapstructure:"tracing" yaml:"tracing"`
}

// RegistryConfig configures fairbio-ga4gh-registry.
type RegistryConfig struct {
	// URL of the GA4GH service registry.
	// Default: https://registry.ga4gh.org/v1
	URL string `mapstructure:"url" yaml:"url"`
}

// TRSConfig configures fairbio-trs.
type TRSConfig struct {
	// URL of the TRS registry, with or without the /ga4gh/trs/v2 suffix.
	// No default; fairbio-trs fails without one.
	URL string `mapstructure:"url" yaml:"url"`

	// PageSize is the limit sent with GET /tools when --limit is not given.
	// Default: 1000
	PageSize int `mapstructure:"page_size" yaml:"page_size"`
}

// HTTPConfig tunes outgoing requests.
type HTTPConfig struct {
	// Timeout bounds each request. Default: 10s
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// MaxRetries retries transport errors, 429 and 5xx. Default: 0
	MaxRetries uint64 `mapstructure:"max_retries" yaml:"max_retries"`

	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// OutputConfig holds output defaults.
type OutputConfig struct {
	// Format used with --output when --format is not given.
	// Options: "json", "text", "yaml". Default: "json"
	Format string `mapstructure:"format" yaml:"format"`
}

// LogConfig controls stderr logging.
type LogConfig struct {
	// Level is the minimum level logged: debug, info, warn, error. Default: info
	Level string `mapstructure:"level" yaml:"level"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Registry: RegistryConfig{URL: defaultRegistryURL},
		TRS:      TRSConfig{PageSize: 1000},
		HTTP: HTTPConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 0,
			UserAgent:  "fairbio-cli",
		},
		Output:  OutputConfig{Format: "json"},
		Log:     LogConfig{Level: "info"},
		Tracing: tracing.DefaultConfig(),
	}
}

// DefaultConfigPath returns ~/.config/fairbio/config.yaml, or "" when the
// home directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "fairbio", "config.yaml")
}

// DefaultTracesFilePath returns ~/.config/fairbio/traces/traces.jsonl or
// empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "fairbio", "traces", "traces.jsonl")
}

// SetDefaults registers every key with its default so environment
// variables are honoured for all of them.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("registry.url", d.Registry.URL)
	v.SetDefault("trs.url", d.TRS.URL)
	v.SetDefault("trs.page_size", d.TRS.PageSize)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.max_retries", d.HTTP.MaxRetries)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Keys lists every configuration key in dotted form.
func Keys() []string {
	return []string{
		"registry.url",
		"trs.url",
		"trs.page_size",
		"http.timeout",
		"http.max_retries",
		"http.user_agent",
		"output.format",
		"log.level",
		"tracing.enabled",
		"tracing.exporter",
		"tracing.file_path",
		"tracing.otlp_endpoint",
		"tracing.sample_rate",
		"tracing.service_name",
	}
}

// NewViper returns a viper instance with defaults and FAIRBIO_* env
// overrides configured.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and decodes the result.
//
// Config lookup order:
//  1. cfgFile, when given (it must exist)
//  2. .fairbio/config.yaml (current directory)
//  3. ~/.config/fairbio/config.yaml (user config)
//
// A missing file in 2 or 3 is not an error. The returned path is the file
// that was read, or "".
func Load(v *viper.Viper, cfgFile string) (Config, string, error) {
	path := cfgFile
	if path == "" {
		for _, candidate := range []string{LocalConfigPath, DefaultConfigPath()} {
			if candidate == "" {
				continue
			}
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, "", fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg, err := Decode(v)
	if err != nil {
		return Config{}, path, err
	}
	return cfg, path, nil
}

// Decode unmarshals the settings held by v and fills derived defaults.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if cfg.Tracing.FilePath == "" {
		cfg.Tracing.FilePath = DefaultTracesFilePath()
	}
	return cfg, nil
}

// Validate checks the whole configuration.
func Validate(c Config) error {
	return errors.Join(
		ValidateRegistry(c.Registry),
		ValidateTRS(c.TRS),
		ValidateHTTP(c.HTTP),
		ValidateOutput(c.Output),
		ValidateLog(c.Log),
		ValidateTracing(c.Tracing),
	)
}

// ValidateRegistry requires an absolute http(s) URL when one is set.
func ValidateRegistry(r RegistryConfig) error {
	if r.URL == "" {
		return nil
	}
	return validateURL("registry.url", r.URL)
}

// ValidateTRS checks the TRS URL (when set) and page size.
func ValidateTRS(t TRSConfig) error {
	if t.PageSize <= 0 {
		return fmt.Errorf("trs.page_size must be positive, got %d", t.PageSize)
	}
	if t.URL == "" {
		return nil
	}
	return validateURL("trs.url", t.URL)
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", key, raw)
	}
	return nil
}

// ValidateHTTP checks request settings.
func ValidateHTTP(h HTTPConfig) error {
	if h.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", h.Timeout)
	}
	if h.MaxRetries > 10 {
		return fmt.Errorf("http.max_retries must be at most 10, got %d", h.MaxRetries)
	}
	return nil
}

// ValidateOutput checks the default output format. zip is never a default.
func ValidateOutput(o OutputConfig) error {
	switch o.Format {
	case "", "json", "text", "yaml":
		return nil
	default:
		return fmt.Errorf("output.format must be \"json\", \"text\", or \"yaml\", got %q", o.Format)
	}
}

// ValidateLog checks the log level.
func ValidateLog(l LogConfig) error {
	if l.Level == "" {
		return nil
	}
	if _, err := log.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(t tracing.Config) error {
	return t.Validate()
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# fairbio configuration
#
# Every key can be overridden from the environment, e.g.
#   FAIRBIO_TRS_URL=https://dockstore.org/api
#   FAIRBIO_HTTP_TIMEOUT=30s

# GA4GH service registry used by fairbio-ga4gh-registry
registry:
  url: https://registry.ga4gh.org/v1

# Tool Registry Service used by fairbio-trs
trs:
  # url: https://dockstore.org/api   # -r/--registry overrides this
  page_size: 1000                     # default --limit for "tools"

# Outgoing requests
http:
  timeout: 10s
  max_retries: 0          # retry transport errors, 429 and 5xx (0 = never)
  user_agent: fairbio-cli

# Defaults for -f/--format when writing with -o/--output
output:
  format: json            # json, text or yaml

log:
  level: info             # debug, info, warn, error (-v/--verbose forces debug)

# OpenTelemetry tracing of commands and HTTP requests
tracing:
  enabled: false
  exporter: file          # none, file, stdout, otlp
  # file_path: ~/.config/fairbio/traces/traces.jsonl
  # otlp_endpoint: localhost:4317
  sample_rate: 1.0
  service_name: fairbio-cli
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist. An existing file is
// only replaced when force is set.
func WriteDefaultConfig(configPath string, force bool) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", configPath)
		}
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
