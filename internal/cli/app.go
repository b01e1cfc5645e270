// Package cli builds the cobra command trees of fairbio-ga4gh-registry and
// fairbio-trs. Both share configuration loading, logging, tracing and the
// output flags defined here.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fairbio/fairbio-cli/internal/config"
	"github.com/fairbio/fairbio-cli/internal/httpclient"
	"github.com/fairbio/fairbio-cli/internal/log"
	"github.com/fairbio/fairbio-cli/internal/output"
	"github.com/fairbio/fairbio-cli/internal/render"
	"github.com/fairbio/fairbio-cli/internal/tracing"
)

// BuildInfo is injected via ldflags at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func (b BuildInfo) String() string {
	v := b.Version
	if v == "" {
		v = "dev"
	}
	if b.Commit == "" && b.Date == "" {
		return v
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", v, b.Commit, b.Date)
}

// Program is one of the fairbio binaries.
type Program struct {
	app  *app
	root *cobra.Command
}

// Root returns the root command.
func (p *Program) Root() *cobra.Command {
	return p.root
}

// Execute runs the program with args and flushes traces before returning.
func (p *Program) Execute(ctx context.Context, args []string) error {
	p.root.SetArgs(args)
	err := p.root.ExecuteContext(ctx)
	p.app.close()
	return err
}

// app holds the state shared by every command of one binary.
type app struct {
	name   string
	build  BuildInfo
	stdout io.Writer
	stderr io.Writer

	viper *viper.Viper
	// urlKey is the config key that -r/--registry overrides.
	urlKey  string
	cfgFile string
	verbose bool

	cfg        config.Config
	configPath string
	// loadErr is set when the config file could not be decoded. Only
	// config commands run in that state.
	loadErr  error
	provider *tracing.Provider
	summary  *render.Summary
}

func newApp(name, urlKey string, build BuildInfo, stdout, stderr io.Writer) *app {
	return &app{
		name:   name,
		build:  build,
		stdout: stdout,
		stderr: stderr,
		viper:  config.NewViper(),
		urlKey: urlKey,
	}
}

// rootCommand creates the root command with the shared persistent flags
// and the config subcommand.
func (a *app) rootCommand(short, long, registryHelp string) *cobra.Command {
	cmd := &cobra.Command{
		Use:               a.name,
		Short:             short,
		Long:              long,
		Version:           a.build.String(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup(true) },
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	pf := cmd.PersistentFlags()
	pf.StringP("registry", "r", "", registryHelp)
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: .fairbio/config.yaml, then ~/.config/fairbio/config.yaml)")
	pf.Duration("timeout", 0, "per-request timeout, e.g. 30s (default 10s)")

	_ = a.viper.BindPFlag(a.urlKey, pf.Lookup("registry"))
	_ = a.viper.BindPFlag("http.timeout", pf.Lookup("timeout"))

	cmd.AddCommand(a.configCommand())
	return cmd
}

// setup loads configuration and starts logging and tracing. It runs before
// every command.
func (a *app) setup(validate bool) error {
	cfg, path, err := config.Load(a.viper, a.cfgFile)
	if err != nil {
		// Config commands go on so the file can be shown and repaired.
		if validate || !errors.Is(err, config.ErrDecode) {
			return err
		}
		a.loadErr = err
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil && validate {
		return fmt.Errorf("invalid configuration: log.level: %w", err)
	}
	if a.verbose {
		level = log.LevelDebug
	}
	log.Init(a.stderr, level)
	if path != "" {
		log.Debug(log.CatConfig, "Loaded config", "path", path)
	}

	if validate {
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	a.cfg = cfg
	a.configPath = path
	a.summary = render.New(a.stderr)

	if !validate {
		return nil
	}
	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	a.provider = provider
	return nil
}

func (a *app) close() {
	if a.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.provider.Shutdown(ctx)
	a.provider = nil
}

// registryURL is the effective registry: flag, env, config file, default.
func (a *app) registryURL() string {
	return a.viper.GetString(a.urlKey)
}

func (a *app) httpOptions() httpclient.Options {
	opts := httpclient.Options{
		Timeout:    a.cfg.HTTP.Timeout,
		UserAgent:  a.cfg.HTTP.UserAgent,
		MaxRetries: a.cfg.HTTP.MaxRetries,
	}
	if a.build.Version != "" {
		opts.UserAgent += "/" + a.build.Version
	}
	if a.provider != nil && a.provider.Enabled() {
		opts.Tracer = a.provider.Tracer()
	}
	return opts
}

// run wraps a command body in its command span.
func (a *app) run(name string, fn func(ctx context.Context) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if a.provider == nil {
			return fn(ctx)
		}
		ctx, span := tracing.StartCommand(ctx, a.provider.Tracer(), a.name, name, a.registryURL())
		err := fn(ctx)
		tracing.EndWithError(span, err)
		return err
	}
}

// outputFlags are the -o/--output, -f/--format and --json flags.
type outputFlags struct {
	path     string
	format   string
	json     bool
	allowZip bool
}

func (o *outputFlags) register(cmd *cobra.Command, allowZip bool) {
	o.allowZip = allowZip
	formats := "json, text or yaml"
	if allowZip {
		formats = "json, text, yaml or zip"
	}
	cmd.Flags().StringVarP(&o.path, "output", "o", "", `save results to FILE ("-" for stdout)`)
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "output format: "+formats+" (default from output.format)")
	cmd.Flags().BoolVar(&o.json, "json", false, "print JSON to stdout and skip the summary")
}

// sink resolves the flags into an output.Sink. It fails before any
// request is made when the format is unusable.
func (o *outputFlags) sink(a *app) (output.Sink, error) {
	if o.json {
		return output.Sink{Path: output.Stdout, Format: output.FormatJSON, Stdout: a.stdout}, nil
	}
	name := o.format
	if name == "" {
		name = a.cfg.Output.Format
	}
	format, err := output.ParseFormat(name, o.allowZip)
	if err != nil {
		return output.Sink{}, err
	}
	sink := output.Sink{Path: o.path, Format: format, Stdout: a.stdout}
	if format == output.FormatZip && (!sink.Enabled() || sink.ToStdout()) {
		return output.Sink{}, output.ErrZipNeedsOutput
	}
	return sink, nil
}

// emit writes env to the sink and, unless --json was given, prints the
// summary to stderr.
func (a *app) emit(o *outputFlags, sink output.Sink, env any, summarize func(s *render.Summary)) error {
	if err := sink.Write(env); err != nil {
		return err
	}
	if o.json {
		return nil
	}
	if sink.Enabled() && !sink.ToStdout() {
		a.summary.Message("Results saved to %s", sink.Path)
	}
	summarize(a.summary)
	return nil
}

// notFound rewords 404 responses for the user.
func notFound(err error, what string) error {
	if httpclient.IsNotFound(err) {
		return fmt.Errorf("%s not found: %w", what, err)
	}
	return err
}
