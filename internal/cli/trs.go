package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fairbio/fairbio-cli/internal/ga4gh"
	"github.com/fairbio/fairbio-cli/internal/log"
	"github.com/fairbio/fairbio-cli/internal/output"
	"github.com/fairbio/fairbio-cli/internal/render"
	"github.com/fairbio/fairbio-cli/internal/trs"
)

// TRSName is the binary name of the Tool Registry Service client.
const TRSName = "fairbio-trs"

// NewTRS builds fairbio-trs.
func NewTRS(build BuildInfo, stdout, stderr io.Writer) *Program {
	a := newApp(TRSName, "trs.url", build, stdout, stderr)
	root := a.rootCommand(
		"Query a GA4GH Tool Registry Service (TRS v2)",
		`Query a GA4GH Tool Registry Service (TRS v2) for tools, versions,
descriptors, files, tests and container files.

A registry is required. Give it with --registry, FAIRBIO_TRS_URL or trs.url
in the config file. Both https://dockstore.org/api and
https://dockstore.org/api/ga4gh/trs/v2 are accepted.`,
		"TRS registry URL, e.g. https://dockstore.org/api",
	)
	root.SetGlobalNormalizationFunc(versionAlias)
	root.AddCommand(
		a.toolsCommand(),
		a.toolCommand(),
		a.versionsCommand(),
		a.versionCommand(),
		a.descriptorCommand(),
		a.filesCommand(),
		a.testsCommand(),
		a.containerfileCommand(),
		a.classesCommand(),
		a.trsInfoCommand(),
	)
	return &Program{app: a, root: root}
}

// versionAlias accepts --tool-version for --version-id.
func versionAlias(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "tool-version" {
		name = "version-id"
	}
	return pflag.NormalizedName(name)
}

func (a *app) trsClient() (*trs.Client, error) {
	return trs.NewClient(a.registryURL(), a.httpOptions())
}

// toolRef holds the --id, --version-id and --type flags that address one
// tool, one of its versions and a descriptor type.
type toolRef struct {
	id             string
	versionID      string
	descriptorType string
}

func (r *toolRef) registerID(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.id, "id", "", "tool ID (required)")
	_ = cmd.MarkFlagRequired("id")
}

func (r *toolRef) registerVersion(cmd *cobra.Command) {
	r.registerID(cmd)
	cmd.Flags().StringVar(&r.versionID, "version-id", "", "tool version ID, alias --tool-version (required)")
	_ = cmd.MarkFlagRequired("version-id")
}

func (r *toolRef) registerType(cmd *cobra.Command) {
	r.registerVersion(cmd)
	cmd.Flags().StringVar(&r.descriptorType, "type", "", "descriptor type: CWL, WDL, NFL, GALAXY, SMK or PLAIN_* (required)")
	_ = cmd.MarkFlagRequired("type")
}

func (a *app) classesCommand() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List the tool classes the registry uses",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run("classes", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client, err := a.trsClient()
		if err != nil {
			return err
		}
		log.Debug(log.CatTRS, "Fetching tool classes", "registry", client.URL())

		classes, err := client.ToolClasses(ctx)
		if err != nil {
			return err
		}
		return a.emit(&out, sink, output.NewToolClassesEnvelope(client.RegistryURL(), classes), func(s *render.Summary) {
			s.Message("Found %d tool classes", len(classes))
			s.ToolClasses(classes)
		})
	})
	out.register(cmd, false)
	return cmd
}

func (a *app) trsInfoCommand() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the registry's service-info",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run("info", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client, err := a.trsClient()
		if err != nil {
			return err
		}
		log.Debug(log.CatTRS, "Fetching service info", "registry", client.URL())

		info, err := client.ServiceInfo(ctx)
		if err != nil {
			return err
		}
		env := output.ServiceInfoEnvelope{Timestamp: output.Now(), RegistryURL: client.RegistryURL(), ServiceInfo: info}
		return a.emit(&out, sink, env, func(s *render.Summary) {
			s.ServiceInfo(info)
		})
	})
	out.register(cmd, false)
	return cmd
}

// summarizeTools prints the listing shared by paged and --all results.
func summarizeTools(s *render.Summary, tools []ga4gh.Tool) {
	s.Message("Found %d tools", len(tools))
	s.Tools(tools)
}
