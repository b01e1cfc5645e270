package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/fairbio/fairbio-cli/internal/ga4gh"
	"github.com/fairbio/fairbio-cli/internal/log"
	"github.com/fairbio/fairbio-cli/internal/output"
	"github.com/fairbio/fairbio-cli/internal/registry"
	"github.com/fairbio/fairbio-cli/internal/render"
)

// RegistryName is the binary name of the service registry client.
const RegistryName = "fairbio-ga4gh-registry"

// NewRegistry builds fairbio-ga4gh-registry.
func NewRegistry(build BuildInfo, stdout, stderr io.Writer) *Program {
	a := newApp(RegistryName, "registry.url", build, stdout, stderr)
	root := a.rootCommand(
		"Query a GA4GH Service Registry",
		`Query a GA4GH Service Registry for registered services, service types
and the registry's own service-info.

The registry defaults to https://registry.ga4gh.org/v1 and can be changed
with --registry, FAIRBIO_REGISTRY_URL or registry.url in the config file.`,
		"service registry base URL (default https://registry.ga4gh.org/v1)",
	)
	root.AddCommand(
		a.servicesCommand(),
		a.serviceCommand(),
		a.typesCommand(),
		a.registryInfoCommand(),
	)
	return &Program{app: a, root: root}
}

func (a *app) registryClient() *registry.Client {
	return registry.NewClient(a.registryURL(), a.httpOptions())
}

func (a *app) servicesCommand() *cobra.Command {
	var (
		out         outputFlags
		serviceType string
	)
	cmd := &cobra.Command{
		Use:   "services",
		Short: "List registered services",
		Long: `List every service in the registry, optionally filtered by type.

The type filter is a case-insensitive substring match on the service
type's artifact, group or version.

Examples:
  fairbio-ga4gh-registry services
  fairbio-ga4gh-registry services --type trs
  fairbio-ga4gh-registry services -t drs -o drs.json`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.run("services", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client := a.registryClient()
		log.Debug(log.CatRegistry, "Fetching services", "registry", client.URL(), "type", serviceType)

		var services []ga4gh.Service
		if serviceType != "" {
			services, err = client.ServicesByType(ctx, serviceType)
		} else {
			services, err = client.Services(ctx)
		}
		if err != nil {
			return err
		}

		return a.emit(&out, sink, output.NewServicesEnvelope(services, serviceType), func(s *render.Summary) {
			if serviceType != "" {
				s.Message("Found %d services of type %q", len(services), serviceType)
			} else {
				s.Message("Found %d services", len(services))
			}
			s.Services(services)
		})
	})
	cmd.Flags().StringVarP(&serviceType, "type", "t", "", "only services whose type matches (e.g. trs, drs, wes)")
	out.register(cmd, false)
	return cmd
}

func (a *app) serviceCommand() *cobra.Command {
	var (
		out outputFlags
		id  string
	)
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Show one registered service",
		Long: `Show one registered service by ID.

Examples:
  fairbio-ga4gh-registry service --id org.ga4gh.dockstore
  fairbio-ga4gh-registry service -i org.ga4gh.dockstore -o service.yaml -f yaml`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.run("service", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client := a.registryClient()
		log.Debug(log.CatRegistry, "Fetching service", "registry", client.URL(), "id", id)

		svc, err := client.Service(ctx, id)
		if err != nil {
			return notFound(err, "service "+id)
		}
		return a.emit(&out, sink, output.ServiceEnvelope{Timestamp: output.Now(), Service: svc}, func(s *render.Summary) {
			s.Service(svc)
		})
	})
	cmd.Flags().StringVarP(&id, "id", "i", "", "service ID (required)")
	_ = cmd.MarkFlagRequired("id")
	out.register(cmd, false)
	return cmd
}

func (a *app) typesCommand() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the service types known to the registry",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run("types", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client := a.registryClient()
		log.Debug(log.CatRegistry, "Fetching service types", "registry", client.URL())

		types, err := client.ServiceTypes(ctx)
		if err != nil {
			return err
		}
		return a.emit(&out, sink, output.NewServiceTypesEnvelope(types), func(s *render.Summary) {
			s.Message("Found %d service types", len(types))
			s.ServiceTypes(types)
		})
	})
	out.register(cmd, false)
	return cmd
}

func (a *app) registryInfoCommand() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the registry's own service-info",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run("info", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client := a.registryClient()
		log.Debug(log.CatRegistry, "Fetching registry info", "registry", client.URL())

		info, err := client.ServiceInfo(ctx)
		if err != nil {
			return err
		}
		return a.emit(&out, sink, output.RegistryInfoEnvelope{Timestamp: output.Now(), RegistryInfo: info}, func(s *render.Summary) {
			s.ServiceInfo(info)
		})
	})
	out.register(cmd, false)
	return cmd
}
