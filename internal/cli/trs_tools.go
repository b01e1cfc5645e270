package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fairbio/fairbio-cli/internal/log"
	"github.com/fairbio/fairbio-cli/internal/output"
	"github.com/fairbio/fairbio-cli/internal/render"
	"github.com/fairbio/fairbio-cli/internal/trs"
)

func (a *app) toolsCommand() *cobra.Command {
	var (
		out     outputFlags
		q       trs.ToolQuery
		checker bool
		all     bool
	)
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List tools, one page or all of them",
		Long: `List tools in the registry.

Without --all a single page is fetched: --limit tools (default trs.page_size)
starting at --offset. With --all, next_page links are followed until the
listing is exhausted.

Examples:
  fairbio-trs -r https://dockstore.org/api tools --limit 10
  fairbio-trs tools --descriptor-type CWL --author smith --all -o cwl.json
  fairbio-trs tools --tool-class Workflow --checker=false --json`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.run("tools", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client, err := a.trsClient()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("checker") {
			q.Checker = &checker
		}
		if q.Limit <= 0 {
			q.Limit = a.cfg.TRS.PageSize
		}
		filters := q.Filters()
		log.Debug(log.CatTRS, "Fetching tools", "registry", client.URL(), "limit", q.Limit, "offset", q.Offset, "all", all)

		if all {
			coll, err := client.AllTools(ctx, q)
			if err != nil {
				return err
			}
			return a.emit(&out, sink, output.NewAllToolsEnvelope(client.RegistryURL(), coll, filters), func(s *render.Summary) {
				summarizeTools(s, coll.AllTools)
				s.AllPages(coll)
			})
		}

		page, err := client.Tools(ctx, q)
		if err != nil {
			return err
		}
		return a.emit(&out, sink, output.NewToolsEnvelope(client.RegistryURL(), page, filters), func(s *render.Summary) {
			summarizeTools(s, page.Tools)
			s.PageCursor(page.Pagination)
		})
	})

	f := cmd.Flags()
	f.StringVar(&q.ID, "id", "", "tool ID")
	f.StringVar(&q.ToolName, "name", "", "tool name (TRS toolname)")
	f.StringVar(&q.Author, "author", "", "tool author")
	f.StringVar(&q.Description, "description", "", "text in the tool description")
	f.StringVar(&q.DescriptorType, "descriptor-type", "", "descriptor type, e.g. CWL, WDL, NFL")
	f.StringVar(&q.Alias, "alias", "", "tool alias")
	f.StringVar(&q.Organization, "organization", "", "organization that owns the tool")
	f.StringVar(&q.ToolClass, "tool-class", "", "tool class, e.g. Workflow, CommandLineTool")
	f.StringVar(&q.Registry, "image-registry", "", "image registry that holds the tool's images")
	f.StringVar(&q.Name, "image-name", "", "image name")
	f.BoolVar(&checker, "checker", false, "only checker workflows (--checker=false excludes them)")
	f.IntVar(&q.Limit, "limit", 0, "tools per page (default trs.page_size)")
	f.StringVar(&q.Offset, "offset", "", "start offset, as sent back in next_page")
	f.BoolVar(&all, "all", false, "follow next_page until every tool is fetched")
	out.register(cmd, false)
	return cmd
}

func (a *app) toolCommand() *cobra.Command {
	var (
		out outputFlags
		ref toolRef
	)
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Show one tool and its versions",
		Long: `Show one tool and its versions.

Examples:
  fairbio-trs tool --id '#workflow/github.com/nf-core/rnaseq'`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.run("tool", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client, err := a.trsClient()
		if err != nil {
			return err
		}
		log.Debug(log.CatTRS, "Fetching tool", "registry", client.URL(), "id", ref.id)

		tool, err := client.Tool(ctx, ref.id)
		if err != nil {
			return notFound(err, "tool "+ref.id)
		}
		env := output.ToolEnvelope{Timestamp: output.Now(), RegistryURL: client.RegistryURL(), Tool: tool}
		return a.emit(&out, sink, env, func(s *render.Summary) {
			s.Tool(tool)
		})
	})
	ref.registerID(cmd)
	out.register(cmd, false)
	return cmd
}

func (a *app) versionsCommand() *cobra.Command {
	var (
		out outputFlags
		ref toolRef
	)
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List the versions of a tool",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run("versions", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client, err := a.trsClient()
		if err != nil {
			return err
		}
		log.Debug(log.CatTRS, "Fetching tool versions", "registry", client.URL(), "id", ref.id)

		versions, err := client.Versions(ctx, ref.id)
		if err != nil {
			return notFound(err, "tool "+ref.id)
		}
		return a.emit(&out, sink, output.NewVersionsEnvelope(client.RegistryURL(), ref.id, versions), func(s *render.Summary) {
			s.Message("Found %d versions", len(versions))
			s.Versions(versions)
		})
	})
	ref.registerID(cmd)
	out.register(cmd, false)
	return cmd
}

func (a *app) versionCommand() *cobra.Command {
	var (
		out outputFlags
		ref toolRef
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show one version of a tool",
		Long: `Show one version of a tool, with its images and descriptor types.

Examples:
  fairbio-trs version --id '#workflow/github.com/nf-core/rnaseq' --version-id 3.14.0`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.run("version", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client, err := a.trsClient()
		if err != nil {
			return err
		}
		log.Debug(log.CatTRS, "Fetching tool version", "registry", client.URL(), "id", ref.id, "version", ref.versionID)

		version, err := client.Version(ctx, ref.id, ref.versionID)
		if err != nil {
			return notFound(err, "version "+strconv.Quote(ref.versionID)+" of tool "+ref.id)
		}
		env := output.VersionEnvelope{Timestamp: output.Now(), RegistryURL: client.RegistryURL(), ToolID: ref.id, Version: version}
		return a.emit(&out, sink, env, func(s *render.Summary) {
			s.Version(version)
		})
	})
	ref.registerVersion(cmd)
	out.register(cmd, false)
	return cmd
}
