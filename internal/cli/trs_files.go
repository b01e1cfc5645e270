package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fairbio/fairbio-cli/internal/ga4gh"
	"github.com/fairbio/fairbio-cli/internal/log"
	"github.com/fairbio/fairbio-cli/internal/output"
	"github.com/fairbio/fairbio-cli/internal/render"
)

func (a *app) descriptorCommand() *cobra.Command {
	var (
		out  outputFlags
		ref  toolRef
		path string
	)
	cmd := &cobra.Command{
		Use:   "descriptor",
		Short: "Fetch the descriptor of a tool version",
		Long: `Fetch the primary descriptor of a tool version, or the file at --path
relative to it. PLAIN_* types return the raw file content.

Examples:
  fairbio-trs descriptor --id '#workflow/x' --version-id main --type CWL
  fairbio-trs descriptor --id '#workflow/x' --version-id main --type PLAIN_WDL --path tasks/align.wdl`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.run("descriptor", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client, err := a.trsClient()
		if err != nil {
			return err
		}
		log.Debug(log.CatTRS, "Fetching descriptor", "registry", client.URL(),
			"id", ref.id, "version", ref.versionID, "type", ref.descriptorType, "path", path)

		var fw *ga4gh.FileWrapper
		if path != "" {
			fw, err = client.DescriptorAtPath(ctx, ref.id, ref.versionID, ref.descriptorType, path)
		} else {
			fw, err = client.Descriptor(ctx, ref.id, ref.versionID, ref.descriptorType)
		}
		if err != nil {
			return notFound(err, "descriptor")
		}

		env := output.DescriptorEnvelope{
			Timestamp:      output.Now(),
			RegistryURL:    client.RegistryURL(),
			ToolID:         ref.id,
			Version:        ref.versionID,
			DescriptorType: ref.descriptorType,
			Path:           path,
			Descriptor:     fw,
		}
		return a.emit(&out, sink, env, func(s *render.Summary) {
			s.Descriptor(fw)
		})
	})
	ref.registerType(cmd)
	cmd.Flags().StringVar(&path, "path", "", "file path relative to the primary descriptor")
	out.register(cmd, false)
	return cmd
}

func (a *app) filesCommand() *cobra.Command {
	var (
		out outputFlags
		ref toolRef
	)
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the files of a tool version",
		Long: `List the files of a tool version for one descriptor type.

With --format zip the registry's zip bundle is saved to --output as is.

Examples:
  fairbio-trs files --id '#workflow/x' --version-id main --type CWL
  fairbio-trs files --id '#workflow/x' --version-id main --type CWL -f zip -o bundle.zip`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.run("files", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client, err := a.trsClient()
		if err != nil {
			return err
		}

		if sink.Format == output.FormatZip {
			log.Debug(log.CatTRS, "Fetching files bundle", "registry", client.URL(),
				"id", ref.id, "version", ref.versionID, "type", ref.descriptorType)
			data, err := client.FilesZip(ctx, ref.id, ref.versionID, ref.descriptorType)
			if err != nil {
				return notFound(err, "files")
			}
			if err := sink.WriteRaw(data); err != nil {
				return err
			}
			a.summary.Message("Saved %d byte archive to %s", len(data), sink.Path)
			return nil
		}

		log.Debug(log.CatTRS, "Fetching files", "registry", client.URL(),
			"id", ref.id, "version", ref.versionID, "type", ref.descriptorType)
		files, err := client.Files(ctx, ref.id, ref.versionID, ref.descriptorType)
		if err != nil {
			return notFound(err, "files")
		}
		env := output.NewFilesEnvelope(client.RegistryURL(), ref.id, ref.versionID, ref.descriptorType, files)
		return a.emit(&out, sink, env, func(s *render.Summary) {
			s.Message("Found %d files", len(files))
			s.Files(files)
		})
	})
	ref.registerType(cmd)
	out.register(cmd, true)
	return cmd
}

func (a *app) testsCommand() *cobra.Command {
	var (
		out outputFlags
		ref toolRef
	)
	cmd := &cobra.Command{
		Use:   "tests",
		Short: "List the test parameter files of a tool version",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run("tests", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client, err := a.trsClient()
		if err != nil {
			return err
		}
		log.Debug(log.CatTRS, "Fetching tests", "registry", client.URL(),
			"id", ref.id, "version", ref.versionID, "type", ref.descriptorType)

		tests, err := client.Tests(ctx, ref.id, ref.versionID, ref.descriptorType)
		if err != nil {
			return notFound(err, "tests")
		}
		env := output.NewTestsEnvelope(client.RegistryURL(), ref.id, ref.versionID, ref.descriptorType, tests)
		return a.emit(&out, sink, env, func(s *render.Summary) {
			s.Message("Found %d test files", len(tests))
			s.Tests(tests)
		})
	})
	ref.registerType(cmd)
	out.register(cmd, false)
	return cmd
}

func (a *app) containerfileCommand() *cobra.Command {
	var (
		out outputFlags
		ref toolRef
	)
	cmd := &cobra.Command{
		Use:   "containerfile",
		Short: "List the container files of a tool version",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run("containerfile", func(ctx context.Context) error {
		sink, err := out.sink(a)
		if err != nil {
			return err
		}
		client, err := a.trsClient()
		if err != nil {
			return err
		}
		log.Debug(log.CatTRS, "Fetching containerfiles", "registry", client.URL(), "id", ref.id, "version", ref.versionID)

		files, err := client.Containerfile(ctx, ref.id, ref.versionID)
		if err != nil {
			return notFound(err, "containerfile")
		}
		env := output.NewContainerfileEnvelope(client.RegistryURL(), ref.id, ref.versionID, files)
		return a.emit(&out, sink, env, func(s *render.Summary) {
			s.Message("Found %d containerfiles", len(files))
			s.Containerfiles(files)
		})
	})
	ref.registerVersion(cmd)
	out.register(cmd, false)
	return cmd
}
