package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fairbio/fairbio-cli/internal/config"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the fairbio configuration file",
		// Config commands must work on a broken config, so only load it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup(false) },
	}
	cmd.AddCommand(a.configInitCommand(), a.configShowCommand(), a.configSetCommand())
	return cmd
}

func (a *app) configInitCommand() *cobra.Command {
	var (
		path  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		Long: `Write a commented default config file.

The file is written to ~/.config/fairbio/config.yaml unless --path is given.
An existing file is left alone unless --force is set.

Examples:
  fairbio-trs config init
  fairbio-trs config init --path .fairbio/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if path == "" {
				return errors.New("cannot determine home directory; use --path")
			}
			if err := config.WriteDefaultConfig(path, force); err != nil {
				return err
			}
			a.summary.Message("Created config at %s", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "where to write the config file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func (a *app) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if a.loadErr != nil {
				return a.showUndecodable(out)
			}
			data, err := config.Marshal(a.cfg)
			if err != nil {
				return err
			}
			if a.configPath != "" {
				_, _ = fmt.Fprintf(out, "# loaded from %s\n", a.configPath)
			} else {
				_, _ = fmt.Fprintln(out, "# no config file found, showing defaults and environment")
			}
			_, err = out.Write(data)
			return err
		},
	}
}

// showUndecodable prints the config file as written, headed by the decode
// error, so the bad value can be found and fixed with "config set".
func (a *app) showUndecodable(out io.Writer) error {
	data, err := os.ReadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", a.configPath, err)
	}
	_, _ = fmt.Fprintf(out, "# loaded from %s\n", a.configPath)
	_, _ = fmt.Fprintln(out, "# the file could not be decoded, showing it as written:")
	for _, line := range strings.Split(strings.TrimSpace(a.loadErr.Error()), "\n") {
		_, _ = fmt.Fprintln(out, strings.TrimRight("# "+line, " "))
	}
	_, err = out.Write(data)
	return err
}

func (a *app) configSetCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set one key in the config file",
		Long: `Set one key in the config file, keeping its comments.

The file that was loaded is edited; without one, ~/.config/fairbio/config.yaml
is created. The new value is validated before anything is written.

Examples:
  fairbio-trs config set trs.url https://dockstore.org/api
  fairbio-ga4gh-registry config set http.timeout 30s`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if path == "" {
				path = a.configPath
			}
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if path == "" {
				return errors.New("cannot determine home directory; use --path")
			}

			if err := config.CheckValue(path, key, value); err != nil {
				return err
			}
			if err := config.SaveValue(path, key, value); err != nil {
				return err
			}
			a.summary.Message("Set %s in %s", key, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "config file to edit")
	return cmd
}
