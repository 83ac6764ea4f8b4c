package main

import (
	"github.com/spf13/cobra"

	"github.com/raphi011/kv/internal/config"
	"github.com/raphi011/kv/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage configuration",
		Aliases: []string{"cfg"},
		GroupID: GroupConfig,
		Long: `Manage kv configuration.

Config file: $XDG_CONFIG_HOME/kv/config.toml (override with KV_CONFIG)

Settings can also be given as KV_* environment variables or KV_* entries in
.env and .env.local in the working directory. --store overrides store_path.`,
		Example: `  kv config init          # Create default config
  kv config show          # Show effective config`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force  bool
		stdout bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default config file",
		Args:  cobra.NoArgs,
		Example: `  kv config init      # Create config file
  kv config init -f   # Overwrite existing config
  kv config init -s   # Print config to stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			if stdout {
				out.Print(config.DefaultFile())
				return nil
			}

			path, err := config.Init(force)
			if err != nil {
				return err
			}
			out.Printf("Created config file: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config")
	cmd.Flags().BoolVarP(&stdout, "stdout", "s", false, "Print config to stdout")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		Long: `Show the configuration after applying the config file, .env files,
environment variables and flags.`,
		Example: `  kv config show
  kv config show --json
  kv --store /tmp/kv.yaml config show`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := appFromContext(ctx).cfg
			out := output.FromContext(ctx)

			if jsonOutput {
				settings := cfg.Settings()
				settings["config_file"] = cfg.File
				return out.JSON(settings)
			}

			out.Print(cfg.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
