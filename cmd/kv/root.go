package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphi011/kv/internal/config"
	"github.com/raphi011/kv/internal/kv"
	"github.com/raphi011/kv/internal/log"
	"github.com/raphi011/kv/internal/output"
	"github.com/raphi011/kv/internal/shell"
	"github.com/raphi011/kv/internal/storage"
	"github.com/raphi011/kv/internal/trigger"
)

// Command group IDs for organizing help output
const (
	GroupKeys     = "keys"
	GroupCommands = "commands"
	GroupConfig   = "config"
)

// app is the state shared by all commands of one invocation.
type app struct {
	cfg   config.Config
	shell *shell.Shell
	svc   *kv.Service
}

type appKey struct{}

func appFromContext(ctx context.Context) *app {
	a, _ := ctx.Value(appKey{}).(*app)
	return a
}

// exitError makes the process exit with code without printing anything.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// skipsSetup reports whether cmd runs without loading config and store.
func skipsSetup(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "completion", "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	}
	return cmd.Parent() != nil && cmd.Parent().Name() == "config" && cmd.Name() == "init"
}

func newRootCmd() *cobra.Command {
	var (
		verbose bool
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "kv",
		Short: "Key-value store with named shell commands and hooks",
		Long: `kv is a local key-value store that can run shell commands.

Store named command lines with 'kv cmd add' and bind them to keys with
'kv cmd add-hook'. A hook runs its command whenever its key is set, read
or deleted.`,
		SilenceUsage:               true,
		SilenceErrors:              true,
		SuggestionsMinimumDistance: 2,
		Version:                    versionString(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := log.New(cmd.ErrOrStderr(), verbose, quiet)
			ctx = log.WithLogger(ctx, logger)
			ctx = output.WithPrinter(ctx, cmd.OutOrStdout())
			cmd.SetContext(ctx)

			if skipsSetup(cmd) {
				return nil
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			logger.Debug("loaded config", "file", a.cfg.File, "store", a.cfg.StorePath)
			cmd.SetContext(context.WithValue(ctx, appKey{}, a))
			return nil
		},
		// Run is not set - shows help when no subcommand provided
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.PersistentFlags().String("store", "", "Store file (default $XDG_CONFIG_HOME/kv/kv.json)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show commands being executed")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output except warnings")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	cmd.MarkPersistentFlagFilename("store", "json", "yaml", "yml")

	cmd.AddGroup(
		&cobra.Group{ID: GroupKeys, Title: "Key Commands:"},
		&cobra.Group{ID: GroupCommands, Title: "Command and Hook Commands:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration Commands:"},
	)

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newDelCmd())
	cmd.AddCommand(newListCmd())

	cmd.AddCommand(newCmdCmd())

	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newCompletionCmd())

	return cmd
}

// newApp resolves the configuration and builds the service.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	chain, err := trigger.ParseChain(os.Getenv(trigger.EnvChain))
	if err != nil {
		return nil, err
	}

	sh := shell.New(cfg.Shell, cfg.HookTimeout)
	sh.Stdin = cmd.InOrStdin()
	sh.Stdout = cmd.OutOrStdout()
	sh.Stderr = cmd.ErrOrStderr()

	store := storage.New(cfg.StorePath, cfg.Lock)
	svc := kv.New(store, sh, kv.Options{
		MaxTriggerDepth: cfg.MaxTriggerDepth,
		Chain:           chain,
	})

	return &app{cfg: cfg, shell: sh, svc: svc}, nil
}

// Execute runs the command line and exits the process.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	os.Exit(exitCode(os.Stderr, err))
}

// exitCode reports err on w and returns the process exit code for it.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}

	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}

	fmt.Fprintf(w, "kv: %v\n", err)
	if errors.Is(err, storage.ErrPersist) {
		fmt.Fprintln(w, "kv: change may not be durable")
	}
	return 1
}
