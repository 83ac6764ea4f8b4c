package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphi011/kv/internal/log"
	"github.com/raphi011/kv/internal/registry"
	"github.com/raphi011/kv/internal/shell"
	"github.com/raphi011/kv/internal/ui/prompt"
)

// isInteractive reports whether confirmation prompts can be shown.
var isInteractive = prompt.Interactive

func newCmdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cmd",
		Short:   "Manage commands and hooks",
		GroupID: GroupCommands,
		Long: `Manage named commands and the hooks that run them.

A command is a shell command line stored under a name. It runs with
"$SHELL -c" and may contain placeholders:

  {key}      key that triggered the hook
  {value}    value that was set, read or deleted
  {trigger}  set, get or delete
  {hook}     name of the hook
  {name}     any variable passed with --arg name=value

Values are shell-quoted. Use {name:raw} to insert a value unquoted and
{name:-default} to fall back to a default when it is empty.`,
		Example: `  kv cmd add notify 'notify-send "kv" {key}={value}'
  kv cmd add-hook on-greeting notify set greeting
  kv set greeting hello          # runs notify
  kv cmd run notify --arg key=a --arg value=b`,
	}

	cmd.AddCommand(newCmdAddCmd())
	cmd.AddCommand(newCmdRunCmd())
	cmd.AddCommand(newCmdDelCmd())
	cmd.AddCommand(newCmdAddHookCmd())
	cmd.AddCommand(newCmdDelHookCmd())

	return cmd
}

func newCmdAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <command-line>",
		Short: "Store a named command",
		Long: `Store a shell command line under a name, replacing any previous command
with that name. Hooks using the name run the new command line from now on.`,
		Example: `  kv cmd add echo-cmd 'echo {value}'
  kv cmd add backup 'cp "$KV_STORE_PATH" ~/kv.bak'`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeCommandNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return appFromContext(ctx).svc.AddCommand(ctx, args[0], args[1])
		},
	}
}

func newCmdRunCmd() *cobra.Command {
	var argFlags []string

	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a named command",
		Long: `Run a stored command and exit with its exit status.

Placeholders are filled from --arg. A placeholder without a value and
without a default is left as written. A value of - reads the value from
stdin.`,
		Example: `  kv cmd run echo-cmd --arg value=hi
  echo hi | kv cmd run echo-cmd --arg value=-`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeCommandNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			vars, err := shell.ParseArgs(argFlags, cmd.InOrStdin())
			if err != nil {
				return err
			}

			res, err := appFromContext(ctx).svc.RunCommand(ctx, args[0], vars)
			if err != nil {
				return err
			}
			if !res.Success() {
				log.FromContext(ctx).Debug("command failed", "command", args[0], "status", res.ExitCode)
				return exitError{code: res.ExitCode}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&argFlags, "arg", "a", nil, "Set placeholder variable (KEY=VALUE, VALUE may be - for stdin)")

	return cmd
}

func newCmdDelCmd() *cobra.Command {
	var (
		cascade bool
		yes     bool
	)

	cmd := &cobra.Command{
		Use:     "del <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a named command",
		Long: `Remove a stored command.

A command that hooks still use is not removed unless --cascade is given,
which removes those hooks as well. On a terminal --cascade asks for
confirmation first; pass --yes to skip it.`,
		Example: `  kv cmd del echo-cmd
  kv cmd del notify --cascade --yes`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeCommandNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFromContext(ctx)
			l := log.FromContext(ctx)
			name := args[0]

			policy := registry.Forbid
			if cascade {
				policy = registry.Cascade

				hooks, err := a.svc.HooksUsing(ctx, name)
				if err != nil {
					return err
				}
				if len(hooks) > 0 && !yes {
					if !isInteractive() {
						return fmt.Errorf("removing %s also removes hooks %s: pass --yes to confirm", name, strings.Join(hooks, ", "))
					}
					result, err := prompt.Confirm(fmt.Sprintf("Remove %s and its hooks %s?", name, strings.Join(hooks, ", ")))
					if err != nil {
						return err
					}
					if result.Cancelled || !result.Confirmed {
						l.Printf("Cancelled\n")
						return nil
					}
				}
			}

			removed, err := a.svc.RemoveCommand(ctx, name, policy)
			if err != nil {
				return err
			}
			for _, h := range removed {
				l.Printf("Removed hook %s\n", h)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cascade, "cascade", false, "Also remove hooks that use the command")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func newCmdAddHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-hook <hook> <command> <trigger> <key>",
		Short: "Run a command when a key is set, read or deleted",
		Long: `Bind a stored command to a key. Trigger is one of set, get or delete
(del is accepted as well). The command must exist; the key need not.

Hook names are unique. To change a hook, remove it with 'kv cmd del-hook'
and add it again.`,
		Example: `  kv cmd add-hook h1 echo-cmd set k
  kv cmd add-hook audit log-read get token`,
		Args:              cobra.ExactArgs(4),
		ValidArgsFunction: completeAddHookArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			action, err := registry.ParseAction(args[2])
			if err != nil {
				return err
			}
			return appFromContext(ctx).svc.AddHook(ctx, args[0], args[1], action, args[3])
		},
	}
}

func newCmdDelHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "del-hook <hook>",
		Aliases:           []string{"rm-hook"},
		Short:             "Remove a hook",
		Example:           `  kv cmd del-hook h1`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeHookNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return appFromContext(ctx).svc.RemoveHook(ctx, args[0])
		},
	}
}
