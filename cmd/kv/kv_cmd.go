package main

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/raphi011/kv/internal/log"
	"github.com/raphi011/kv/internal/output"
	"github.com/raphi011/kv/internal/shell"
	"github.com/raphi011/kv/internal/trigger"
)

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value",
		Long: `Store a value under a key, replacing any previous value.

Hooks bound to the key with the "set" trigger run afterwards. A failing hook
is reported as a warning and does not undo the change.

Use - as the value to read it from stdin.`,
		Example: `  kv set greeting hello
  kv set motd "have a nice day"
  git rev-parse HEAD | kv set deployed -`,
		GroupID:           GroupKeys,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFromContext(ctx)

			key, value := args[0], args[1]
			if value == "-" {
				piped, err := shell.ReadPiped(cmd.InOrStdin())
				if err != nil {
					return err
				}
				value = piped
			}

			a.hooksToStderr(cmd)
			res, err := a.svc.Set(ctx, key, value)
			if err != nil {
				return err
			}
			warnHookFailures(ctx, res.Hooks)
			return nil
		},
	}

	return cmd
}

func newGetCmd() *cobra.Command {
	var copyToClipboard bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a value",
		Long: `Print the value stored under a key, or an empty line if there is none.

Hooks bound to the key with the "get" trigger run before the value is printed.`,
		Example: `  kv get greeting
  kv get token --copy   # also copy the value to the clipboard`,
		GroupID:           GroupKeys,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFromContext(ctx)
			l := log.FromContext(ctx)
			out := output.FromContext(ctx)

			a.hooksToStderr(cmd)
			res, err := a.svc.Get(ctx, args[0])
			if err != nil {
				return err
			}
			out.Println(res.Value)
			warnHookFailures(ctx, res.Hooks)

			if copyToClipboard && res.Found {
				if err := clipboard.WriteAll(res.Value); err != nil {
					l.Warnf("failed to copy to clipboard: %v", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Copy the value to the clipboard")

	return cmd
}

func newDelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "del <key>",
		Aliases: []string{"delete", "rm"},
		Short:   "Delete a value",
		Long: `Delete a key and print the value it had, or an empty line if it did not exist.

Hooks bound to the key with the "delete" trigger run afterwards, even if the
key did not exist.`,
		Example:           `  kv del greeting`,
		GroupID:           GroupKeys,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := appFromContext(ctx)
			out := output.FromContext(ctx)

			a.hooksToStderr(cmd)
			res, err := a.svc.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			out.Println(res.Previous)
			warnHookFailures(ctx, res.Hooks)
			return nil
		},
	}

	return cmd
}

// hooksToStderr sends hook command output to stderr so that stdout only
// carries the value printed by kv.
func (a *app) hooksToStderr(cmd *cobra.Command) {
	a.shell.Stdout = cmd.ErrOrStderr()
}

// warnHookFailures prints one warning per failed hook, also under --quiet.
func warnHookFailures(ctx context.Context, report trigger.Report) {
	l := log.FromContext(ctx)
	for _, o := range report.Failures() {
		l.Warnf("%v", o.Err)
	}
}
