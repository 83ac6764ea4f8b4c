package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphi011/kv/internal/log"
	"github.com/raphi011/kv/internal/output"
	"github.com/raphi011/kv/internal/registry"
)

// KeyDisplay holds a key for JSON output
type KeyDisplay struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CommandDisplay holds a command for JSON output
type CommandDisplay struct {
	Name    string `json:"name"`
	Command string `json:"command"`
}

// HookDisplay holds a hook for JSON output
type HookDisplay struct {
	Name    string `json:"name"`
	Command string `json:"command"`
	Trigger string `json:"trigger"`
	Key     string `json:"key"`
}

// listSubjects maps accepted subject spellings to their canonical name.
var listSubjects = map[string]string{
	"keys": "keys", "key": "keys",
	"cmds": "cmds", "cmd": "cmds", "commands": "cmds",
	"hooks": "hooks", "hook": "hooks",
}

func newListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:       "list [keys|cmds|hooks]",
		Short:     "List keys, commands and hooks",
		Aliases:   []string{"ls"},
		GroupID:   GroupKeys,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"keys", "cmds", "hooks"},
		Long: `List keys, commands or hooks in the order they were added.

Without an argument all three are listed. With --json the output is
machine readable: a list of objects for one subject, or the whole store
document for all of them.`,
		Example: `  kv list              # List everything
  kv list keys         # List keys and values
  kv list hooks --json # Output hooks as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)
			out := output.FromContext(ctx)

			subject := ""
			if len(args) == 1 {
				var ok bool
				if subject, ok = listSubjects[args[0]]; !ok {
					return fmt.Errorf("unknown list subject %q (valid: keys, cmds, hooks)", args[0])
				}
			}

			reg, err := appFromContext(ctx).svc.Snapshot(ctx)
			if err != nil {
				return err
			}

			keys, cmds, hooks := reg.Len()
			l.Debug("listing", "subject", subject, "keys", keys, "commands", cmds, "hooks", hooks)

			if jsonOutput {
				switch subject {
				case "keys":
					return out.JSON(keyDisplays(reg))
				case "cmds":
					return out.JSON(commandDisplays(reg))
				case "hooks":
					return out.JSON(hookDisplays(reg))
				}
				return out.JSON(reg)
			}

			switch subject {
			case "keys":
				printKeys(out, reg)
			case "cmds":
				printCommands(out, reg)
			case "hooks":
				printHooks(out, reg)
			default:
				printKeys(out, reg)
				out.Println(output.Rule)
				printCommands(out, reg)
				out.Println(output.Rule)
				printHooks(out, reg)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func keyDisplays(reg *registry.Registry) []KeyDisplay {
	list := []KeyDisplay{}
	for k, v := range reg.Keys() {
		list = append(list, KeyDisplay{Key: k, Value: v})
	}
	return list
}

func commandDisplays(reg *registry.Registry) []CommandDisplay {
	list := []CommandDisplay{}
	for name, line := range reg.Commands() {
		list = append(list, CommandDisplay{Name: name, Command: line})
	}
	return list
}

func hookDisplays(reg *registry.Registry) []HookDisplay {
	list := []HookDisplay{}
	for name, h := range reg.Hooks() {
		list = append(list, HookDisplay{Name: name, Command: h.Command, Trigger: h.Trigger.String(), Key: h.Key})
	}
	return list
}

func printKeys(out *output.Printer, reg *registry.Registry) {
	var rows [][]string
	for _, k := range keyDisplays(reg) {
		rows = append(rows, []string{k.Key, k.Value})
	}
	out.Table([]string{"KEY", "VALUE"}, rows)
}

func printCommands(out *output.Printer, reg *registry.Registry) {
	var rows [][]string
	for _, c := range commandDisplays(reg) {
		rows = append(rows, []string{c.Name, c.Command})
	}
	out.Table([]string{"NAME", "COMMAND"}, rows)
}

func printHooks(out *output.Printer, reg *registry.Registry) {
	var rows [][]string
	for _, h := range hookDisplays(reg) {
		rows = append(rows, []string{h.Name, h.Command, h.Trigger, h.Key})
	}
	out.Table([]string{"NAME", "COMMAND", "TRIGGER", "KEY"}, rows)
}
