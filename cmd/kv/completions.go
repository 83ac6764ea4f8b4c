package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphi011/kv/internal/config"
	"github.com/raphi011/kv/internal/registry"
	"github.com/raphi011/kv/internal/storage"
)

// completionRegistry loads the store for shell completion.
// Completion runs without the root setup, so the config is resolved here.
// The store is read without taking the lock so that completion never blocks.
func completionRegistry(cmd *cobra.Command) *registry.Registry {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil
	}
	reg, err := storage.New(cfg.StorePath, false).Load()
	if err != nil {
		return nil
	}
	return reg
}

// filterPrefix returns the names starting with prefix.
func filterPrefix(names []string, prefix string) []string {
	var matches []string
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			matches = append(matches, n)
		}
	}
	return matches
}

// completeKeys completes the first argument with stored keys.
func completeKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	reg := completionRegistry(cmd)
	if reg == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return filterPrefix(reg.KeyNames(), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeCommandNames completes the first argument with stored command names.
func completeCommandNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	reg := completionRegistry(cmd)
	if reg == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return filterPrefix(reg.CommandNames(), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeHookNames completes the first argument with hook names.
func completeHookNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	reg := completionRegistry(cmd)
	if reg == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return filterPrefix(reg.HookNames(), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeAddHookArgs completes <hook> <command> <trigger> <key>.
func completeAddHookArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 1:
		if reg := completionRegistry(cmd); reg != nil {
			return filterPrefix(reg.CommandNames(), toComplete), cobra.ShellCompDirectiveNoFileComp
		}
	case 2:
		var triggers []string
		for _, a := range registry.Actions {
			triggers = append(triggers, a.String())
		}
		return filterPrefix(triggers, toComplete), cobra.ShellCompDirectiveNoFileComp
	case 3:
		if reg := completionRegistry(cmd); reg != nil {
			return filterPrefix(reg.KeyNames(), toComplete), cobra.ShellCompDirectiveNoFileComp
		}
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
