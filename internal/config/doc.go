// Package config handles loading of kv configuration.
//
// # Configuration Sources (highest priority first)
//
//   - Command line flags (--store)
//   - KV_* environment variables (KV_STORE_PATH, KV_SHELL, KV_HOOK_TIMEOUT,
//     KV_MAX_TRIGGER_DEPTH, KV_LOCK)
//   - KV_* entries in .env.local and .env in the working directory
//   - The config file, $XDG_CONFIG_HOME/kv/config.toml (or $KV_CONFIG)
//   - Default values
//
// # Key Settings
//
//   - store_path: the store file; .yaml/.yml selects YAML, anything else JSON
//     (default: $XDG_CONFIG_HOME/kv/kv.json)
//   - shell: program used to run commands with -c (default: $SHELL, then sh)
//   - hook_timeout: per-command timeout such as "30s" (default: none)
//   - max_trigger_depth: nesting limit for hooks triggering hooks (default: 8)
//   - lock: take an exclusive file lock around each operation (default: true)
//
// # Path Validation
//
// store_path in the config file must be absolute or start with ~. Paths from
// flags and the environment may be relative to the working directory.
package config
