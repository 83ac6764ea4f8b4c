package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/raphi011/kv/internal/trigger"
)

// EnvConfig overrides the config file location.
const EnvConfig = "KV_CONFIG"

// Setting keys, as used by viper. Environment variables are KV_ followed by
// the key upper-cased with dashes replaced by underscores.
const (
	KeyStorePath       = "store-path"
	KeyShell           = "shell"
	KeyHookTimeout     = "hook-timeout"
	KeyMaxTriggerDepth = "max-trigger-depth"
	KeyLock            = "lock"
)

var keys = []string{KeyStorePath, KeyShell, KeyHookTimeout, KeyMaxTriggerDepth, KeyLock}

// Config holds the kv configuration
type Config struct {
	StorePath       string        // absolute path of the store file
	Shell           string        // empty means $SHELL, then sh
	HookTimeout     time.Duration // zero means no timeout
	MaxTriggerDepth int
	Lock            bool

	// File is the config file that was read, or "" if there was none.
	File string
}

// Default returns the default configuration
func Default() Config {
	return Config{
		StorePath:       DefaultStorePath(),
		MaxTriggerDepth: trigger.DefaultMaxDepth,
		Lock:            true,
	}
}

// Dir returns the kv configuration directory, $XDG_CONFIG_HOME/kv.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, "kv")
}

// DefaultStorePath returns $XDG_CONFIG_HOME/kv/kv.json.
func DefaultStorePath() string {
	return filepath.Join(Dir(), "kv.json")
}

// FilePath returns the config file location: $KV_CONFIG if set, otherwise
// $XDG_CONFIG_HOME/kv/config.toml.
func FilePath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.toml")
}

// ValidatePath checks that the path is absolute or starts with ~
// Returns error if path is relative (like "." or "..")
func ValidatePath(path, fieldName string) error {
	if path == "" || strings.HasPrefix(path, "~") || filepath.IsAbs(path) {
		return nil
	}
	return fmt.Errorf("%s must be absolute or start with ~, got: %q", fieldName, path)
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand ~: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
}

// rawConfig is the TOML shape. Pointers distinguish unset from zero.
type rawConfig struct {
	StorePath       string `toml:"store_path"`
	Shell           string `toml:"shell"`
	HookTimeout     string `toml:"hook_timeout"`
	MaxTriggerDepth *int   `toml:"max_trigger_depth"`
	Lock            *bool  `toml:"lock"`
}

// LoadFile reads a config file on top of Default().
// Returns Default() if file doesn't exist (no error)
// Returns error only if file exists but is invalid
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Default(), fmt.Errorf("failed to read config file: %w", err)
	}

	var raw rawConfig
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return Default(), fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Default(), fmt.Errorf("unknown setting %q in %s", undecoded[0].String(), path)
	}

	if raw.StorePath != "" {
		if err := ValidatePath(raw.StorePath, "store_path"); err != nil {
			return Default(), err
		}
		expanded, err := expandPath(raw.StorePath)
		if err != nil {
			return Default(), fmt.Errorf("expand store_path: %w", err)
		}
		cfg.StorePath = expanded
	}
	cfg.Shell = raw.Shell
	if raw.HookTimeout != "" {
		d, err := parseTimeout(raw.HookTimeout)
		if err != nil {
			return Default(), fmt.Errorf("invalid hook_timeout: %w", err)
		}
		cfg.HookTimeout = d
	}
	if raw.MaxTriggerDepth != nil {
		cfg.MaxTriggerDepth = *raw.MaxTriggerDepth
	}
	if raw.Lock != nil {
		cfg.Lock = *raw.Lock
	}
	cfg.File = path

	return cfg, cfg.validate()
}

// Load resolves the configuration from all sources. flags may be nil; if it
// has a "store" flag, that flag overrides store_path when set.
func Load(flags *pflag.FlagSet) (Config, error) {
	base, err := LoadFile(FilePath())
	if err != nil {
		return Default(), err
	}

	v := viper.New()
	v.SetDefault(KeyStorePath, base.StorePath)
	v.SetDefault(KeyShell, base.Shell)
	v.SetDefault(KeyHookTimeout, base.HookTimeout.String())
	v.SetDefault(KeyMaxTriggerDepth, base.MaxTriggerDepth)
	v.SetDefault(KeyLock, base.Lock)

	dotenv, err := readDotenv(".env", ".env.local")
	if err != nil {
		return Default(), err
	}
	if err := v.MergeConfigMap(dotenv); err != nil {
		return Default(), fmt.Errorf("apply .env: %w", err)
	}

	v.SetEnvPrefix("kv")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if f := flags.Lookup("store"); f != nil {
			if err := v.BindPFlag(KeyStorePath, f); err != nil {
				return Default(), err
			}
		}
	}

	cfg := Config{
		Shell:           v.GetString(KeyShell),
		MaxTriggerDepth: v.GetInt(KeyMaxTriggerDepth),
		Lock:            v.GetBool(KeyLock),
		File:            base.File,
	}

	cfg.StorePath, err = expandPath(v.GetString(KeyStorePath))
	if err != nil {
		return Default(), err
	}
	if cfg.StorePath == "" {
		cfg.StorePath = DefaultStorePath()
	}
	if cfg.StorePath, err = filepath.Abs(cfg.StorePath); err != nil {
		return Default(), fmt.Errorf("resolve store path: %w", err)
	}

	if cfg.HookTimeout, err = parseTimeout(v.GetString(KeyHookTimeout)); err != nil {
		return Default(), fmt.Errorf("invalid %s: %w", KeyHookTimeout, err)
	}

	return cfg, cfg.validate()
}

// readDotenv returns the KV_* entries of the given env files as viper keys.
// Later files win. Missing files are skipped.
func readDotenv(files ...string) (map[string]any, error) {
	out := map[string]any{}
	for _, f := range files {
		env, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, val := range env {
			name, ok := strings.CutPrefix(k, "KV_")
			if !ok {
				continue
			}
			key := strings.ReplaceAll(strings.ToLower(name), "_", "-")
			if slices.Contains(keys, key) {
				out[key] = val
			}
		}
	}
	return out, nil
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", s)
	}
	return d, nil
}

func (c Config) validate() error {
	if c.MaxTriggerDepth < 1 {
		return fmt.Errorf("invalid max_trigger_depth %d: must be at least 1", c.MaxTriggerDepth)
	}
	return nil
}

// Settings returns the effective settings by config file key, for display.
func (c Config) Settings() map[string]string {
	timeout := "none"
	if c.HookTimeout > 0 {
		timeout = c.HookTimeout.String()
	}
	shell := c.Shell
	if shell == "" {
		shell = "$SHELL"
	}
	return map[string]string{
		"store_path":        c.StorePath,
		"shell":             shell,
		"hook_timeout":      timeout,
		"max_trigger_depth": fmt.Sprint(c.MaxTriggerDepth),
		"lock":              fmt.Sprint(c.Lock),
	}
}

// String renders the configuration in sections, for `kv config show`.
func (c Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(strings.ToUpper(title) + "\n")
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-18s: %s\n", name, value))
	}

	file := c.File
	if file == "" {
		file = FilePath() + " (not found)"
	}

	addSection("Files")
	addField("config", file)
	addField("store", c.StorePath)

	addSection("Settings")
	settings := c.Settings()
	for _, k := range slices.Sorted(maps.Keys(settings)) {
		if k == "store_path" {
			continue
		}
		addField(k, settings[k])
	}

	return sb.String()
}

const defaultConfig = `# kv configuration

# Store file. .yaml or .yml selects YAML, anything else JSON.
# Must be an absolute path or start with ~
# store_path = "~/.config/kv/kv.json"

# Program used to run commands as "<shell> -c <command line>".
# Defaults to $SHELL, then sh.
# shell = "/bin/bash"

# Kill commands that run longer than this. Empty means no timeout.
# hook_timeout = "30s"

# Hooks may call kv themselves, which can fire more hooks. A hook never
# re-fires for a set/get/delete on a key that is already firing, and firing
# stops once this many levels are nested.
# max_trigger_depth = 8

# Take an exclusive lock on <store_path>.lock around every operation so that
# concurrent kv processes do not overwrite each other's changes.
# lock = true

# Every setting can be overridden with a KV_ environment variable, e.g.
# KV_STORE_PATH, KV_HOOK_TIMEOUT, KV_MAX_TRIGGER_DEPTH. KV_ entries in
# .env and .env.local in the working directory are read as well.
`

// Init creates a default config file at FilePath().
// If force is true, overwrites existing file
// Returns the path to the created file
func Init(force bool) (string, error) {
	path := FilePath()

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", errors.New("config file already exists: " + path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return "", err
	}

	return path, nil
}

// DefaultFile returns the content written by Init.
func DefaultFile() string {
	return defaultConfig
}
