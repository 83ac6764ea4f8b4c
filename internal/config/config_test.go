package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config source at an empty temp directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(EnvConfig, filepath.Join(dir, "config.toml"))
	for _, k := range []string{"KV_STORE_PATH", "KV_SHELL", "KV_HOOK_TIMEOUT", "KV_MAX_TRIGGER_DEPTH", "KV_LOCK"} {
		t.Setenv(k, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.True(t, strings.HasSuffix(cfg.StorePath, filepath.Join("kv", "kv.json")), cfg.StorePath)
	assert.Equal(t, 8, cfg.MaxTriggerDepth)
	assert.True(t, cfg.Lock)
	assert.Zero(t, cfg.HookTimeout)
	assert.Empty(t, cfg.Shell)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name    string
		content string
		want    func(c Config) Config
		wantErr string
	}{
		{
			name:    "empty file",
			content: "",
			want:    func(c Config) Config { return c },
		},
		{
			name: "all settings",
			content: `
store_path = "/data/kv.yaml"
shell = "/bin/bash"
hook_timeout = "1m30s"
max_trigger_depth = 3
lock = false
`,
			want: func(c Config) Config {
				c.StorePath = "/data/kv.yaml"
				c.Shell = "/bin/bash"
				c.HookTimeout = 90 * time.Second
				c.MaxTriggerDepth = 3
				c.Lock = false
				return c
			},
		},
		{
			name:    "tilde path",
			content: `store_path = "~/kv/store.json"`,
			want: func(c Config) Config {
				c.StorePath = filepath.Join(home, "kv", "store.json")
				return c
			},
		},
		{
			name:    "relative path",
			content: `store_path = "./kv.json"`,
			wantErr: "store_path must be absolute",
		},
		{
			name:    "bad timeout",
			content: `hook_timeout = "soon"`,
			wantErr: "invalid hook_timeout",
		},
		{
			name:    "negative timeout",
			content: `hook_timeout = "-1s"`,
			wantErr: "must not be negative",
		},
		{
			name:    "zero depth",
			content: `max_trigger_depth = 0`,
			wantErr: "must be at least 1",
		},
		{
			name:    "unknown key",
			content: `worktree_dir = "/x"`,
			wantErr: `unknown setting "worktree_dir"`,
		},
		{
			name:    "invalid toml",
			content: `store_path = `,
			wantErr: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "config.toml")
			writeFile(t, path, tt.content)

			cfg, err := LoadFile(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			want := tt.want(Default())
			want.File = path
			assert.Equal(t, want, cfg)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Empty(t, cfg.File)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)

	writeFile(t, filepath.Join(dir, "config.toml"), `
store_path = "/from/file.json"
shell = "file-shell"
hook_timeout = "10s"
max_trigger_depth = 2
`)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "/from/file.json", cfg.StorePath)
	assert.Equal(t, "file-shell", cfg.Shell)
	assert.Equal(t, 10*time.Second, cfg.HookTimeout)
	assert.Equal(t, 2, cfg.MaxTriggerDepth)
	assert.True(t, cfg.Lock)
	assert.Equal(t, filepath.Join(dir, "config.toml"), cfg.File)

	// .env beats the config file, .env.local beats .env
	writeFile(t, filepath.Join(dir, ".env"), "KV_SHELL=dotenv-shell\nKV_HOOK_TIMEOUT=20s\nOTHER=ignored\n")
	writeFile(t, filepath.Join(dir, ".env.local"), "KV_HOOK_TIMEOUT=30s\nKV_LOCK=false\n")

	cfg, err = Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-shell", cfg.Shell)
	assert.Equal(t, 30*time.Second, cfg.HookTimeout)
	assert.False(t, cfg.Lock)

	// the environment beats .env
	t.Setenv("KV_SHELL", "env-shell")
	t.Setenv("KV_MAX_TRIGGER_DEPTH", "5")
	t.Setenv("KV_STORE_PATH", "/from/env.yaml")

	cfg, err = Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "env-shell", cfg.Shell)
	assert.Equal(t, 5, cfg.MaxTriggerDepth)
	assert.Equal(t, "/from/env.yaml", cfg.StorePath)

	// flags beat everything
	flags := pflag.NewFlagSet("kv", pflag.ContinueOnError)
	flags.String("store", "", "")
	require.NoError(t, flags.Parse([]string{"--store", "rel/flag.json"}))

	cfg, err = Load(flags)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rel", "flag.json"), cfg.StorePath, "relative flag paths resolve against the working directory")
}

func TestLoad_UnsetFlagKeepsLowerSources(t *testing.T) {
	isolate(t)
	t.Setenv("KV_STORE_PATH", "/from/env.json")

	flags := pflag.NewFlagSet("kv", pflag.ContinueOnError)
	flags.String("store", "", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, "/from/env.json", cfg.StorePath)
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultStorePath(), cfg.StorePath)
	assert.Empty(t, cfg.File)
	assert.Equal(t, 8, cfg.MaxTriggerDepth)
}

func TestLoad_InvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("KV_HOOK_TIMEOUT", "later")

	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid hook-timeout")
}

func TestInit(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "sub", "config.toml")
	t.Setenv(EnvConfig, path)

	got, err := Init(false)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	// the generated file only has comments and loads as defaults
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	want := Default()
	want.File = path
	assert.Equal(t, want, cfg)

	_, err = Init(false)
	assert.ErrorContains(t, err, "already exists")

	_, err = Init(true)
	assert.NoError(t, err)
}

func TestString(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.StorePath = "/s/kv.json"
	cfg.HookTimeout = 5 * time.Second
	cfg.File = "/c/config.toml"

	out := cfg.String()
	assert.Contains(t, out, "FILES")
	assert.Contains(t, out, "SETTINGS")
	assert.Contains(t, out, "/c/config.toml")
	assert.Contains(t, out, "/s/kv.json")
	assert.Contains(t, out, "hook_timeout")
	assert.Contains(t, out, "5s")
	assert.Contains(t, out, "$SHELL")
}

func TestValidatePath(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"", "~", "~/x", "/abs"} {
		assert.NoError(t, ValidatePath(ok, "f"), ok)
	}
	for _, bad := range []string{".", "..", "rel/x"} {
		assert.Error(t, ValidatePath(bad, "f"), bad)
	}
}
