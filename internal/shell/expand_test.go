package shell

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	t.Parallel()

	vars := map[string]string{
		"key":     "bg-path",
		"value":   "/x/my image.png",
		"trigger": "set",
		"quote":   "it's",
	}

	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{
			name:     "single placeholder",
			line:     "showimg {value}",
			expected: "showimg '/x/my image.png'",
		},
		{
			name:     "multiple placeholders",
			line:     "echo {trigger} {key}",
			expected: "echo 'set' 'bg-path'",
		},
		{
			name:     "raw placeholder",
			line:     `echo "{key:raw}"`,
			expected: `echo "bg-path"`,
		},
		{
			name:     "default used when missing",
			line:     "echo {missing:-fallback}",
			expected: "echo 'fallback'",
		},
		{
			name:     "default ignored when present",
			line:     "echo {key:-fallback}",
			expected: "echo 'bg-path'",
		},
		{
			name:     "single quotes escaped",
			line:     "echo {quote}",
			expected: `echo 'it'\''s'`,
		},
		{
			name:     "shell parameter expansion untouched",
			line:     "echo ${key} ${HOME}",
			expected: "echo ${key} ${HOME}",
		},
		{
			name:     "unknown placeholder untouched",
			line:     "awk '{print}' {unknown}",
			expected: "awk '{print}' {unknown}",
		},
		{
			name:     "no placeholders",
			line:     "echo hello",
			expected: "echo hello",
		},
		{
			name:     "command substitution kept",
			line:     "showimg $(kv get {key:raw})",
			expected: "showimg $(kv get bg-path)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Expand(tt.line, vars))
		})
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "''", Quote(""))
	assert.Equal(t, "'a b'", Quote("a b"))
	assert.Equal(t, `'it'\''s'`, Quote("it's"))
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	got, err := ParseArgs([]string{"a=1", "b=x=y", "c="}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y", "c": ""}, got)

	_, err = ParseArgs([]string{"novalue"}, nil)
	assert.ErrorContains(t, err, "expected KEY=VALUE")

	_, err = ParseArgs([]string{"=x"}, nil)
	assert.ErrorContains(t, err, "key cannot be empty")
}

func TestParseArgs_Stdin(t *testing.T) {
	t.Parallel()

	got, err := ParseArgs([]string{"a=1", "body=-", "copy=-"}, strings.NewReader("from stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "body": "from stdin", "copy": "from stdin"}, got)
}

func TestReadPiped(t *testing.T) {
	t.Parallel()

	got, err := ReadPiped(strings.NewReader("line1\nline2\n"))
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", got)

	got, err = ReadPiped(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}
