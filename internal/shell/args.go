package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrStdinTerminal is returned when piped input is required but stdin is a terminal.
var ErrStdinTerminal = errors.New("stdin is a terminal: pipe the value in")

// ParseArgs parses a slice of "key=value" strings into a map.
// Returns an error if any entry doesn't contain "=". A value of "-" is
// replaced by the content piped on stdin, which is read once and shared by
// all such keys.
func ParseArgs(args []string, stdin io.Reader) (map[string]string, error) {
	result := make(map[string]string, len(args))
	var stdinKeys []string

	for _, a := range args {
		key, value, err := splitArg(a)
		if err != nil {
			return nil, err
		}
		if value == "-" {
			stdinKeys = append(stdinKeys, key)
			continue
		}
		result[key] = value
	}

	if len(stdinKeys) > 0 {
		content, err := ReadPiped(stdin)
		if err != nil {
			return nil, err
		}
		for _, key := range stdinKeys {
			result[key] = content
		}
	}

	return result, nil
}

// ReadPiped reads all of r, which must not be an interactive terminal.
// A single trailing newline is dropped, so `echo foo | kv set k -` stores "foo".
func ReadPiped(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return "", ErrStdinTerminal
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	s := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(s, "\r"), nil
}

func splitArg(a string) (string, string, error) {
	key, value, ok := strings.Cut(a, "=")
	if !ok {
		return "", "", fmt.Errorf("invalid arg format %q: expected KEY=VALUE", a)
	}
	if key == "" {
		return "", "", fmt.Errorf("invalid arg format %q: key cannot be empty", a)
	}
	return key, value, nil
}
