// Package shell runs stored command lines through the user's shell.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/raphi011/kv/internal/log"
)

// Request describes one command line to execute.
type Request struct {
	Name        string            // stored command name, used in logs and errors
	CommandLine string            // passed to the shell via -c
	Env         map[string]string // added on top of the inherited environment
}

// Result is the outcome of a command that was started.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports whether the command exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Executor executes command lines.
//
// A command that ran and exited non-zero is not an error: Execute returns its
// Result with the exit code. An error means the command could not be started,
// timed out, or was cancelled.
type Executor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// Shell executes command lines with `<Program> -c`.
type Shell struct {
	Program string
	Timeout time.Duration // zero means no timeout

	Stdin  io.Reader
	Stdout io.Writer // command stdout is copied here as well as captured
	Stderr io.Writer // command stderr is copied here as well as captured
}

// New returns a Shell using program, or DefaultProgram() if program is empty.
// Output is streamed to the process's stdout/stderr.
func New(program string, timeout time.Duration) *Shell {
	if program == "" {
		program = DefaultProgram()
	}
	return &Shell{
		Program: program,
		Timeout: timeout,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// DefaultProgram returns $SHELL, falling back to sh.
func DefaultProgram() string {
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return "sh"
}

// ErrTimeout is returned when a command exceeds the configured timeout.
var ErrTimeout = errors.New("command timed out")

// Execute runs req.CommandLine and waits for it to finish.
func (s *Shell) Execute(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, err
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	log.FromContext(ctx).Command(s.Program, "-c", req.CommandLine)

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, s.Program, "-c", req.CommandLine)
	c.Env = mergeEnv(os.Environ(), req.Env)
	c.Stdin = s.Stdin
	c.Stdout = teeTo(&stdout, s.Stdout)
	c.Stderr = teeTo(&stderr, s.Stderr)

	err := c.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) && s.Timeout > 0:
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w after %s", req.Name, ErrTimeout, s.Timeout)
	case ctx.Err() != nil:
		res.ExitCode = -1
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	res.ExitCode = -1
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return res, fmt.Errorf("start %s: %w: %s", req.Name, err, msg)
	}
	return res, fmt.Errorf("start %s: %w", req.Name, err)
}

// mergeEnv returns base with the entries of extra appended in key order.
// Later entries win for duplicate keys in os/exec.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	env := slices.Clone(base)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

func teeTo(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

var _ Executor = (*Shell)(nil)
