// Package log provides context-aware logging for kv.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

type ctxKey struct{}

// Logger writes diagnostics to stderr. Structured events go through zerolog,
// plain user-facing messages through Printf and Warnf.
type Logger struct {
	out   io.Writer
	zl    zerolog.Logger
	quiet bool
}

// New creates a new logger.
// verbose enables debug events (including every command executed),
// quiet suppresses everything below error level.
func New(out io.Writer, verbose, quiet bool) *Logger {
	level := zerolog.WarnLevel
	switch {
	case quiet:
		level = zerolog.ErrorLevel
	case verbose:
		level = zerolog.DebugLevel
	}

	cw := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(out),
	}

	return &Logger{
		out:   out,
		zl:    zerolog.New(cw).Level(level).With().Timestamp().Logger(),
		quiet: quiet,
	}
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context.
// Returns a no-op logger if none is attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{out: io.Discard, zl: zerolog.Nop(), quiet: true}
}

// Printf writes formatted output unless quiet mode is enabled.
func (l *Logger) Printf(format string, args ...any) {
	if l.quiet {
		return
	}
	fmt.Fprintf(l.out, format, args...)
}

// Warnf writes a formatted "Warning: " line. Quiet mode does not silence it.
func (l *Logger) Warnf(format string, args ...any) {
	fmt.Fprintf(l.out, "Warning: "+format+"\n", args...)
}

// Debug logs a debug event. kv is a flat list of alternating keys and values.
func (l *Logger) Debug(msg string, kv ...any) {
	l.zl.Debug().Fields(kv).Msg(msg)
}

// Warn logs a warning event.
func (l *Logger) Warn(msg string, kv ...any) {
	l.zl.Warn().Fields(kv).Msg(msg)
}

// Command logs an external command execution.
// Only emitted when verbose mode is enabled.
func (l *Logger) Command(name string, args ...string) {
	l.zl.Debug().Str("cmd", name+" "+strings.Join(args, " ")).Msg("exec")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
