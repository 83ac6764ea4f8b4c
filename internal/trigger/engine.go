package trigger

import (
	"context"
	"errors"
	"fmt"

	"github.com/raphi011/kv/internal/log"
	"github.com/raphi011/kv/internal/registry"
	"github.com/raphi011/kv/internal/shell"
)

var (
	// ErrCommandFailed marks a hook whose command exited non-zero or could
	// not be run.
	ErrCommandFailed = errors.New("hook command failed")
	// ErrDanglingHook marks a hook whose command no longer exists.
	ErrDanglingHook = errors.New("hook references missing command")
)

// DefaultMaxDepth is the chain depth at which further firing is suppressed.
const DefaultMaxDepth = 8

// Lookup resolves hooks and commands. *registry.Registry implements it.
type Lookup interface {
	HooksFor(action registry.Action, key string) []registry.NamedHook
	Command(name string) (string, error)
}

// Event is a completed storage operation.
type Event struct {
	Action registry.Action
	Key    string
	Value  string // value set, read, or deleted; empty if absent
}

// Options configures an Engine.
type Options struct {
	MaxDepth  int   // <= 0 means DefaultMaxDepth
	Chain     Chain // frames inherited from a parent kv invocation
	StorePath string
}

// Outcome is the result of running one hook.
type Outcome struct {
	Hook   registry.NamedHook
	Result shell.Result
	Err    error // nil on success
}

// Suppression explains why hooks for an event did not fire.
type Suppression struct {
	Frame  Frame
	Chain  Chain
	Reason string
}

// Report describes what Fire did.
type Report struct {
	Outcomes   []Outcome
	Suppressed *Suppression
}

// Fired returns the number of hooks that were run.
func (r Report) Fired() int { return len(r.Outcomes) }

// Failures returns the outcomes that failed, in execution order.
func (r Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Err joins all hook failures, or returns nil if every hook succeeded.
func (r Report) Err() error {
	var errs []error
	for _, o := range r.Failures() {
		errs = append(errs, o.Err)
	}
	return errors.Join(errs...)
}

// Engine fires hooks. It is not safe for concurrent use.
type Engine struct {
	lookup    Lookup
	exec      shell.Executor
	maxDepth  int
	chain     Chain
	storePath string
}

// New creates an engine resolving hooks through lookup and running them with ex.
func New(lookup Lookup, ex shell.Executor, opts Options) *Engine {
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	return &Engine{
		lookup:    lookup,
		exec:      ex,
		maxDepth:  depth,
		chain:     opts.Chain,
		storePath: opts.StorePath,
	}
}

// Chain returns the frames currently firing.
func (e *Engine) Chain() Chain { return e.chain }

// Fire runs every hook bound to (ev.Action, ev.Key) in hook insertion order.
// Each hook runs even if an earlier one failed.
func (e *Engine) Fire(ctx context.Context, ev Event) Report {
	l := log.FromContext(ctx)

	hooks := e.lookup.HooksFor(ev.Action, ev.Key)
	if len(hooks) == 0 {
		return Report{}
	}

	frame := Frame{Action: ev.Action, Key: ev.Key}
	switch {
	case e.chain.Contains(frame):
		s := &Suppression{Frame: frame, Chain: e.chain, Reason: "already firing"}
		l.Warn("hooks suppressed", "trigger", frame.String(), "reason", s.Reason, "chain", e.chain.String())
		return Report{Suppressed: s}
	case len(e.chain) >= e.maxDepth:
		s := &Suppression{Frame: frame, Chain: e.chain, Reason: fmt.Sprintf("max trigger depth %d reached", e.maxDepth)}
		l.Warn("hooks suppressed", "trigger", frame.String(), "reason", s.Reason, "chain", e.chain.String())
		return Report{Suppressed: s}
	}

	parent := e.chain
	e.chain = parent.push(frame)
	defer func() { e.chain = parent }()

	report := Report{Outcomes: make([]Outcome, 0, len(hooks))}
	for _, h := range hooks {
		report.Outcomes = append(report.Outcomes, e.run(ctx, ev, h))
	}
	return report
}

func (e *Engine) run(ctx context.Context, ev Event, h registry.NamedHook) Outcome {
	l := log.FromContext(ctx)
	out := Outcome{Hook: h}

	line, err := e.lookup.Command(h.Command)
	if err != nil {
		out.Err = fmt.Errorf("hook %s: %w: %s", h.Name, ErrDanglingHook, h.Command)
		l.Warn("dangling hook", "hook", h.Name, "command", h.Command)
		return out
	}

	vars := map[string]string{
		"key":     ev.Key,
		"value":   ev.Value,
		"trigger": ev.Action.String(),
		"hook":    h.Name,
	}
	env := map[string]string{
		"KV_KEY":        ev.Key,
		"KV_VALUE":      ev.Value,
		"KV_TRIGGER":    ev.Action.String(),
		"KV_HOOK":       h.Name,
		"KV_STORE_PATH": e.storePath,
		EnvChain:        e.chain.Encode(),
	}

	l.Debug("fire hook", "hook", h.Name, "command", h.Command, "trigger", ev.Action.String(), "key", ev.Key)

	res, err := e.exec.Execute(ctx, shell.Request{
		Name:        h.Command,
		CommandLine: shell.Expand(line, vars),
		Env:         env,
	})
	out.Result = res
	switch {
	case err != nil:
		out.Err = fmt.Errorf("hook %s: %w: %w", h.Name, ErrCommandFailed, err)
	case !res.Success():
		out.Err = fmt.Errorf("hook %s: %w: %s exited with status %d", h.Name, ErrCommandFailed, h.Command, res.ExitCode)
	}
	return out
}
