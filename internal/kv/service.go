// Package kv implements the operations of the kv command line on top of a
// store, a shell executor and the trigger engine.
//
// Every mutation follows the same sequence: lock the store, load it, apply
// the change, save it if anything changed, unlock, then fire hooks. Saving
// before firing lets hook commands that call kv themselves see the new
// state, and unlocking first keeps them from blocking on the lock.
package kv

import (
	"context"

	"github.com/raphi011/kv/internal/log"
	"github.com/raphi011/kv/internal/registry"
	"github.com/raphi011/kv/internal/shell"
	"github.com/raphi011/kv/internal/storage"
	"github.com/raphi011/kv/internal/trigger"
)

// Options configures a Service.
type Options struct {
	MaxTriggerDepth int
	// Chain is the trigger chain inherited from a parent kv process, if kv
	// runs inside a hook.
	Chain trigger.Chain
}

// Service runs kv operations against a store.
type Service struct {
	store  *storage.Store
	exec   shell.Executor
	live   *liveLookup
	engine *trigger.Engine
}

// New creates a service.
func New(store *storage.Store, ex shell.Executor, opts Options) *Service {
	live := &liveLookup{reg: registry.New()}
	return &Service{
		store: store,
		exec:  ex,
		live:  live,
		engine: trigger.New(live, ex, trigger.Options{
			MaxDepth:  opts.MaxTriggerDepth,
			Chain:     opts.Chain,
			StorePath: store.Path(),
		}),
	}
}

// liveLookup resolves hooks against the most recently loaded registry. A
// single engine is shared by all operations of a Service so that a hook
// calling back into the same Service sees the frames already firing.
type liveLookup struct {
	reg *registry.Registry
}

func (l *liveLookup) HooksFor(action registry.Action, key string) []registry.NamedHook {
	return l.reg.HooksFor(action, key)
}

func (l *liveLookup) Command(name string) (string, error) {
	return l.reg.Command(name)
}

// StorePath returns the path of the underlying store file.
func (s *Service) StorePath() string { return s.store.Path() }

// SetResult is the outcome of Set.
type SetResult struct {
	Previous string
	Existed  bool
	Hooks    trigger.Report
}

// Set stores value under key and fires set hooks.
// Hook failures are reported in the result, not as an error.
func (s *Service) Set(ctx context.Context, key, value string) (SetResult, error) {
	var res SetResult
	reg, err := s.mutate(ctx, func(reg *registry.Registry) error {
		res.Previous, res.Existed = reg.SetKey(key, value)
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Hooks = s.fire(ctx, reg, trigger.Event{Action: registry.ActionSet, Key: key, Value: value})
	return res, nil
}

// GetResult is the outcome of Get.
type GetResult struct {
	Value string
	Found bool
	Hooks trigger.Report
}

// Get reads key and fires get hooks. A missing key is not an error.
func (s *Service) Get(ctx context.Context, key string) (GetResult, error) {
	var res GetResult
	reg, err := s.view(ctx)
	if err != nil {
		return res, err
	}
	res.Value, res.Found = reg.GetKey(key)
	res.Hooks = s.fire(ctx, reg, trigger.Event{Action: registry.ActionGet, Key: key, Value: res.Value})
	return res, nil
}

// DeleteResult is the outcome of Delete.
type DeleteResult struct {
	Previous string
	Existed  bool
	Hooks    trigger.Report
}

// Delete removes key and fires delete hooks. Deleting a missing key is not an
// error, and its hooks still fire.
func (s *Service) Delete(ctx context.Context, key string) (DeleteResult, error) {
	var res DeleteResult
	reg, err := s.mutate(ctx, func(reg *registry.Registry) error {
		res.Previous, res.Existed = reg.DeleteKey(key)
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Hooks = s.fire(ctx, reg, trigger.Event{Action: registry.ActionDelete, Key: key, Value: res.Previous})
	return res, nil
}

// AddCommand stores a named command line, replacing any previous one.
func (s *Service) AddCommand(ctx context.Context, name, commandLine string) error {
	_, err := s.mutate(ctx, func(reg *registry.Registry) error {
		reg.AddCommand(name, commandLine)
		return nil
	})
	return err
}

// RemoveCommand removes a command according to policy and returns the names
// of hooks removed with it.
func (s *Service) RemoveCommand(ctx context.Context, name string, policy registry.RemovePolicy) ([]string, error) {
	var removed []string
	_, err := s.mutate(ctx, func(reg *registry.Registry) error {
		var err error
		removed, err = reg.RemoveCommand(name, policy)
		return err
	})
	return removed, err
}

// HooksUsing returns the hooks that reference command.
// It fails with registry.ErrUnknownCommand if the command does not exist.
func (s *Service) HooksUsing(ctx context.Context, command string) ([]string, error) {
	reg, err := s.view(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := reg.Command(command); err != nil {
		return nil, err
	}
	return reg.HooksUsing(command), nil
}

// RunCommand runs a stored command with vars substituted into its
// placeholders. The command's exit status is in the result.
func (s *Service) RunCommand(ctx context.Context, name string, vars map[string]string) (shell.Result, error) {
	reg, err := s.view(ctx)
	if err != nil {
		return shell.Result{}, err
	}
	env := map[string]string{"KV_STORE_PATH": s.store.Path()}
	if chain := s.engine.Chain(); len(chain) > 0 {
		env[trigger.EnvChain] = chain.Encode()
	}
	return reg.RunCommand(ctx, s.exec, name, vars, env)
}

// AddHook binds command to action on key.
func (s *Service) AddHook(ctx context.Context, name, command string, action registry.Action, key string) error {
	_, err := s.mutate(ctx, func(reg *registry.Registry) error {
		return reg.AddHook(name, command, action, key)
	})
	return err
}

// RemoveHook removes a hook.
func (s *Service) RemoveHook(ctx context.Context, name string) error {
	_, err := s.mutate(ctx, func(reg *registry.Registry) error {
		return reg.RemoveHook(name)
	})
	return err
}

// Snapshot returns a copy of the current state for listing.
func (s *Service) Snapshot(ctx context.Context) (*registry.Registry, error) {
	reg, err := s.view(ctx)
	if err != nil {
		return nil, err
	}
	return reg.Clone(), nil
}

// mutate applies fn to the stored registry under the store lock and saves
// the result if fn changed anything. If fn fails nothing is saved.
func (s *Service) mutate(ctx context.Context, fn func(reg *registry.Registry) error) (*registry.Registry, error) {
	unlock, err := s.store.Lock()
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, unlock)

	reg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if err := fn(reg); err != nil {
		return nil, err
	}
	if !reg.Dirty() {
		return reg, nil
	}

	if err := s.store.Save(reg); err != nil {
		return nil, err
	}
	log.FromContext(ctx).Debug("saved store", "path", s.store.Path())
	return reg, nil
}

// view loads the registry under the store lock without saving.
func (s *Service) view(ctx context.Context) (*registry.Registry, error) {
	unlock, err := s.store.Lock()
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, unlock)

	return s.store.Load()
}

func (s *Service) release(ctx context.Context, unlock func() error) {
	if err := unlock(); err != nil {
		log.FromContext(ctx).Warn("release store lock", "path", s.store.Path(), "error", err.Error())
	}
}

func (s *Service) fire(ctx context.Context, reg *registry.Registry, ev trigger.Event) trigger.Report {
	s.live.reg = reg
	report := s.engine.Fire(ctx, ev)
	if n := report.Fired(); n > 0 {
		log.FromContext(ctx).Debug("hooks fired", "trigger", ev.Action.String(), "key", ev.Key,
			"count", n, "failed", len(report.Failures()))
	}
	return report
}
