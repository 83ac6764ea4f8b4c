// Package registry holds the in-memory state of a kv store: keys, named
// commands and hooks binding a command to a (trigger, key) pair.
//
// A Registry is a plain value with no ambient state. Loading and saving it is
// the job of the storage package; firing hooks is the job of the trigger
// package.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"gopkg.in/yaml.v3"

	"github.com/raphi011/kv/internal/shell"
)

// Hook binds a command to a storage operation on a key.
type Hook struct {
	Command string `json:"command" yaml:"command"` // name of a stored command
	Trigger Action `json:"trigger" yaml:"trigger"`
	Key     string `json:"key" yaml:"key"` // need not exist
}

// NamedHook is a Hook together with its name.
type NamedHook struct {
	Name string
	Hook
}

// RemovePolicy decides what RemoveCommand does with hooks that reference the
// command being removed.
type RemovePolicy int

const (
	// Forbid refuses to remove a command that hooks still reference.
	Forbid RemovePolicy = iota
	// Cascade removes the referencing hooks together with the command.
	Cascade
)

// Registry is the authoritative state of a store.
// The zero value is an empty registry.
type Registry struct {
	keys     orderedMap[string]
	commands orderedMap[string]
	hooks    orderedMap[Hook]

	dirty bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// SetKey inserts or overwrites key and returns the previous value, if any.
// Any string is a valid key, including "".
func (r *Registry) SetKey(key, value string) (prev string, existed bool) {
	prev, existed = r.keys.set(key, value)
	r.dirty = true
	return prev, existed
}

// GetKey returns the value of key. A missing key is reported with ok=false,
// not an error.
func (r *Registry) GetKey(key string) (value string, ok bool) {
	return r.keys.get(key)
}

// DeleteKey removes key and returns its previous value. Deleting a missing key
// is a no-op.
func (r *Registry) DeleteKey(key string) (prev string, existed bool) {
	prev, existed = r.keys.delete(key)
	if existed {
		r.dirty = true
	}
	return prev, existed
}

// AddCommand inserts or overwrites a named command line.
func (r *Registry) AddCommand(name, commandLine string) {
	r.commands.set(name, commandLine)
	r.dirty = true
}

// Command returns the command line stored under name.
func (r *Registry) Command(name string) (string, error) {
	line, ok := r.commands.get(name)
	if !ok {
		return "", unknownError(ErrUnknownCommand, name, r.commands.names())
	}
	return line, nil
}

// RemoveCommand removes a command. With Forbid, a command that hooks still
// reference is left in place and ErrCommandInUse is returned. With Cascade,
// the referencing hooks are removed as well and their names returned.
func (r *Registry) RemoveCommand(name string, policy RemovePolicy) (removedHooks []string, err error) {
	if _, ok := r.commands.get(name); !ok {
		return nil, unknownError(ErrUnknownCommand, name, r.commands.names())
	}

	using := r.HooksUsing(name)
	if len(using) > 0 && policy != Cascade {
		return nil, fmt.Errorf("%w: %s is used by %d hook(s): %v (use --cascade to remove them too)",
			ErrCommandInUse, name, len(using), using)
	}

	for _, h := range using {
		r.hooks.delete(h)
	}
	r.commands.delete(name)
	r.dirty = true
	return using, nil
}

// RunCommand expands vars into the named command line and executes it.
// The command's exit status is in the returned Result; an error means the
// command is unknown or could not be run.
func (r *Registry) RunCommand(ctx context.Context, ex shell.Executor, name string, vars, env map[string]string) (shell.Result, error) {
	line, err := r.Command(name)
	if err != nil {
		return shell.Result{}, err
	}
	return ex.Execute(ctx, shell.Request{
		Name:        name,
		CommandLine: shell.Expand(line, vars),
		Env:         env,
	})
}

// AddHook binds command to action on key under the given hook name.
// The command must exist; the key need not. An existing hook is never
// overwritten.
func (r *Registry) AddHook(name, command string, action Action, key string) error {
	switch {
	case name == "":
		return fmt.Errorf("hook: %w", ErrInvalidName)
	case !action.Valid():
		return fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}

	if _, ok := r.commands.get(command); !ok {
		return unknownError(ErrUnknownCommand, command, r.commands.names())
	}
	if _, ok := r.hooks.get(name); ok {
		return fmt.Errorf("%w: %s (remove it first with 'kv cmd del-hook %s')", ErrDuplicateHook, name, name)
	}

	r.hooks.set(name, Hook{Command: command, Trigger: action, Key: key})
	r.dirty = true
	return nil
}

// RemoveHook removes the named hook.
func (r *Registry) RemoveHook(name string) error {
	if _, existed := r.hooks.delete(name); !existed {
		return unknownError(ErrUnknownHook, name, r.hooks.names())
	}
	r.dirty = true
	return nil
}

// Hook returns the named hook.
func (r *Registry) Hook(name string) (Hook, error) {
	h, ok := r.hooks.get(name)
	if !ok {
		return Hook{}, unknownError(ErrUnknownHook, name, r.hooks.names())
	}
	return h, nil
}

// HooksFor returns the hooks bound to (action, key) in hook insertion order.
func (r *Registry) HooksFor(action Action, key string) []NamedHook {
	var matched []NamedHook
	for name, h := range r.hooks.all() {
		if h.Trigger == action && h.Key == key {
			matched = append(matched, NamedHook{Name: name, Hook: h})
		}
	}
	return matched
}

// HooksUsing returns the names of hooks that reference command.
func (r *Registry) HooksUsing(command string) []string {
	var names []string
	for name, h := range r.hooks.all() {
		if h.Command == command {
			names = append(names, name)
		}
	}
	return names
}

// Keys yields key/value pairs in insertion order.
func (r *Registry) Keys() iter.Seq2[string, string] { return r.keys.all() }

// Commands yields command names and command lines in insertion order.
func (r *Registry) Commands() iter.Seq2[string, string] { return r.commands.all() }

// Hooks yields hooks in insertion order.
func (r *Registry) Hooks() iter.Seq2[string, Hook] { return r.hooks.all() }

// Len returns the number of keys, commands and hooks.
func (r *Registry) Len() (keys, commands, hooks int) {
	return r.keys.len(), r.commands.len(), r.hooks.len()
}

// KeyNames returns all key names in insertion order.
func (r *Registry) KeyNames() []string { return r.keys.names() }

// CommandNames returns all command names in insertion order.
func (r *Registry) CommandNames() []string { return r.commands.names() }

// HookNames returns all hook names in insertion order.
func (r *Registry) HookNames() []string { return r.hooks.names() }

// Dirty reports whether the registry changed since it was loaded or last
// marked clean.
func (r *Registry) Dirty() bool { return r.dirty }

// MarkClean resets the dirty flag, typically after a successful save.
func (r *Registry) MarkClean() { r.dirty = false }

// Clone returns an independent copy of r.
func (r *Registry) Clone() *Registry {
	return &Registry{
		keys:     r.keys.clone(),
		commands: r.commands.clone(),
		hooks:    r.hooks.clone(),
		dirty:    r.dirty,
	}
}

// document is the persisted shape of a Registry.
type document struct {
	Keys     orderedMap[string] `json:"keys" yaml:"keys"`
	Commands orderedMap[string] `json:"commands" yaml:"commands"`
	Hooks    orderedMap[Hook]   `json:"hooks" yaml:"hooks"`
}

func (r *Registry) document() document {
	return document{Keys: r.keys, Commands: r.commands, Hooks: r.hooks}
}

func (r *Registry) fromDocument(doc document) error {
	for name, h := range doc.Hooks.all() {
		if name == "" {
			return fmt.Errorf("hook %q: %w", name, ErrInvalidName)
		}
		if !h.Trigger.Valid() {
			return fmt.Errorf("hook %q: %w: missing", name, ErrInvalidAction)
		}
	}
	*r = Registry{keys: doc.Keys, commands: doc.Commands, hooks: doc.Hooks}
	return nil
}

func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.document())
}

// UnmarshalJSON replaces r with the decoded state. On error r is unchanged.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return r.fromDocument(doc)
}

func (r *Registry) MarshalYAML() (any, error) {
	return r.document(), nil
}

// UnmarshalYAML replaces r with the decoded state. On error r is unchanged.
func (r *Registry) UnmarshalYAML(node *yaml.Node) error {
	var doc document
	if err := node.Decode(&doc); err != nil {
		return err
	}
	return r.fromDocument(doc)
}
