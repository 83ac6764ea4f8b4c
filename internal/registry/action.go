package registry

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action is the storage operation a hook is bound to.
type Action int

const (
	ActionSet Action = iota + 1
	ActionGet
	ActionDelete
)

// Actions lists every valid action in display order.
var Actions = []Action{ActionSet, ActionGet, ActionDelete}

// ParseAction parses "set", "get" or "delete". "del" is accepted as an alias
// for delete.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "set":
		return ActionSet, nil
	case "get":
		return ActionGet, nil
	case "delete", "del":
		return ActionDelete, nil
	}
	return 0, fmt.Errorf("%w: %q (valid: set, get, delete)", ErrInvalidAction, s)
}

func (a Action) String() string {
	switch a {
	case ActionSet:
		return "set"
	case ActionGet:
		return "get"
	case ActionDelete:
		return "delete"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Valid reports whether a is one of the defined actions.
func (a Action) Valid() bool {
	return a >= ActionSet && a <= ActionDelete
}

func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAction, int(a))
	}
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Action) MarshalYAML() (any, error) {
	b, err := a.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return a.UnmarshalText([]byte(s))
}
