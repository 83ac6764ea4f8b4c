package trigger

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/raphi011/kv/internal/registry"
)

// EnvChain is the environment variable carrying the trigger chain into hook
// commands.
const EnvChain = "KV_TRIGGER_CHAIN"

// Frame is one (action, key) pair whose hooks are firing.
type Frame struct {
	Action registry.Action
	Key    string
}

type frameJSON struct {
	Action string `json:"action"`
	Key    string `json:"key"`
}

func (f Frame) String() string {
	return f.Action.String() + " " + f.Key
}

// Chain is the list of frames firing across nested kv invocations,
// outermost first.
type Chain []Frame

// ParseChain decodes a chain from its environment form. An empty string is
// an empty chain.
func ParseChain(s string) (Chain, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var raw []frameJSON
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", EnvChain, err)
	}
	c := make(Chain, 0, len(raw))
	for _, f := range raw {
		action, err := registry.ParseAction(f.Action)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvChain, err)
		}
		c = append(c, Frame{Action: action, Key: f.Key})
	}
	return c, nil
}

// Encode returns the environment form of c.
func (c Chain) Encode() string {
	if len(c) == 0 {
		return ""
	}
	raw := make([]frameJSON, len(c))
	for i, f := range c {
		raw[i] = frameJSON{Action: f.Action.String(), Key: f.Key}
	}
	b, _ := json.Marshal(raw)
	return string(b)
}

// Contains reports whether f is on the chain.
func (c Chain) Contains(f Frame) bool {
	return slices.Contains(c, f)
}

// push returns a new chain with f appended, leaving c untouched.
func (c Chain) push(f Frame) Chain {
	return append(slices.Clip(c), f)
}

func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, f := range c {
		parts[i] = f.String()
	}
	return strings.Join(parts, " -> ")
}
