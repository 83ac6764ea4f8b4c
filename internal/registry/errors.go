package registry

import (
	"errors"
	"fmt"

	"github.com/sahilm/fuzzy"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownHook    = errors.New("unknown hook")
	ErrDuplicateHook  = errors.New("hook already exists")
	ErrCommandInUse   = errors.New("command is used by hooks")
	ErrInvalidName    = errors.New("name cannot be empty")
	ErrInvalidAction  = errors.New("invalid trigger")
)

// nameSource implements fuzzy.Source over a list of names.
type nameSource []string

func (s nameSource) String(i int) string { return s[i] }
func (s nameSource) Len() int            { return len(s) }

// suggest returns the candidate closest to name, or "" if nothing is close.
// A candidate is close if either string fuzzy-matches the other, which
// catches both dropped and extra characters.
func suggest(name string, candidates []string) string {
	if name == "" || len(candidates) == 0 {
		return ""
	}
	if m := fuzzy.FindFrom(name, nameSource(candidates)); len(m) > 0 {
		return m[0].Str
	}
	best, bestScore := "", 0
	for _, c := range candidates {
		m := fuzzy.Find(c, []string{name})
		if len(m) > 0 && (best == "" || m[0].Score > bestScore) {
			best, bestScore = c, m[0].Score
		}
	}
	return best
}

func unknownError(sentinel error, name string, candidates []string) error {
	if s := suggest(name, candidates); s != "" {
		return fmt.Errorf("%w: %s (did you mean %q?)", sentinel, name, s)
	}
	return fmt.Errorf("%w: %s", sentinel, name)
}
