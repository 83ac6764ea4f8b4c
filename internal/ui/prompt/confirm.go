package prompt

import (
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/mattn/go-isatty"
)

// ConfirmResult holds the result of a confirmation prompt.
type ConfirmResult struct {
	Confirmed bool
	Cancelled bool // ctrl+c, esc or q
}

// confirmModel asks a single yes/no question. Anything other than y means no.
type confirmModel struct {
	prompt string
	result ConfirmResult
	done   bool
}

// confirmKeys maps the keys that end the prompt to their answer.
var confirmKeys = map[string]ConfirmResult{
	"y":      {Confirmed: true},
	"Y":      {Confirmed: true},
	"n":      {},
	"N":      {},
	"enter":  {},
	"ctrl+c": {Cancelled: true},
	"esc":    {Cancelled: true},
	"q":      {Cancelled: true},
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}
	answer, ok := confirmKeys[key.String()]
	if !ok {
		return m, nil
	}
	m.result = answer
	m.done = true
	return m, tea.Quit
}

func (m confirmModel) View() tea.View {
	if m.done {
		return tea.NewView("")
	}
	return tea.NewView(m.prompt + " [y/N] ")
}

// Interactive reports whether prompts can be shown, i.e. stdin and stderr
// are both terminals.
func Interactive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stderr)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Confirm shows a yes/no prompt on stderr and returns the user's choice.
// Pressing enter answers no.
func Confirm(prompt string) (ConfirmResult, error) {
	p := tea.NewProgram(confirmModel{prompt: prompt},
		tea.WithOutput(os.Stderr),
		tea.WithColorProfile(colorprofile.Detect(os.Stderr, os.Environ())),
	)
	final, err := p.Run()
	if err != nil {
		return ConfirmResult{}, err
	}
	return final.(confirmModel).result, nil
}
