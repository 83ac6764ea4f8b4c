package prompt

import (
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
)

func keyPress(key string) tea.KeyPressMsg {
	switch key {
	case "ctrl+c":
		return tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl}
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	case "esc":
		return tea.KeyPressMsg{Code: tea.KeyEscape}
	}
	return tea.KeyPressMsg{Code: rune(key[0]), Text: key}
}

// press feeds keys to m until it quits and returns the final model.
func press(m confirmModel, keys ...string) (confirmModel, bool) {
	for _, k := range keys {
		updated, cmd := m.Update(keyPress(k))
		m = updated.(confirmModel)
		if cmd != nil {
			return m, true
		}
	}
	return m, false
}

func TestConfirmModel_Answers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		keys []string
		want ConfirmResult
	}{
		{"y confirms", []string{"y"}, ConfirmResult{Confirmed: true}},
		{"Y confirms", []string{"Y"}, ConfirmResult{Confirmed: true}},
		{"n declines", []string{"n"}, ConfirmResult{}},
		{"enter defaults to no", []string{"enter"}, ConfirmResult{}},
		{"ctrl+c cancels", []string{"ctrl+c"}, ConfirmResult{Cancelled: true}},
		{"esc cancels", []string{"esc"}, ConfirmResult{Cancelled: true}},
		{"q cancels", []string{"q"}, ConfirmResult{Cancelled: true}},
		{"other keys are ignored", []string{"x", "1", "y"}, ConfirmResult{Confirmed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, quit := press(confirmModel{prompt: "Remove notify and its hooks h1?"}, tt.keys...)
			assert.True(t, quit, "prompt should quit")
			assert.True(t, m.done)
			assert.Equal(t, tt.want, m.result)
		})
	}
}

func TestConfirmModel_IgnoredKeyKeepsWaiting(t *testing.T) {
	t.Parallel()

	m, quit := press(confirmModel{prompt: "Remove?"}, "x")
	assert.False(t, quit)
	assert.False(t, m.done)
	assert.Nil(t, m.Init())
}

func TestConfirmModel_View(t *testing.T) {
	t.Parallel()

	m := confirmModel{prompt: "Remove notify and its hooks h1?"}
	if got := m.View().Content; got != "Remove notify and its hooks h1? [y/N] " {
		t.Errorf("View().Content = %q", got)
	}

	m, _ = press(m, "n")
	assert.Empty(t, m.View().Content, "the prompt is cleared once answered")
}
