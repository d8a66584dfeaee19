package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type dateInput struct {
	label     string
	textInput textinput.Model
}

func newDateInput(label, prefill string) dateInput {
	ti := textinput.New()
	ti.Placeholder = "YYYY-MM-DD, D_M_YYYY or \"next monday\""
	ti.CharLimit = 40
	ti.Width = 40
	if prefill != "" {
		ti.SetValue(prefill)
	}
	return dateInput{label: label, textInput: ti}
}

func (m dateInput) Update(msg tea.Msg) (dateInput, tea.Cmd) {
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m dateInput) View(focused bool) string {
	label := dimStyle.Render(m.label)
	if focused {
		label = highlightStyle.Render(m.label)
	}
	return label + "\n" + m.textInput.View()
}

func (m dateInput) Value() string {
	return m.textInput.Value()
}
