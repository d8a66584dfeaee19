package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/attendr/internal/calendar"
	"github.com/christopherklint97/attendr/internal/engine"
)

type viewState int

const (
	formView viewState = iota
	loadingView
	resultView
)

// Predictor runs a leave-range simulation.
type Predictor interface {
	PredictRange(start, end time.Time) (*engine.Prediction, error)
}

type predictionMsg struct {
	prediction *engine.Prediction
	err        error
}

// PredictApp is the Bubbletea model for the interactive leave planner.
type PredictApp struct {
	state   viewState
	inputs  [2]dateInput
	focus   int
	spinner spinner.Model
	errMsg  string

	predictor Predictor
	now       time.Time
	current   *engine.Prediction
	results   []*engine.Prediction
}

func NewPredictApp(predictor Predictor, now time.Time, from, to string) *PredictApp {
	s := spinner.New()
	s.Spinner = spinner.Dot

	a := &PredictApp{
		state:     formView,
		inputs:    [2]dateInput{newDateInput("From", from), newDateInput("To", to)},
		spinner:   s,
		predictor: predictor,
		now:       now,
	}
	a.inputs[0].textInput.Focus()
	return a
}

func (a *PredictApp) Init() tea.Cmd {
	return tea.Batch(a.inputs[a.focus].textInput.Focus(), a.spinner.Tick)
}

func (a *PredictApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "esc" {
			return a, tea.Quit
		}
	case predictionMsg:
		return a.handlePrediction(msg)
	}

	switch a.state {
	case formView:
		return a.updateForm(msg)
	case loadingView:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	case resultView:
		return a.updateResult(msg)
	}
	return a, nil
}

func (a *PredictApp) View() string {
	switch a.state {
	case formView:
		header := titleStyle.Render("attendr: plan a leave")
		sub := subtitleStyle.Render("Every class on working days in the range is counted as missed.")
		body := a.inputs[0].View(a.focus == 0) + "\n\n" + a.inputs[1].View(a.focus == 1)
		if a.errMsg != "" {
			body += "\n\n" + errorStyle.Render("Error: ") + a.errMsg
		}
		help := helpStyle.Render("Tab: switch field • Enter: predict • Esc: quit")
		return header + "\n" + sub + "\n" + boxStyle.Render(body) + "\n" + help
	case loadingView:
		return a.spinner.View() + " Simulating..."
	case resultView:
		help := helpStyle.Render("[n]ew range • [q]uit")
		if a.errMsg != "" {
			return errorStyle.Render("Error: ") + a.errMsg + "\n" + help
		}
		return RenderPrediction(a.current) + help
	}
	return ""
}

// Results returns every prediction completed in this session, oldest first.
func (a *PredictApp) Results() []*engine.Prediction {
	return a.results
}

func (a *PredictApp) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "tab", "shift+tab", "up", "down":
			return a, a.setFocus(1 - a.focus)
		case "enter":
			if a.focus == 0 {
				return a, a.setFocus(1)
			}
			return a.submit()
		}
	}

	var cmd tea.Cmd
	a.inputs[a.focus], cmd = a.inputs[a.focus].Update(msg)
	return a, cmd
}

func (a *PredictApp) updateResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "n":
			a.state = formView
			a.errMsg = ""
			return a, a.setFocus(0)
		case "q", "enter":
			return a, tea.Quit
		}
	}
	return a, nil
}

func (a *PredictApp) setFocus(i int) tea.Cmd {
	a.inputs[a.focus].textInput.Blur()
	a.focus = i
	return a.inputs[i].textInput.Focus()
}

func (a *PredictApp) submit() (tea.Model, tea.Cmd) {
	start, err := calendar.ParseDate(a.inputs[0].Value(), a.now)
	if err != nil {
		a.errMsg = err.Error()
		return a, nil
	}
	end := start
	if strings.TrimSpace(a.inputs[1].Value()) != "" {
		if end, err = calendar.ParseDate(a.inputs[1].Value(), a.now); err != nil {
			a.errMsg = err.Error()
			return a, nil
		}
	}
	if end.Before(start) {
		a.errMsg = fmt.Sprintf("end %s is before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
		return a, nil
	}

	a.errMsg = ""
	a.state = loadingView
	return a, tea.Batch(a.spinner.Tick, a.predict(start, end))
}

func (a *PredictApp) predict(start, end time.Time) tea.Cmd {
	return func() tea.Msg {
		p, err := a.predictor.PredictRange(start, end)
		return predictionMsg{prediction: p, err: err}
	}
}

func (a *PredictApp) handlePrediction(msg predictionMsg) (tea.Model, tea.Cmd) {
	a.state = resultView
	if msg.err != nil {
		a.errMsg = msg.err.Error()
		return a, nil
	}
	a.current = msg.prediction
	a.results = append(a.results, msg.prediction)
	return a, nil
}
