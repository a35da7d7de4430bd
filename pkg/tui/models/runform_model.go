package models

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/leadctl/pkg/jobclient"
	"github.com/go-go-golems/leadctl/pkg/tui"
	"github.com/go-go-golems/leadctl/pkg/tui/styles"
	"github.com/go-go-golems/leadctl/pkg/tui/widgets"
)

const (
	fieldNiche = iota
	fieldMaxSites
	fieldCount
)

type runFormClosedMsg struct{}

// RunFormModel collects the parameters of a new run. Input is validated with
// the same rules the job client enforces before a start action is emitted.
type RunFormModel struct {
	width int

	inputs     []textinput.Model
	focus      int
	err        string
	submitting bool
}

func NewRunFormModel(niche string, maxSites int) RunFormModel {
	n := textinput.New()
	n.Prompt = "Niche      "
	n.Placeholder = "e.g. fitness apparel"
	n.CharLimit = jobclient.MaxNicheLength
	n.SetValue(niche)

	s := textinput.New()
	s.Prompt = "Max sites  "
	s.Placeholder = strconv.Itoa(jobclient.DefaultMaxSites)
	s.CharLimit = 3
	if maxSites > 0 {
		s.SetValue(strconv.Itoa(maxSites))
	}

	return RunFormModel{inputs: []textinput.Model{n, s}}
}

func (m RunFormModel) WithWidth(w int) RunFormModel {
	m.width = w
	return m
}

// Open focuses the first field and clears any previous outcome.
func (m RunFormModel) Open() (RunFormModel, tea.Cmd) {
	m.err = ""
	m.submitting = false
	return m.setFocus(fieldNiche)
}

// WithError reports a failed start; the form stays open for another attempt.
func (m RunFormModel) WithError(text string) RunFormModel {
	m.err = text
	m.submitting = false
	return m
}

func (m RunFormModel) Submitting() bool { return m.submitting }

func (m RunFormModel) Update(msg tea.Msg) (RunFormModel, tea.Cmd) {
	v, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch v.String() {
	case "esc":
		return m, func() tea.Msg { return runFormClosedMsg{} }
	case "tab", "down":
		return m.setFocus((m.focus + 1) % fieldCount)
	case "shift+tab", "up":
		return m.setFocus((m.focus + fieldCount - 1) % fieldCount)
	case "enter":
		if m.submitting {
			return m, nil
		}
		return m.submit()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(v)
	return m, cmd
}

func (m RunFormModel) submit() (RunFormModel, tea.Cmd) {
	maxSites := 0
	if raw := strings.TrimSpace(m.inputs[fieldMaxSites].Value()); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			m.err = "max sites must be a whole number"
			return m, nil
		}
		maxSites = n
	}

	req, err := jobclient.NewRunRequest(m.inputs[fieldNiche].Value(), maxSites)
	if err != nil {
		m.err = err.Error()
		return m, nil
	}

	m.err = ""
	m.submitting = true
	action := tui.ActionRequest{Kind: tui.ActionStart, Niche: req.Niche, MaxSites: req.MaxSites}
	return m, func() tea.Msg { return tui.ActionRequestMsg{Request: action} }
}

func (m RunFormModel) setFocus(i int) (RunFormModel, tea.Cmd) {
	m.focus = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return m, cmd
}

func (m RunFormModel) View() string {
	theme := styles.DefaultTheme()

	lines := make([]string, 0, len(m.inputs)+3)
	for _, in := range m.inputs {
		lines = append(lines, in.View())
	}
	lines = append(lines, "")
	switch {
	case m.submitting:
		lines = append(lines, theme.TitleMuted.Render("starting…"))
	case m.err != "":
		lines = append(lines, theme.StatusDead.Render(styles.IconError+" "+m.err))
	default:
		lines = append(lines, theme.TitleMuted.Render("niche 1-100 chars, max sites 1-100"))
	}

	return widgets.NewBox("New run").
		WithTitleRight("[enter] start  [tab] next  [esc] cancel").
		WithContent(lipgloss.JoinVertical(lipgloss.Left, lines...)).
		WithSize(maxInt(m.width, 60), 0).
		Render()
}
