package models

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/tui"
	"github.com/go-go-golems/leadctl/pkg/tui/styles"
	"github.com/go-go-golems/leadctl/pkg/tui/widgets"
)

var stepColumns = []widgets.TableColumn{
	{Header: "Step", Width: 14},
	{Header: "Status", Width: 11},
	{Header: "Progress", Width: 18},
	{Header: "Time", Width: 18},
	{Header: "Detail", Width: 40},
}

// DashboardModel renders a pipeline state. It never reduces events itself;
// the root model hands it every new snapshot.
type DashboardModel struct {
	width  int
	height int

	state  pipeline.State
	cursor int
}

func NewDashboardModel() DashboardModel {
	return DashboardModel{state: pipeline.Initial()}
}

func (m DashboardModel) WithSize(width, height int) DashboardModel {
	m.width, m.height = width, height
	return m
}

func (m DashboardModel) WithState(st pipeline.State) DashboardModel {
	m.state = st
	if cur := st.CurrentStep; cur != nil && st.Status == pipeline.StatusRunning {
		m.cursor = cur.Index()
	}
	return m
}

func (m DashboardModel) State() pipeline.State { return m.state }

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	if v, ok := msg.(tea.KeyMsg); ok {
		switch v.String() {
		case "up", "k":
			m.cursor = clampInt(m.cursor-1, 0, len(protocol.Steps)-1)
		case "down", "j":
			m.cursor = clampInt(m.cursor+1, 0, len(protocol.Steps)-1)
		}
	}
	return m, nil
}

func (m DashboardModel) View() string {
	theme := styles.DefaultTheme()
	st := m.state
	d := pipeline.Derive(st)

	width := maxInt(m.width, 60)

	var sections []string

	barWidth := clampInt(width-30, 10, 60)
	overall := widgets.NewPipelineBar(st).WithWidth(barWidth).Render()
	overall += theme.TitleMuted.Render(fmt.Sprintf("  %d/%d steps", d.CompletedSteps, d.TotalSteps))

	rows := make([]widgets.TableRow, 0, len(protocol.Steps))
	for i, step := range protocol.Steps {
		rows = append(rows, widgets.StepRow(step, st.Step(step), i == m.cursor))
	}
	table := widgets.NewTable(stepColumns).
		WithRows(rows).
		WithCursor(m.cursor).
		WithSize(width-2, len(rows))

	title := "Pipeline"
	titleRight := string(st.Status)
	if st.RunID != "" {
		titleRight = fmt.Sprintf("run %s · %s", st.RunID, st.Status)
	}
	content := overall + "\n\n" + table.Render()
	if detail := m.selectedDetail(); detail != "" {
		content += "\n\n" + theme.TitleMuted.Render(detail)
	}
	sections = append(sections, widgets.NewBox(title).
		WithTitleRight(titleRight).
		WithContent(content).
		WithSize(width, 0).
		Render())

	if st.Status == pipeline.StatusCompleted && st.Summary != nil {
		s := st.Summary
		body := fmt.Sprintf("%d/%d steps completed\n%d sites processed\ntotal time %s",
			s.StepsCompleted, s.TotalSteps, s.SitesProcessed, tui.FormatDurationMs(s.TotalDuration))
		sections = append(sections, widgets.NewBox(styles.IconSuccess+" Summary").
			WithAccent(theme.Success).
			WithContent(body).
			WithSize(width, 0).
			Render())
	}

	if st.Status == pipeline.StatusFailed && st.Error != "" {
		sections = append(sections, widgets.NewBox(styles.IconError+" Pipeline failed").
			WithAccent(theme.Error).
			WithContent(theme.StatusDead.Render(st.Error)).
			WithSize(width, 0).
			Render())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) selectedDetail() string {
	if m.cursor < 0 || m.cursor >= len(protocol.Steps) {
		return ""
	}
	step := protocol.Steps[m.cursor]
	ss := m.state.Step(step)
	var parts []string
	if ss.StartedAt != nil {
		parts = append(parts, "started "+ss.StartedAt.Local().Format(time.TimeOnly))
	}
	if ss.CompletedAt != nil {
		parts = append(parts, "finished "+ss.CompletedAt.Local().Format(time.TimeOnly))
	}
	if ss.Error != "" {
		parts = append(parts, "error: "+ss.Error)
	} else if ss.Message != "" {
		parts = append(parts, ss.Message)
	}
	if len(parts) == 0 {
		return ""
	}
	return step.Title() + ": " + strings.Join(parts, " · ")
}
