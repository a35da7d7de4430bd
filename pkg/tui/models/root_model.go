package models

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/transport"
	"github.com/go-go-golems/leadctl/pkg/tui"
	"github.com/go-go-golems/leadctl/pkg/tui/styles"
	"github.com/go-go-golems/leadctl/pkg/tui/widgets"
)

type ViewID string

const (
	ViewDashboard ViewID = "dashboard"
	ViewArtifacts ViewID = "artifacts"
	ViewEvents    ViewID = "events"
)

var viewOrder = []ViewID{ViewDashboard, ViewArtifacts, ViewEvents}

type tickMsg time.Time

type RootOptions struct {
	// Publish hands an action to the bus. Required for anything but viewing.
	Publish func(tui.ActionRequest) error
	// Persist is called with every state the reducer produces.
	Persist func(st pipeline.State, lastRun *protocol.RunConfig)

	Reducer pipeline.Reducer
	Initial *pipeline.State
	LastRun *protocol.RunConfig

	// Form defaults.
	Niche    string
	MaxSites int
}

// RootModel owns the pipeline state. Every event and reset goes through the
// reducer here, on the bubbletea update goroutine.
type RootModel struct {
	width  int
	height int

	active   ViewID
	formOpen bool

	state   pipeline.State
	reducer pipeline.Reducer
	lastRun *protocol.RunConfig
	pending *protocol.RunConfig
	conn    tui.ConnectionChanged

	flash    string
	flashErr bool

	dashboard DashboardModel
	form      RunFormModel
	artifacts ArtifactsModel
	events    EventLogModel

	publish func(tui.ActionRequest) error
	persist func(pipeline.State, *protocol.RunConfig)
}

func NewRootModel(opts RootOptions) RootModel {
	st := pipeline.Initial()
	if opts.Initial != nil {
		st = opts.Initial.Normalize()
	}
	niche, maxSites := opts.Niche, opts.MaxSites
	if opts.LastRun != nil && niche == "" {
		niche, maxSites = opts.LastRun.Niche, opts.LastRun.MaxSites
	}
	return RootModel{
		active:    ViewDashboard,
		state:     st,
		reducer:   opts.Reducer,
		lastRun:   opts.LastRun,
		dashboard: NewDashboardModel().WithState(st),
		form:      NewRunFormModel(niche, maxSites),
		artifacts: NewArtifactsModel(),
		events:    NewEventLogModel(),
		publish:   opts.Publish,
		persist:   opts.Persist,
	}
}

func (m RootModel) State() pipeline.State { return m.state }
func (m RootModel) Active() ViewID        { return m.active }
func (m RootModel) FormOpen() bool        { return m.formOpen }

func (m RootModel) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		m = m.resize()
		return m, nil

	case tickMsg:
		// re-render for the elapsed clock
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(v)

	case runFormClosedMsg:
		m.formOpen = false
		return m, nil

	case tui.ActionRequestMsg:
		cmd := m.dispatch(v.Request)
		return m, cmd

	case tui.PipelineEventMsg:
		m = m.apply(v.Event)
		return m, nil

	case tui.ConnectionMsg:
		m.conn = v.Change
		return m, nil

	case tui.EventLogAppendMsg:
		m.events = m.events.Append(v.Entry)
		return m, nil

	case tui.ActionResultMsg:
		return m.handleResult(v.Result)
	}
	return m, nil
}

func (m RootModel) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := k.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.formOpen {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(k)
		return m, cmd
	}
	if m.active == ViewEvents && m.events.Searching() {
		var cmd tea.Cmd
		m.events, cmd = m.events.Update(k)
		return m, cmd
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "tab":
		m.active = nextView(m.active, 1)
		return m, nil
	case "shift+tab":
		m.active = nextView(m.active, -1)
		return m, nil
	case "esc":
		m.active = ViewDashboard
		return m, nil
	}

	switch m.active {
	case ViewEvents:
		var cmd tea.Cmd
		m.events, cmd = m.events.Update(k)
		return m, cmd
	case ViewArtifacts:
		var cmd tea.Cmd
		m.artifacts, cmd = m.artifacts.Update(k)
		return m, cmd
	}

	switch key {
	case "n":
		m.formOpen = true
		var cmd tea.Cmd
		m.form, cmd = m.form.Open()
		return m, cmd
	case "s":
		cmd := m.dispatch(tui.ActionRequest{Kind: tui.ActionStop})
		return m, cmd
	case "x":
		m = m.setState(pipeline.Reset())
		m.setFlash("state reset", false)
		return m, nil
	case "c":
		cmd := m.dispatch(tui.ActionRequest{Kind: tui.ActionReconnect})
		return m, cmd
	case "r":
		cmd := m.dispatch(tui.ActionRequest{Kind: tui.ActionRefreshStatus})
		return m, cmd
	case "a":
		m.active = ViewArtifacts
		var cmd tea.Cmd
		m.artifacts, cmd = m.artifacts.Fetch(m.artifacts.Selected())
		return m, cmd
	}

	var cmd tea.Cmd
	m.dashboard, cmd = m.dashboard.Update(k)
	return m, cmd
}

// dispatch publishes req off the update goroutine. A publish failure comes
// back as a failed result.
func (m *RootModel) dispatch(req tui.ActionRequest) tea.Cmd {
	if req.Kind == tui.ActionStart {
		m.pending = &protocol.RunConfig{Niche: req.Niche, MaxSites: req.MaxSites}
	}
	publish := m.publish
	return func() tea.Msg {
		if publish == nil {
			return tui.ActionResultMsg{Result: tui.ActionResult{At: time.Now(), Kind: req.Kind, Error: "actions are not available"}}
		}
		if err := publish(req); err != nil {
			return tui.ActionResultMsg{Result: tui.ActionResult{At: time.Now(), Kind: req.Kind, Error: err.Error()}}
		}
		return nil
	}
}

func (m RootModel) handleResult(res tui.ActionResult) (tea.Model, tea.Cmd) {
	switch res.Kind {
	case tui.ActionStart:
		if !res.Ok {
			m.form = m.form.WithError(res.Error)
			m.setFlash("start failed: "+res.Error, true)
			return m, nil
		}
		m.formOpen = false
		if m.pending != nil {
			m.lastRun = m.pending
			m.pending = nil
		}
		// The feed may already have reported this run; don't wipe its steps.
		if m.state.Status != pipeline.StatusRunning || (res.RunID != "" && res.RunID != m.state.RunID) {
			m = m.setState(pipeline.Reset())
			m = m.apply(protocol.PipelineStarted{RunID: res.RunID, Config: m.lastRun})
		}
		m.setFlash(nonEmpty(res.Message, "pipeline started"), false)
		return m, nil

	case tui.ActionRefreshStatus:
		if res.Ok && res.State != nil {
			m = m.setState(pipeline.Merge(m.state, *res.State))
		}

	case tui.ActionFetchArtifact:
		m.artifacts = m.artifacts.WithResult(res)
		if res.Ok {
			return m, nil
		}
	}

	if res.Ok {
		m.setFlash(fmt.Sprintf("%s: %s", res.Kind, nonEmpty(res.Message, "ok")), false)
	} else {
		m.setFlash(fmt.Sprintf("%s failed: %s", res.Kind, res.Error), true)
	}
	return m, nil
}

func (m RootModel) apply(ev protocol.Event) RootModel {
	if started, ok := ev.(protocol.PipelineStarted); ok && started.Config != nil {
		cfg := *started.Config
		m.lastRun = &cfg
	}
	return m.setState(m.reducer.Reduce(m.state, ev))
}

func (m RootModel) setState(st pipeline.State) RootModel {
	if st.Equal(m.state) {
		return m
	}
	m.state = st
	m.dashboard = m.dashboard.WithState(st)
	if m.persist != nil {
		m.persist(st, m.lastRun)
	}
	return m
}

func (m *RootModel) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

func (m RootModel) resize() RootModel {
	bodyHeight := maxInt(5, m.height-6)
	m.dashboard = m.dashboard.WithSize(m.width, bodyHeight)
	m.form = m.form.WithWidth(m.width)
	m.artifacts = m.artifacts.WithSize(m.width, bodyHeight)
	m.events = m.events.WithSize(m.width, bodyHeight)
	return m
}

func (m RootModel) View() string {
	theme := styles.DefaultTheme()
	st := m.state

	status := string(st.Status)
	if step, _, ok := st.Running(); ok {
		status += " · " + step.Title()
	}
	connLabel := ""
	if m.conn.State == transport.StateConnecting {
		connLabel = "connecting"
	} else if m.conn.State != transport.StateConnected && m.conn.Attempts > 0 {
		connLabel = fmt.Sprintf("offline, retry %d", m.conn.Attempts)
	}
	header := widgets.NewHeader("leadctl").
		WithStatus(styles.RunIcon(st.Status), status, theme.RunStyle(st.Status)).
		WithConnection(m.conn.State == transport.StateConnected, connLabel).
		WithElapsed(elapsed(st)).
		WithWidth(m.width)

	var body string
	switch m.active {
	case ViewArtifacts:
		body = m.artifacts.View()
	case ViewEvents:
		body = m.events.View()
	default:
		body = m.dashboard.View()
		if m.formOpen {
			body = lipgloss.JoinVertical(lipgloss.Left, m.form.View(), body)
		}
	}

	footer := widgets.NewFooter(m.keybinds()).
		WithFlash(m.flash, m.flashErr).
		WithWidth(m.width)

	return lipgloss.JoinVertical(lipgloss.Left, header.Render(), body, footer.Render())
}

func (m RootModel) keybinds() []widgets.Keybind {
	switch {
	case m.formOpen:
		return []widgets.Keybind{{Key: "enter", Label: "start"}, {Key: "esc", Label: "cancel"}}
	case m.active == ViewDashboard:
		return []widgets.Keybind{
			{Key: "n", Label: "new run"},
			{Key: "s", Label: "stop"},
			{Key: "x", Label: "reset"},
			{Key: "c", Label: "reconnect"},
			{Key: "r", Label: "refresh"},
			{Key: "a", Label: "artifacts"},
			{Key: "tab", Label: "view"},
			{Key: "q", Label: "quit"},
		}
	default:
		return []widgets.Keybind{{Key: "esc", Label: "dashboard"}, {Key: "tab", Label: "view"}, {Key: "q", Label: "quit"}}
	}
}

func elapsed(st pipeline.State) time.Duration {
	if st.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if st.CompletedAt != nil {
		end = *st.CompletedAt
	}
	return end.Sub(*st.StartedAt)
}

func nextView(cur ViewID, dir int) ViewID {
	for i, v := range viewOrder {
		if v == cur {
			return viewOrder[(i+dir+len(viewOrder))%len(viewOrder)]
		}
	}
	return ViewDashboard
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
