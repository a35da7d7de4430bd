package models

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/leadctl/pkg/tui"
	"github.com/go-go-golems/leadctl/pkg/tui/styles"
	"github.com/go-go-golems/leadctl/pkg/tui/widgets"
)

// DefaultEventLogSize bounds the number of lines kept in memory.
const DefaultEventLogSize = 500

// logSources is the cycle order of the source filter; "" shows everything.
var logSources = []string{"", tui.LogSourceFeed, tui.LogSourceTransport, tui.LogSourceAction}

// EventLogModel is the scrollback of feed events, connection changes and
// action outcomes. Debug lines (per-step progress echoes) are hidden until
// toggled on.
type EventLogModel struct {
	max     int
	entries []tui.EventLogEntry

	showDebug bool
	source    int
	filter    string

	searching bool
	search    textinput.Model

	width int
	vp    viewport.Model
}

func NewEventLogModel() EventLogModel {
	search := textinput.New()
	search.Placeholder = "text or step"
	search.Prompt = "/ "
	search.CharLimit = 100
	return EventLogModel{max: DefaultEventLogSize, search: search, vp: viewport.New(0, 0)}
}

// Searching reports whether the filter input has focus; the root model must
// not interpret keys while it does.
func (m EventLogModel) Searching() bool { return m.searching }

func (m EventLogModel) Len() int { return len(m.entries) }

func (m EventLogModel) WithSize(width, height int) EventLogModel {
	m.width = width
	m.vp.Width = maxInt(0, width)
	m.vp.Height = maxInt(3, height-4)
	return m.render(false)
}

func (m EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.searching {
		switch k.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			return m, nil
		case "enter":
			m.searching = false
			m.search.Blur()
			m.filter = strings.ToLower(strings.TrimSpace(m.search.Value()))
			return m.render(true), nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(k)
		return m, cmd
	}

	switch k.String() {
	case "/":
		m.searching = true
		m.search.SetValue(m.filter)
		m.search.CursorEnd()
		m.search.Focus()
		return m, nil
	case "ctrl+l":
		m.filter = ""
		m.search.SetValue("")
		return m.render(true), nil
	case "f":
		m.source = (m.source + 1) % len(logSources)
		return m.render(true), nil
	case "d":
		m.showDebug = !m.showDebug
		return m.render(true), nil
	case "c":
		m.entries = nil
		return m.render(true), nil
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(k)
	return m, cmd
}

func (m EventLogModel) Append(e tui.EventLogEntry) EventLogModel {
	if e.Level == "" {
		e.Level = tui.LogLevelInfo
	}
	m.entries = append(m.entries, e)
	if m.max > 0 && len(m.entries) > m.max {
		m.entries = append([]tui.EventLogEntry(nil), m.entries[len(m.entries)-m.max:]...)
	}
	return m.render(true)
}

func (m EventLogModel) View() string {
	theme := styles.DefaultTheme()

	hints := "[/] filter  [f] source  [d] progress  [c] clear"
	var scope []string
	if src := logSources[m.source]; src != "" {
		scope = append(scope, "source="+src)
	}
	if m.filter != "" {
		scope = append(scope, fmt.Sprintf("filter=%q", m.filter))
	}
	if len(scope) > 0 {
		hints = strings.Join(scope, " ") + "  " + hints
	}

	box := widgets.NewBox(fmt.Sprintf("Events (%d)", len(m.entries))).WithTitleRight(hints)
	if len(m.entries) == 0 {
		box = box.WithContent(theme.TitleMuted.Render("(no events yet)")).WithSize(m.width, 5)
	} else {
		box = box.WithContent(m.vp.View()).WithSize(m.width, m.vp.Height+3)
	}

	if m.searching {
		return m.search.View() + "\n" + box.Render()
	}
	return box.Render()
}

func (m EventLogModel) render(follow bool) EventLogModel {
	theme := styles.DefaultTheme()

	var b strings.Builder
	for _, e := range m.entries {
		if !m.visible(e) {
			continue
		}
		style := theme.TitleMuted
		switch e.Level {
		case tui.LogLevelError:
			style = theme.StatusDead
		case tui.LogLevelWarn:
			style = theme.StatusWarning
		}
		source := e.Source
		if source == "" {
			source = "system"
		}
		fmt.Fprintf(&b, "%s %s %s %s\n",
			style.Render(styles.LogLevelIcon(string(e.Level))),
			theme.TitleMuted.Render(e.At.Format("15:04:05")),
			theme.TitleMuted.Render(fmt.Sprintf("%-11s", "["+source+"]")),
			style.Render(e.Text),
		)
	}
	m.vp.SetContent(b.String())
	if follow {
		m.vp.GotoBottom()
	}
	return m
}

func (m EventLogModel) visible(e tui.EventLogEntry) bool {
	if e.Level == tui.LogLevelDebug && !m.showDebug {
		return false
	}
	if src := logSources[m.source]; src != "" && e.Source != src {
		return false
	}
	if m.filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Text), m.filter) || strings.Contains(strings.ToLower(e.Source), m.filter)
}
