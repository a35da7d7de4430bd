package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/leadctl/pkg/jobclient"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/tui"
	"github.com/go-go-golems/leadctl/pkg/tui/styles"
	"github.com/go-go-golems/leadctl/pkg/tui/widgets"
)

// artifactSteps are the steps with a persisted output, in key order 1-5.
var artifactSteps = func() []protocol.Step {
	var out []protocol.Step
	for _, s := range protocol.Steps {
		if jobclient.HasArtifact(s) {
			out = append(out, s)
		}
	}
	return out
}()

type artifactEntry struct {
	loading bool
	lines   []string
	err     string
}

type ArtifactsModel struct {
	width  int
	height int

	selected protocol.Step
	entries  map[protocol.Step]artifactEntry

	vp viewport.Model
}

func NewArtifactsModel() ArtifactsModel {
	return ArtifactsModel{
		selected: artifactSteps[0],
		entries:  map[protocol.Step]artifactEntry{},
		vp:       viewport.New(0, 0),
	}
}

func (m ArtifactsModel) WithSize(width, height int) ArtifactsModel {
	m.width, m.height = width, height
	m.vp.Width = maxInt(0, width-2)
	m.vp.Height = maxInt(3, height-4)
	return m.refresh()
}

func (m ArtifactsModel) Selected() protocol.Step { return m.selected }

// Fetch marks step as loading and returns the action that loads it.
func (m ArtifactsModel) Fetch(step protocol.Step) (ArtifactsModel, tea.Cmd) {
	m.selected = step
	e := m.entries[step]
	e.loading = true
	e.err = ""
	m.entries[step] = e
	m = m.refresh()
	req := tui.ActionRequest{Kind: tui.ActionFetchArtifact, Step: step}
	return m, func() tea.Msg { return tui.ActionRequestMsg{Request: req} }
}

func (m ArtifactsModel) WithResult(res tui.ActionResult) ArtifactsModel {
	if res.Kind != tui.ActionFetchArtifact || res.Step == "" {
		return m
	}
	e := artifactEntry{}
	if !res.Ok {
		e.err = res.Error
	} else {
		lines, err := jobclient.SummarizeArtifact(res.Step, json.RawMessage(res.Artifact))
		if err != nil {
			e.err = err.Error()
		}
		e.lines = lines
	}
	m.entries[res.Step] = e
	return m.refresh()
}

func (m ArtifactsModel) Update(msg tea.Msg) (ArtifactsModel, tea.Cmd) {
	v, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	key := v.String()
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		i := int(key[0] - '1')
		if i < len(artifactSteps) {
			return m.Fetch(artifactSteps[i])
		}
		return m, nil
	}
	if key == "r" {
		return m.Fetch(m.selected)
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(v)
	return m, cmd
}

func (m ArtifactsModel) refresh() ArtifactsModel {
	theme := styles.DefaultTheme()
	e, ok := m.entries[m.selected]
	switch {
	case !ok:
		m.vp.SetContent(theme.TitleMuted.Render("(not loaded, press r)"))
	case e.loading:
		m.vp.SetContent(theme.TitleMuted.Render("loading…"))
	case e.err != "":
		m.vp.SetContent(theme.StatusDead.Render(styles.IconError + " " + e.err))
	default:
		m.vp.SetContent(strings.Join(e.lines, "\n"))
	}
	m.vp.GotoTop()
	return m
}

func (m ArtifactsModel) View() string {
	tabs := make([]string, 0, len(artifactSteps))
	theme := styles.DefaultTheme()
	for i, s := range artifactSteps {
		label := fmt.Sprintf("%d %s", i+1, s.Title())
		if s == m.selected {
			tabs = append(tabs, theme.KeybindKey.Render("["+label+"]"))
		} else {
			tabs = append(tabs, theme.Keybind.Render(" "+label+" "))
		}
	}

	return widgets.NewBox("Artifacts: "+m.selected.Title()).
		WithTitleRight("[1-5] step  [r] reload  [↑/↓] scroll").
		WithContent(strings.Join(tabs, " ") + "\n\n" + m.vp.View()).
		WithSize(maxInt(m.width, 60), m.vp.Height+5).
		Render()
}
