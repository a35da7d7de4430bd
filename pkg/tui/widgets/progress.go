package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/tui/styles"
)

const (
	filledCell = "█"
	emptyCell  = "░"
)

// StepBar is the bracketed ten-cell bar shown in a step's table row, colored
// by the step's status.
type StepBar struct {
	step  pipeline.StepState
	width int
}

func NewStepBar(st pipeline.StepState) StepBar {
	return StepBar{step: st, width: 10}
}

func (b StepBar) Render() string {
	pct := stepPercent(b.step)
	style := styles.DefaultTheme().StepStyle(b.step.Status)
	return fmt.Sprintf("[%s] %3d%%", cells(b.width, pct, style), pct)
}

// PipelineBar renders a run as one segment per step, in pipeline order, each
// segment filled by that step's progress. The aggregate percentage follows.
type PipelineBar struct {
	state pipeline.State
	width int
}

func NewPipelineBar(st pipeline.State) PipelineBar {
	return PipelineBar{state: st, width: 6*4 + 5}
}

// WithWidth sets the width of the segments including the gaps between them.
func (b PipelineBar) WithWidth(width int) PipelineBar {
	b.width = width
	return b
}

func (b PipelineBar) Render() string {
	theme := styles.DefaultTheme()
	n := len(protocol.Steps)
	seg := maxInt(2, (b.width-(n-1))/n)

	parts := make([]string, 0, n)
	for _, step := range protocol.Steps {
		st := b.state.Step(step)
		parts = append(parts, cells(seg, stepPercent(st), theme.StepStyle(st.Status)))
	}
	return fmt.Sprintf("%s %5.1f%%", strings.Join(parts, " "), pipeline.OverallProgress(b.state))
}

func stepPercent(st pipeline.StepState) int {
	if st.Status == pipeline.StepCompleted {
		return 100
	}
	if st.Progress < 0 {
		return 0
	}
	if st.Progress > 100 {
		return 100
	}
	return st.Progress
}

func cells(width, percent int, style lipgloss.Style) string {
	filled := width * percent / 100
	return style.Render(strings.Repeat(filledCell, filled)) + strings.Repeat(emptyCell, width-filled)
}
