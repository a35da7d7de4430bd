package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/leadctl/pkg/tui/styles"
)

// Box is a bordered panel with a title on the left and key hints on the
// right of its first line.
type Box struct {
	title   string
	hints   string
	content string
	width   int
	height  int
	border  lipgloss.Style
}

func NewBox(title string) Box {
	return Box{title: title, border: styles.DefaultTheme().Border}
}

func (b Box) WithContent(content string) Box {
	b.content = content
	return b
}

// WithTitleRight sets the hint text. It is dropped when it would collide
// with the title.
func (b Box) WithTitleRight(hints string) Box {
	b.hints = hints
	return b
}

// WithSize sets the outer dimensions; zero leaves that axis to the content.
func (b Box) WithSize(width, height int) Box {
	b.width, b.height = width, height
	return b
}

// WithAccent colors the border, e.g. red for a failed run.
func (b Box) WithAccent(c lipgloss.Color) Box {
	b.border = b.border.BorderForeground(c)
	return b
}

func (b Box) Render() string {
	inner := maxInt(0, b.width-2)
	body := b.content
	lines := 0
	if head := b.headline(inner); head != "" {
		body = head + "\n" + body
		lines = 1
	}

	style := b.border
	if b.width > 0 {
		style = style.Width(inner)
	}
	if b.height > 0 {
		style = style.Height(maxInt(0, b.height-2-lines))
	}
	return style.Render(body)
}

func (b Box) headline(inner int) string {
	theme := styles.DefaultTheme()
	left, right := "", ""
	if b.title != "" {
		left = theme.Title.Render(b.title)
	}
	if b.hints != "" {
		right = theme.TitleMuted.Render(b.hints)
	}
	if inner > 0 && lipgloss.Width(left)+lipgloss.Width(right) >= inner {
		right = ""
	}
	if left == "" && right == "" {
		return ""
	}
	if right == "" {
		return left
	}
	gap := maxInt(1, inner-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}
