package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/leadctl/pkg/tui/styles"
)

// Footer renders a styled keybindings bar with an optional flash line above
// it for the latest action outcome.
type Footer struct {
	Keybinds []Keybind
	Flash    string
	FlashErr bool
	Width    int
	theme    styles.Theme
}

// NewFooter creates a new footer.
func NewFooter(keybinds []Keybind) Footer {
	return Footer{
		Keybinds: keybinds,
		theme:    styles.DefaultTheme(),
	}
}

func (f Footer) WithFlash(text string, isErr bool) Footer {
	f.Flash = text
	f.FlashErr = isErr
	return f
}

// WithWidth sets the footer width.
func (f Footer) WithWidth(w int) Footer {
	f.Width = w
	return f
}

// Render returns the styled footer as a string.
func (f Footer) Render() string {
	theme := f.theme

	// Separator line - generate exactly the right number of box-drawing chars
	sepWidth := f.Width
	if sepWidth <= 0 {
		sepWidth = 80
	}
	separator := lipgloss.NewStyle().
		Foreground(theme.Muted).
		Render(strings.Repeat("━", sepWidth))

	// Keybinds line
	keybindsLine := RenderKeybinds(f.Keybinds, theme)

	// Center the keybinds and pad to full width
	keybindsWidth := lipgloss.Width(keybindsLine)
	padding := (f.Width - keybindsWidth) / 2
	if padding < 0 {
		padding = 0
	}
	paddedKeybinds := lipgloss.NewStyle().
		PaddingLeft(padding).
		Width(f.Width).
		Render(keybindsLine)

	if f.Flash == "" {
		return lipgloss.JoinVertical(lipgloss.Left, separator, paddedKeybinds)
	}
	flashStyle := theme.TitleMuted
	if f.FlashErr {
		flashStyle = theme.StatusDead
	}
	flash := flashStyle.Render(Truncate(f.Flash, maxInt(f.Width, 20)))
	return lipgloss.JoinVertical(lipgloss.Left, flash, separator, paddedKeybinds)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
