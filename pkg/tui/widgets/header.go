package widgets

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/leadctl/pkg/tui/styles"
)

// Keybind represents a keybinding hint.
type Keybind struct {
	Key   string
	Label string
}

// Header renders a styled title bar with run status, feed connection and
// elapsed run time.
type Header struct {
	Title       string
	Status      string
	StatusIcon  string
	StatusStyle lipgloss.Style
	Connected   bool
	Connection  string
	Elapsed     time.Duration
	Width       int
	Keybinds    []Keybind
	theme       styles.Theme
}

// NewHeader creates a new header.
func NewHeader(title string) Header {
	return Header{
		Title: title,
		theme: styles.DefaultTheme(),
	}
}

// WithStatus sets the status text, icon and the style used to render them.
func (h Header) WithStatus(icon, status string, style lipgloss.Style) Header {
	h.StatusIcon = icon
	h.Status = status
	h.StatusStyle = style
	return h
}

// WithConnection sets the feed indicator. label overrides the default
// "live"/"offline" text, e.g. "reconnecting 2/5".
func (h Header) WithConnection(connected bool, label string) Header {
	h.Connected = connected
	h.Connection = label
	return h
}

func (h Header) WithElapsed(d time.Duration) Header {
	h.Elapsed = d
	return h
}

// WithKeybinds sets the keybinding hints.
func (h Header) WithKeybinds(kb []Keybind) Header {
	h.Keybinds = kb
	return h
}

// WithWidth sets the header width.
func (h Header) WithWidth(w int) Header {
	h.Width = w
	return h
}

// Render returns the styled header as a string.
func (h Header) Render() string {
	theme := h.theme

	// Title on the left
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Text).
		Background(theme.Primary).
		Padding(0, 1)
	titlePart := titleStyle.Render(h.Title)

	// Status in the middle
	statusPart := ""
	if h.Status != "" {
		icon := h.StatusIcon
		if icon == "" {
			icon = styles.IconBullet
		}
		statusPart = h.StatusStyle.Render(icon) + " " + lipgloss.NewStyle().Foreground(theme.Text).Render(h.Status)
	}

	conn := h.Connection
	connStyle := theme.StatusDead
	if h.Connected {
		connStyle = theme.StatusRunning
	}
	if conn == "" {
		conn = "offline"
		if h.Connected {
			conn = "live"
		}
	}
	connPart := connStyle.Render(styles.ConnectionIcon(h.Connected)) + " " + theme.TitleMuted.Render(conn)

	// Elapsed on the right
	elapsedPart := ""
	if h.Elapsed > 0 {
		elapsedPart = theme.TitleMuted.Render(fmt.Sprintf("Elapsed: %s", formatDuration(h.Elapsed)))
	}

	// Keybinds
	keybindsPart := ""
	if len(h.Keybinds) > 0 {
		keybindsPart = RenderKeybinds(h.Keybinds, theme)
	}

	// Layout: [Title] [Status] [Feed]           [Elapsed] [Keybinds]
	leftParts := titlePart
	if statusPart != "" {
		leftParts = lipgloss.JoinHorizontal(lipgloss.Center, leftParts, "  ", statusPart)
	}
	leftParts = lipgloss.JoinHorizontal(lipgloss.Center, leftParts, "  ", connPart)

	rightParts := ""
	if elapsedPart != "" {
		rightParts = elapsedPart
	}
	if keybindsPart != "" {
		if rightParts != "" {
			rightParts = lipgloss.JoinHorizontal(lipgloss.Center, rightParts, "  ", keybindsPart)
		} else {
			rightParts = keybindsPart
		}
	}

	// Calculate spacing
	leftWidth := lipgloss.Width(leftParts)
	rightWidth := lipgloss.Width(rightParts)
	spacing := h.Width - leftWidth - rightWidth
	if spacing < 1 {
		spacing = 1
	}

	spacer := lipgloss.NewStyle().Width(spacing).Render("")
	headerLine := lipgloss.JoinHorizontal(lipgloss.Top, leftParts, spacer, rightParts)

	// Add separator line - generate exactly the right number of box-drawing chars
	sepWidth := h.Width
	if sepWidth <= 0 {
		sepWidth = 80
	}
	separator := lipgloss.NewStyle().
		Foreground(theme.Muted).
		Render(strings.Repeat("━", sepWidth))

	return lipgloss.JoinVertical(lipgloss.Left, headerLine, separator)
}

// RenderKeybinds renders a list of keybindings.
func RenderKeybinds(keybinds []Keybind, theme styles.Theme) string {
	parts := make([]string, 0, len(keybinds)*2)
	for i, kb := range keybinds {
		if i > 0 {
			parts = append(parts, theme.TitleMuted.Render(" "))
		}
		parts = append(parts, theme.KeybindKey.Render("["+kb.Key+"]"))
		parts = append(parts, theme.Keybind.Render(" "+kb.Label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func formatMillis(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return formatDuration(time.Duration(ms) * time.Millisecond)
}
