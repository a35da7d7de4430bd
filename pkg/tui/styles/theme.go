package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/leadctl/pkg/pipeline"
)

// Theme defines the color palette and base styles for the TUI.
type Theme struct {
	// Colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
	TextDim   lipgloss.Color

	// Base styles
	Border        lipgloss.Style
	Title         lipgloss.Style
	TitleMuted    lipgloss.Style
	Selected      lipgloss.Style
	Keybind       lipgloss.Style
	KeybindKey    lipgloss.Style
	StatusRunning lipgloss.Style
	StatusDead    lipgloss.Style
	StatusPending lipgloss.Style
	StatusWarning lipgloss.Style
	Progress      lipgloss.Style
}

// DefaultTheme returns the default leadctl TUI theme.
func DefaultTheme() Theme {
	primary := lipgloss.Color("#0F766E")   // Teal
	secondary := lipgloss.Color("#06B6D4") // Cyan
	success := lipgloss.Color("#22C55E")   // Green
	warning := lipgloss.Color("#EAB308")   // Yellow
	errorC := lipgloss.Color("#EF4444")    // Red
	muted := lipgloss.Color("#6B7280")     // Gray
	text := lipgloss.Color("#F9FAFB")      // White
	textDim := lipgloss.Color("#9CA3AF")   // Light gray

	return Theme{
		Primary:   primary,
		Secondary: secondary,
		Success:   success,
		Warning:   warning,
		Error:     errorC,
		Muted:     muted,
		Text:      text,
		TextDim:   textDim,

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(text),

		TitleMuted: lipgloss.NewStyle().
			Foreground(textDim),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(text).
			Background(lipgloss.Color("#374151")), // Dark gray background

		Keybind: lipgloss.NewStyle().
			Foreground(textDim),

		KeybindKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(secondary),

		StatusRunning: lipgloss.NewStyle().
			Foreground(success),

		StatusDead: lipgloss.NewStyle().
			Foreground(errorC),

		StatusPending: lipgloss.NewStyle().
			Foreground(muted),

		StatusWarning: lipgloss.NewStyle().
			Foreground(warning),

		Progress: lipgloss.NewStyle().
			Foreground(secondary),
	}
}

// DefaultStyles returns the default theme for convenience.
var DefaultStyles = DefaultTheme()


// StepStyle picks the foreground used for a step row's icon and status text.
func (t Theme) StepStyle(s pipeline.StepStatus) lipgloss.Style {
	switch s {
	case pipeline.StepCompleted:
		return t.StatusRunning
	case pipeline.StepFailed:
		return t.StatusDead
	case pipeline.StepRunning:
		return t.Progress
	default:
		return t.StatusPending
	}
}

func (t Theme) RunStyle(s pipeline.Status) lipgloss.Style {
	switch s {
	case pipeline.StatusCompleted:
		return t.StatusRunning
	case pipeline.StatusFailed:
		return t.StatusDead
	case pipeline.StatusRunning:
		return t.Progress
	case pipeline.StatusPaused:
		return t.StatusWarning
	default:
		return t.StatusPending
	}
}
