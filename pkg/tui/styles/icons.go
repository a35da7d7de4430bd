package styles

import "github.com/go-go-golems/leadctl/pkg/pipeline"

// Status icons
const (
	IconSuccess   = "✓"
	IconError     = "✗"
	IconWarning   = "⚠"
	IconInfo      = "ℹ"
	IconRunning   = "▶"
	IconPending   = "○"
	IconIdle      = "·"
	IconPaused    = "⏸"
	IconBullet    = "•"
	IconConnected = "●"
	IconOffline   = "○"
)

// StepIcon returns the row icon for a step status.
func StepIcon(s pipeline.StepStatus) string {
	switch s {
	case pipeline.StepCompleted:
		return IconSuccess
	case pipeline.StepFailed:
		return IconError
	case pipeline.StepRunning:
		return IconRunning
	case pipeline.StepPending:
		return IconPending
	default:
		return IconIdle
	}
}

// RunIcon returns the header icon for the overall pipeline status.
func RunIcon(s pipeline.Status) string {
	switch s {
	case pipeline.StatusRunning:
		return IconRunning
	case pipeline.StatusCompleted:
		return IconSuccess
	case pipeline.StatusFailed:
		return IconError
	case pipeline.StatusPaused:
		return IconPaused
	default:
		return IconIdle
	}
}

// LogLevelIcon returns the appropriate icon for a log level.
func LogLevelIcon(level string) string {
	switch level {
	case "error", "ERROR":
		return IconError
	case "warn", "WARN", "warning", "WARNING":
		return IconWarning
	case "info", "INFO":
		return IconInfo
	default:
		return IconBullet
	}
}

// ConnectionIcon is filled while the feed is live.
func ConnectionIcon(connected bool) string {
	if connected {
		return IconConnected
	}
	return IconOffline
}
