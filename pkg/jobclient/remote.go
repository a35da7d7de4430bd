package jobclient

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/pkg/errors"
)

// RemoteStep and RemoteState mirror GET /api/pipeline/status.
type RemoteStep struct {
	Status         string  `json:"status"`
	Progress       int     `json:"progress"`
	Message        *string `json:"message"`
	Error          *string `json:"error"`
	ItemsProcessed int     `json:"items_processed"`
	ItemsTotal     int     `json:"items_total"`
	StartedAt      *string `json:"started_at"`
	CompletedAt    *string `json:"completed_at"`
}

type RemoteState struct {
	Status      string                `json:"status"`
	CurrentStep *string               `json:"current_step"`
	RunID       *string               `json:"run_id"`
	Steps       map[string]RemoteStep `json:"steps"`
	StartedAt   *string               `json:"started_at"`
	CompletedAt *string               `json:"completed_at"`
	Error       *string               `json:"error"`
}

// ToState converts the runner snapshot into a client snapshot. Unknown step
// keys are dropped and missing ones come back idle; a skipped step counts as
// completed.
func (r RemoteState) ToState() pipeline.State {
	st := pipeline.Initial()

	switch pipeline.Status(r.Status) {
	case pipeline.StatusRunning, pipeline.StatusCompleted, pipeline.StatusFailed, pipeline.StatusPaused:
		st.Status = pipeline.Status(r.Status)
	default:
		st.Status = pipeline.StatusIdle
	}

	st.RunID = deref(r.RunID)
	st.StartedAt = parseOptional(r.StartedAt)
	st.CompletedAt = parseOptional(r.CompletedAt)
	if st.Status == pipeline.StatusFailed {
		st.Error = deref(r.Error)
	}

	if r.CurrentStep != nil {
		if step, err := protocol.ValidateStep(*r.CurrentStep); err == nil {
			st.CurrentStep = &step
		}
	}

	for key, rs := range r.Steps {
		step, err := protocol.ValidateStep(key)
		if err != nil {
			continue
		}
		st.Steps[step] = rs.toStepState()
	}

	if st.Status != pipeline.StatusRunning {
		st.CurrentStep = nil
	}
	return st.Normalize()
}

func (rs RemoteStep) toStepState() pipeline.StepState {
	ss := pipeline.StepState{
		Progress:    clamp(rs.Progress),
		Message:     deref(rs.Message),
		StartedAt:   parseOptional(rs.StartedAt),
		CompletedAt: parseOptional(rs.CompletedAt),
	}
	switch strings.ToLower(rs.Status) {
	case "pending":
		ss.Status = pipeline.StepPending
	case "running":
		ss.Status = pipeline.StepRunning
	case "completed", "skipped":
		ss.Status = pipeline.StepCompleted
		ss.Progress = 100
		items := rs.ItemsProcessed
		ss.ItemsProcessed = &items
		if ss.StartedAt != nil && ss.CompletedAt != nil {
			ms := ss.CompletedAt.Sub(*ss.StartedAt).Milliseconds()
			ss.DurationMs = &ms
		}
	case "failed":
		ss.Status = pipeline.StepFailed
		ss.Error = deref(rs.Error)
	default:
		ss.Status = pipeline.StepIdle
	}
	return ss
}

// ParseTime reads the runner's timestamps, which are Python isoformat strings
// with or without an offset.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse timestamp %q", s)
	}
	return t, nil
}

func parseOptional(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := ParseTime(*s)
	if err != nil {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
