package pipeline

import (
	"math"
	"time"

	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Reducer maps (state, event) to the next state. It never panics and never
// blocks; invalid input returns the state unchanged and logs a warning.
type Reducer struct {
	Logger *zerolog.Logger
	Now    func() time.Time
}

var defaultReducer = Reducer{}

// Reduce applies ev using the global logger and wall clock.
func Reduce(st State, ev protocol.Event) State {
	return defaultReducer.Reduce(st, ev)
}

// Reset discards everything and returns the idle snapshot.
func Reset() State {
	return Initial()
}

func (r Reducer) Reduce(st State, ev protocol.Event) State {
	switch e := ev.(type) {
	case protocol.Connected:
		return st

	case protocol.PipelineStarted:
		now := r.now()
		next := st.clone()
		next.Status = StatusRunning
		next.RunID = e.RunID
		next.StartedAt = &now
		next.CompletedAt = nil
		next.Error = ""
		next.Summary = nil
		return next

	case protocol.StepStarted:
		step, ok := r.validStep(e.Step, e.EventType())
		if !ok {
			return st
		}
		now := r.now()
		ss := st.Step(step)
		ss.Status = StepRunning
		ss.Progress = 0
		ss.Message = ""
		ss.Error = ""
		ss.StartedAt = &now
		next := st.withStep(step, ss)
		next.CurrentStep = &step
		return next

	case protocol.StepProgress:
		step, ok := r.validStep(e.Step, e.EventType())
		if !ok {
			return st
		}
		ss := st.Step(step)
		ss.Progress = clampPercent(e.Percentage)
		ss.Message = e.Message
		return st.withStep(step, ss)

	case protocol.StepCompleted:
		step, ok := r.validStep(e.Step, e.EventType())
		if !ok {
			return st
		}
		now := r.now()
		duration := e.Duration
		items := e.ItemsProcessed
		ss := st.Step(step)
		ss.Status = StepCompleted
		ss.Progress = 100
		ss.CompletedAt = &now
		ss.DurationMs = &duration
		ss.ItemsProcessed = &items
		return st.withStep(step, ss)

	case protocol.StepFailed:
		step, ok := r.validStep(e.Step, e.EventType())
		if !ok {
			return st
		}
		ss := st.Step(step)
		ss.Status = StepFailed
		ss.Error = e.Error
		return st.withStep(step, ss)

	case protocol.PipelineCompleted:
		now := r.now()
		summary := e.Summary
		next := st.clone()
		next.Status = StatusCompleted
		next.CurrentStep = nil
		next.CompletedAt = &now
		next.Summary = &summary
		next.Error = ""
		return next

	case protocol.PipelineFailed:
		next := st.clone()
		next.Status = StatusFailed
		next.CurrentStep = nil
		next.Error = e.Error
		next.Summary = nil
		return next

	default:
		if ev != nil {
			r.logger().Debug().Str("type", string(ev.EventType())).Msg("ignoring unhandled pipeline event")
		}
		return st
	}
}

func (r Reducer) validStep(raw string, typ protocol.EventType) (protocol.Step, bool) {
	step, err := protocol.ValidateStep(raw)
	if err != nil {
		r.logger().Warn().Str("event", string(typ)).Str("step", raw).Msg("ignoring event for invalid pipeline step")
		return "", false
	}
	return step, true
}

func (r Reducer) logger() *zerolog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return &log.Logger
}

func (r Reducer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func clampPercent(p float64) int {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(math.Round(p))
}
