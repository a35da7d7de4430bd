package pipeline

import (
	"reflect"
	"time"

	"github.com/go-go-golems/leadctl/pkg/protocol"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type StepStatus string

const (
	StepIdle      StepStatus = "idle"
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

type StepState struct {
	Status      StepStatus `json:"status"`
	Progress    int        `json:"progress"` // 0-100
	Message     string     `json:"message"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Set only on completion.
	DurationMs     *int64 `json:"duration_ms,omitempty"`
	ItemsProcessed *int   `json:"items_processed,omitempty"`

	// Set only on failure.
	Error string `json:"error,omitempty"`
}

// State is an immutable snapshot of one pipeline run. Transitions always build
// a new State with a fresh Steps map; never write into a snapshot you received.
type State struct {
	Status      Status                      `json:"status"`
	CurrentStep *protocol.Step              `json:"current_step,omitempty"`
	Steps       map[protocol.Step]StepState `json:"steps"`
	RunID       string                      `json:"run_id,omitempty"`
	StartedAt   *time.Time                  `json:"started_at,omitempty"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
	Summary     *protocol.Summary           `json:"summary,omitempty"`
	Error       string                      `json:"error,omitempty"`
}

// Initial returns the idle snapshot with all six steps present.
func Initial() State {
	steps := make(map[protocol.Step]StepState, len(protocol.Steps))
	for _, s := range protocol.Steps {
		steps[s] = StepState{Status: StepIdle}
	}
	return State{Status: StatusIdle, Steps: steps}
}

// Step returns the entry for s; unknown steps yield the zero value.
func (s State) Step(step protocol.Step) StepState {
	return s.Steps[step]
}

// Running returns the step the run is executing, if any.
func (s State) Running() (protocol.Step, StepState, bool) {
	if s.CurrentStep == nil {
		return "", StepState{}, false
	}
	st, ok := s.Steps[*s.CurrentStep]
	if !ok || st.Status != StepRunning {
		return "", StepState{}, false
	}
	return *s.CurrentStep, st, true
}

func (s State) Equal(o State) bool {
	return reflect.DeepEqual(s, o)
}

// Normalize fills in any missing step entries, e.g. after loading an older
// snapshot from disk.
func (s State) Normalize() State {
	next := s.clone()
	for _, step := range protocol.Steps {
		if _, ok := next.Steps[step]; !ok {
			next.Steps[step] = StepState{Status: StepIdle}
		}
	}
	if next.Status == "" {
		next.Status = StatusIdle
	}
	return next
}

func (s State) clone() State {
	next := s
	next.Steps = make(map[protocol.Step]StepState, len(protocol.Steps))
	for k, v := range s.Steps {
		next.Steps[k] = v
	}
	return next
}

func (s State) withStep(step protocol.Step, st StepState) State {
	next := s.clone()
	next.Steps[step] = st
	return next
}
