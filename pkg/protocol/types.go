package protocol

import "encoding/json"

type EventType string

const (
	EventConnected         EventType = "connected"
	EventPipelineStarted   EventType = "pipeline_started"
	EventStepStarted       EventType = "step_started"
	EventStepProgress      EventType = "step_progress"
	EventStepCompleted     EventType = "step_completed"
	EventStepFailed        EventType = "step_failed"
	EventPipelineCompleted EventType = "pipeline_completed"
	EventPipelineFailed    EventType = "pipeline_failed"

	// Emitted by the runner but not tracked by the state reducer.
	EventStepSkipped     EventType = "step_skipped"
	EventPipelineStopped EventType = "pipeline_stopped"
	EventPong            EventType = "pong"
)

// Client-to-server frame types.
const (
	FramePing = "ping"
)

// Event is one inbound frame of the pipeline feed. The concrete type is one
// of the structs below; Unknown covers types this client does not model.
type Event interface {
	EventType() EventType
}

type Connected struct {
	ClientID string `json:"client_id"`
}

type RunConfig struct {
	Niche    string `json:"niche"`
	MaxSites int    `json:"max_sites"`
}

type PipelineStarted struct {
	RunID  string     `json:"run_id"`
	Steps  []string   `json:"steps,omitempty"`
	Config *RunConfig `json:"config,omitempty"`
}

// Step fields are kept as raw strings: validation is the reducer's job.
type StepStarted struct {
	Step  string `json:"step"`
	RunID string `json:"run_id,omitempty"`
}

type StepProgress struct {
	Step       string  `json:"step"`
	RunID      string  `json:"run_id,omitempty"`
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Message    string  `json:"message"`
}

type StepCompleted struct {
	Step           string `json:"step"`
	RunID          string `json:"run_id,omitempty"`
	Duration       int64  `json:"duration"`
	ItemsProcessed int    `json:"items_processed"`
}

type StepFailed struct {
	Step  string `json:"step"`
	RunID string `json:"run_id,omitempty"`
	Error string `json:"error"`
}

type Summary struct {
	TotalDuration  int64 `json:"total_duration"`
	StepsCompleted int   `json:"steps_completed"`
	TotalSteps     int   `json:"total_steps"`
	SitesProcessed int   `json:"sites_processed"`
}

type PipelineCompleted struct {
	RunID   string  `json:"run_id,omitempty"`
	Summary Summary `json:"summary"`
}

type PipelineFailed struct {
	RunID string `json:"run_id,omitempty"`
	Error string `json:"error"`
}

// Unknown is any well-formed frame whose type is not one of the variants
// above (step_skipped, pipeline_stopped, pong, or future additions).
type Unknown struct {
	Type EventType       `json:"type"`
	Raw  json.RawMessage `json:"raw,omitempty"`
}

func (Connected) EventType() EventType         { return EventConnected }
func (PipelineStarted) EventType() EventType   { return EventPipelineStarted }
func (StepStarted) EventType() EventType       { return EventStepStarted }
func (StepProgress) EventType() EventType      { return EventStepProgress }
func (StepCompleted) EventType() EventType     { return EventStepCompleted }
func (StepFailed) EventType() EventType        { return EventStepFailed }
func (PipelineCompleted) EventType() EventType { return EventPipelineCompleted }
func (PipelineFailed) EventType() EventType    { return EventPipelineFailed }
func (u Unknown) EventType() EventType         { return u.Type }

// Ping is the keepalive frame the runner answers with pong.
type Ping struct {
	Type string `json:"type"`
}

func NewPing() Ping { return Ping{Type: FramePing} }
