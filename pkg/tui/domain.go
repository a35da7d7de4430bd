package tui

import (
	"encoding/json"
	"time"

	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/transport"
)

// FeedEvent is one decoded frame from the pipeline feed, re-encoded for the bus.
type FeedEvent struct {
	At    time.Time       `json:"at"`
	Frame json.RawMessage `json:"frame"`
}

func NewFeedEvent(at time.Time, ev protocol.Event) (FeedEvent, error) {
	frame, err := protocol.Encode(ev)
	if err != nil {
		return FeedEvent{}, err
	}
	return FeedEvent{At: at, Frame: frame}, nil
}

func (f FeedEvent) Event() (protocol.Event, error) {
	return protocol.Decode(f.Frame)
}

type ConnectionChanged struct {
	At       time.Time           `json:"at"`
	State    transport.ConnState `json:"state"`
	Error    string              `json:"error,omitempty"`
	Attempts int                 `json:"attempts,omitempty"`
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Event log sources.
const (
	LogSourceFeed      = "feed"
	LogSourceTransport = "transport"
	LogSourceAction    = "action"
)

type ActionLog struct {
	At    time.Time `json:"at"`
	Level LogLevel  `json:"level,omitempty"`
	Text  string    `json:"text"`
}

type EventLogEntry struct {
	At     time.Time `json:"at"`
	Source string    `json:"source"`
	Level  LogLevel  `json:"level"`
	Text   string    `json:"text"`
}

// ActionResult reports the outcome of an ActionRequest. Exactly one of
// Error or the kind-specific fields is meaningful.
type ActionResult struct {
	At    time.Time  `json:"at"`
	Kind  ActionKind `json:"kind"`
	Ok    bool       `json:"ok"`
	Error string     `json:"error,omitempty"`

	Message  string          `json:"message,omitempty"`
	RunID    string          `json:"run_id,omitempty"`
	Step     protocol.Step   `json:"step,omitempty"`
	Artifact json.RawMessage `json:"artifact,omitempty"`
	StoreURL string          `json:"store_url,omitempty"`
	State    *pipeline.State `json:"state,omitempty"`
}
