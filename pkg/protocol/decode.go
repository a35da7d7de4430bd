package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// wireFrame is a flat superset of every variant. The runner speaks
// snake_case; the camelCase spellings are accepted as well.
type wireFrame struct {
	Type EventType `json:"type"`

	ClientID      string `json:"client_id"`
	ClientIDCamel string `json:"clientId"`
	RunID         string `json:"run_id"`
	RunIDCamel    string `json:"runId"`

	Steps  []string   `json:"steps"`
	Config *RunConfig `json:"config"`

	Step       string  `json:"step"`
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Message    string  `json:"message"`

	Duration            int64 `json:"duration"`
	ItemsProcessed      *int  `json:"items_processed"`
	ItemsProcessedCamel *int  `json:"itemsProcessed"`

	Error   string       `json:"error"`
	Summary *wireSummary `json:"summary"`
}

type wireSummary struct {
	TotalDuration       *int64 `json:"total_duration"`
	TotalDurationCamel  *int64 `json:"totalDuration"`
	StepsCompleted      *int   `json:"steps_completed"`
	StepsCompletedCamel *int   `json:"stepsCompleted"`
	TotalSteps          *int   `json:"total_steps"`
	TotalStepsCamel     *int   `json:"totalSteps"`
	SitesProcessed      *int   `json:"sites_processed"`
	SitesProcessedCamel *int   `json:"sitesProcessed"`
}

// Decode parses one frame. It only fails on malformed JSON or a missing type;
// unrecognized types decode to Unknown.
func Decode(b []byte) (Event, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, errors.New("empty frame")
	}
	var f wireFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}
	if f.Type == "" {
		return nil, errors.New("frame has no type")
	}

	runID := firstString(f.RunID, f.RunIDCamel)

	switch f.Type {
	case EventConnected:
		return Connected{ClientID: firstString(f.ClientID, f.ClientIDCamel)}, nil
	case EventPipelineStarted:
		return PipelineStarted{RunID: runID, Steps: f.Steps, Config: f.Config}, nil
	case EventStepStarted:
		return StepStarted{Step: f.Step, RunID: runID}, nil
	case EventStepProgress:
		return StepProgress{
			Step:       f.Step,
			RunID:      runID,
			Current:    f.Current,
			Total:      f.Total,
			Percentage: f.Percentage,
			Message:    f.Message,
		}, nil
	case EventStepCompleted:
		return StepCompleted{
			Step:           f.Step,
			RunID:          runID,
			Duration:       f.Duration,
			ItemsProcessed: firstInt(f.ItemsProcessed, f.ItemsProcessedCamel),
		}, nil
	case EventStepFailed:
		return StepFailed{Step: f.Step, RunID: runID, Error: f.Error}, nil
	case EventPipelineCompleted:
		ev := PipelineCompleted{RunID: runID}
		if s := f.Summary; s != nil {
			ev.Summary = Summary{
				TotalDuration:  firstInt64(s.TotalDuration, s.TotalDurationCamel),
				StepsCompleted: firstInt(s.StepsCompleted, s.StepsCompletedCamel),
				TotalSteps:     firstInt(s.TotalSteps, s.TotalStepsCamel),
				SitesProcessed: firstInt(s.SitesProcessed, s.SitesProcessedCamel),
			}
		}
		return ev, nil
	case EventPipelineFailed:
		return PipelineFailed{RunID: runID, Error: f.Error}, nil
	default:
		raw := make(json.RawMessage, len(b))
		copy(raw, b)
		return Unknown{Type: f.Type, Raw: raw}, nil
	}
}

// Encode renders an event back into the snake_case wire form.
func Encode(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, errors.New("nil event")
	}
	if u, ok := ev.(Unknown); ok {
		if len(u.Raw) > 0 {
			return u.Raw, nil
		}
		return json.Marshal(map[string]any{"type": u.Type})
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, errors.Wrap(err, "marshal event")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, errors.Wrap(err, "re-read event")
	}
	t, _ := json.Marshal(ev.EventType())
	fields["type"] = t
	return json.Marshal(fields)
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstInt64(vals ...*int64) int64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}
