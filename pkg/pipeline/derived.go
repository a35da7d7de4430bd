package pipeline

import "github.com/go-go-golems/leadctl/pkg/protocol"

// Derived holds the aggregates the dashboard renders next to the state.
type Derived struct {
	CompletedSteps  int     `json:"completed_steps"`
	TotalSteps      int     `json:"total_steps"`
	OverallProgress float64 `json:"overall_progress"`
}

func Derive(st State) Derived {
	return Derived{
		CompletedSteps:  CompletedSteps(st),
		TotalSteps:      len(protocol.Steps),
		OverallProgress: OverallProgress(st),
	}
}

func CompletedSteps(st State) int {
	n := 0
	for _, step := range protocol.Steps {
		if st.Steps[step].Status == StepCompleted {
			n++
		}
	}
	return n
}

// OverallProgress credits each completed step with an equal share and adds the
// partial share of the step currently running.
func OverallProgress(st State) float64 {
	total := float64(len(protocol.Steps))
	pct := float64(CompletedSteps(st)) / total * 100
	if _, running, ok := st.Running(); ok {
		pct += (1 / total) * (float64(running.Progress) / 100) * 100
	}
	return pct
}
