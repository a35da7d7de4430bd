package pipeline

import (
	"bytes"
	"testing"

	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/stretchr/testify/require"
)

func completedRun(t *testing.T) State {
	t.Helper()
	var buf bytes.Buffer
	return applyAll(testReducer(&buf), Initial(),
		protocol.PipelineStarted{RunID: "run-1"},
		protocol.StepStarted{Step: "discovery"},
		protocol.StepCompleted{Step: "discovery", Duration: 800, ItemsProcessed: 3},
		protocol.PipelineCompleted{Summary: protocol.Summary{TotalDuration: 1200, StepsCompleted: 1, TotalSteps: 6, SitesProcessed: 3}},
	)
}

// statusSnapshot is what the status endpoint reports for the same run: no
// summary and no step durations.
func statusSnapshot() State {
	st := Initial()
	st.Status = StatusCompleted
	st.RunID = "run-1"
	st.Steps[protocol.StepDiscovery] = StepState{Status: StepCompleted, Progress: 100}
	return st
}

func TestMerge_SameRunKeepsSummaryAndDurations(t *testing.T) {
	local := completedRun(t)
	require.NotNil(t, local.Summary)

	got := Merge(local, statusSnapshot())
	require.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.Summary)
	require.Equal(t, int64(1200), got.Summary.TotalDuration)

	disc := got.Step(protocol.StepDiscovery)
	require.NotNil(t, disc.DurationMs)
	require.Equal(t, int64(800), *disc.DurationMs)
	require.NotNil(t, disc.ItemsProcessed)
	require.Equal(t, 3, *disc.ItemsProcessed)
}

func TestMerge_RemoteAdvancedStepWins(t *testing.T) {
	var buf bytes.Buffer
	local := applyAll(testReducer(&buf), Initial(),
		protocol.PipelineStarted{RunID: "run-1"},
		protocol.StepStarted{Step: "discovery"},
	)
	remote := local
	remote = remote.withStep(protocol.StepDiscovery, StepState{Status: StepFailed, Error: "search quota"})
	remote.Status = StatusFailed
	remote.CurrentStep = nil
	remote.Error = "search quota"

	got := Merge(local, remote)
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, StepFailed, got.Step(protocol.StepDiscovery).Status)
	require.Equal(t, "search quota", got.Step(protocol.StepDiscovery).Error)
	require.Nil(t, got.Summary)
}

func TestMerge_DifferentRunReplaces(t *testing.T) {
	remote := Initial()
	remote.Status = StatusRunning
	remote.RunID = "run-2"

	got := Merge(completedRun(t), remote)
	require.Equal(t, "run-2", got.RunID)
	require.Equal(t, StatusRunning, got.Status)
	require.Nil(t, got.Summary)
	require.Nil(t, got.Step(protocol.StepDiscovery).DurationMs)
}

func TestMerge_IdleRunnerKeepsLastKnown(t *testing.T) {
	local := completedRun(t)
	got := Merge(local, Initial())
	require.True(t, got.Equal(local))
}
