package pipeline

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testReducer(buf *bytes.Buffer) Reducer {
	logger := zerolog.New(buf)
	return Reducer{Logger: &logger, Now: func() time.Time { return fixedNow }}
}

func applyAll(r Reducer, st State, evs ...protocol.Event) State {
	for _, ev := range evs {
		st = r.Reduce(st, ev)
	}
	return st
}

func TestInitial_AllStepsIdle(t *testing.T) {
	st := Initial()
	require.Equal(t, StatusIdle, st.Status)
	require.Nil(t, st.CurrentStep)
	require.Len(t, st.Steps, len(protocol.Steps))
	for _, s := range protocol.Steps {
		require.Equal(t, StepState{Status: StepIdle}, st.Steps[s])
	}
}

func TestReduce_ConnectedChangesNothing(t *testing.T) {
	var buf bytes.Buffer
	r := testReducer(&buf)

	for _, st := range []State{
		Initial(),
		applyAll(r, Initial(), protocol.PipelineStarted{RunID: "r1"}, protocol.StepStarted{Step: "audit"}),
		applyAll(r, Initial(), protocol.PipelineFailed{Error: "boom"}),
	} {
		require.Equal(t, st, r.Reduce(st, protocol.Connected{ClientID: "c"}))
	}
}

func TestReduce_InvalidStepIsNoOpWithWarning(t *testing.T) {
	events := []protocol.Event{
		protocol.StepStarted{Step: "screenshots"},
		protocol.StepProgress{Step: "screenshots", Percentage: 40},
		protocol.StepCompleted{Step: "screenshots", Duration: 1},
		protocol.StepFailed{Step: "screenshots", Error: "x"},
	}
	for _, ev := range events {
		var buf bytes.Buffer
		r := testReducer(&buf)
		in := applyAll(r, Initial(), protocol.PipelineStarted{RunID: "r1"})
		buf.Reset()

		out := r.Reduce(in, ev)
		require.Equal(t, in, out, "event %s", ev.EventType())
		require.Contains(t, buf.String(), `"level":"warn"`)
		require.Contains(t, buf.String(), `"step":"screenshots"`)
	}
}

func TestReduce_StepStartedResetsProgressAndError(t *testing.T) {
	var buf bytes.Buffer
	r := testReducer(&buf)

	st := applyAll(r, Initial(),
		protocol.StepStarted{Step: "audit"},
		protocol.StepProgress{Step: "audit", Percentage: 70, Message: "7/10"},
		protocol.StepFailed{Step: "audit", Error: "timeout"},
		protocol.StepStarted{Step: "audit"},
	)

	audit := st.Steps[protocol.StepAudit]
	require.Equal(t, StepRunning, audit.Status)
	require.Equal(t, 0, audit.Progress)
	require.Empty(t, audit.Error)
	require.Empty(t, audit.Message)
	require.Equal(t, fixedNow, *audit.StartedAt)
	require.Equal(t, protocol.StepAudit, *st.CurrentStep)
}

func TestReduce_CompletionClampsProgress(t *testing.T) {
	var buf bytes.Buffer
	r := testReducer(&buf)

	st := applyAll(r, Initial(),
		protocol.StepStarted{Step: "contacts"},
		protocol.StepProgress{Step: "contacts", Percentage: 42},
		protocol.StepCompleted{Step: "contacts", Duration: 10, ItemsProcessed: 3},
	)
	require.Equal(t, 100, st.Steps[protocol.StepContacts].Progress)
}

func TestReduce_NewRunClearsStaleResults(t *testing.T) {
	var buf bytes.Buffer
	r := testReducer(&buf)

	st := applyAll(r, Initial(),
		protocol.PipelineStarted{RunID: "r1"},
		protocol.PipelineFailed{Error: "Step audit failed"},
	)
	require.Equal(t, StatusFailed, st.Status)
	require.Equal(t, "Step audit failed", st.Error)

	st = r.Reduce(st, protocol.PipelineStarted{RunID: "r2"})
	require.Equal(t, StatusRunning, st.Status)
	require.Equal(t, "r2", st.RunID)
	require.Empty(t, st.Error)
	require.Nil(t, st.Summary)

	st = applyAll(r, st,
		protocol.PipelineCompleted{Summary: protocol.Summary{TotalSteps: 6}},
		protocol.PipelineStarted{RunID: "r3"},
	)
	require.Nil(t, st.Summary)
	require.Nil(t, st.CompletedAt)
}

func TestReduce_DiscoverySequence(t *testing.T) {
	var buf bytes.Buffer
	r := testReducer(&buf)

	st := applyAll(r, Initial(),
		protocol.StepStarted{Step: "discovery"},
		protocol.StepProgress{Step: "discovery", Percentage: 50, Message: "halfway"},
		protocol.StepCompleted{Step: "discovery", Duration: 5000, ItemsProcessed: 10},
	)

	d := st.Steps[protocol.StepDiscovery]
	require.Equal(t, StepCompleted, d.Status)
	require.Equal(t, 100, d.Progress)
	require.Equal(t, int64(5000), *d.DurationMs)
	require.Equal(t, 10, *d.ItemsProcessed)
	require.Equal(t, fixedNow, *d.CompletedAt)
	require.Empty(t, d.Error)
}

func TestReduce_PipelineTerminalEvents(t *testing.T) {
	var buf bytes.Buffer
	r := testReducer(&buf)

	running := applyAll(r, Initial(), protocol.PipelineStarted{RunID: "r1"}, protocol.StepStarted{Step: "outreach"})

	done := r.Reduce(running, protocol.PipelineCompleted{Summary: protocol.Summary{TotalDuration: 90, StepsCompleted: 6, TotalSteps: 6, SitesProcessed: 12}})
	require.Equal(t, StatusCompleted, done.Status)
	require.Nil(t, done.CurrentStep)
	require.Equal(t, fixedNow, *done.CompletedAt)
	require.Equal(t, protocol.Summary{TotalDuration: 90, StepsCompleted: 6, TotalSteps: 6, SitesProcessed: 12}, *done.Summary)
	require.Empty(t, done.Error)

	failed := r.Reduce(running, protocol.PipelineFailed{Error: "Step outreach failed"})
	require.Equal(t, StatusFailed, failed.Status)
	require.Nil(t, failed.CurrentStep)
	require.Equal(t, "Step outreach failed", failed.Error)
	require.Nil(t, failed.Summary)
}

func TestReduce_StepFailedRecordsError(t *testing.T) {
	var buf bytes.Buffer
	r := testReducer(&buf)

	st := applyAll(r, Initial(), protocol.StepStarted{Step: "analysis"}, protocol.StepFailed{Step: "analysis", Error: "Exit code: 1"})
	a := st.Steps[protocol.StepAnalysis]
	require.Equal(t, StepFailed, a.Status)
	require.Equal(t, "Exit code: 1", a.Error)
}

func TestReduce_UnknownEventIgnored(t *testing.T) {
	var buf bytes.Buffer
	r := testReducer(&buf)

	st := applyAll(r, Initial(), protocol.PipelineStarted{RunID: "r1"})
	require.Equal(t, st, r.Reduce(st, protocol.Unknown{Type: protocol.EventStepSkipped}))
	require.Equal(t, st, r.Reduce(st, protocol.Unknown{Type: "brand_new_event"}))
	require.Equal(t, st, r.Reduce(st, nil))
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	var buf bytes.Buffer
	r := testReducer(&buf)

	in := Initial()
	before := Initial()
	out := r.Reduce(in, protocol.StepStarted{Step: "verification"})

	require.Equal(t, before, in)
	require.NotEqual(t, in, out)
	require.Equal(t, StepIdle, in.Steps[protocol.StepVerification].Status)
	require.Equal(t, StepRunning, out.Steps[protocol.StepVerification].Status)
}

func TestReduce_OutOfOrderEventsAcceptedAsIs(t *testing.T) {
	var buf bytes.Buffer
	r := testReducer(&buf)

	st := r.Reduce(Initial(), protocol.StepCompleted{Step: "audit", Duration: 3, ItemsProcessed: 1})
	require.Equal(t, StepCompleted, st.Steps[protocol.StepAudit].Status)
	require.Nil(t, st.Steps[protocol.StepAudit].StartedAt)
}

func TestReduce_ProgressIsClamped(t *testing.T) {
	var buf bytes.Buffer
	r := testReducer(&buf)

	st := r.Reduce(Initial(), protocol.StepProgress{Step: "audit", Percentage: 140})
	require.Equal(t, 100, st.Steps[protocol.StepAudit].Progress)
	st = r.Reduce(st, protocol.StepProgress{Step: "audit", Percentage: -3})
	require.Equal(t, 0, st.Steps[protocol.StepAudit].Progress)
	st = r.Reduce(st, protocol.StepProgress{Step: "audit", Percentage: 33.6})
	require.Equal(t, 34, st.Steps[protocol.StepAudit].Progress)
}

func TestReset_ReturnsIdle(t *testing.T) {
	var buf bytes.Buffer
	r := testReducer(&buf)

	st := applyAll(r, Initial(), protocol.PipelineStarted{RunID: "r"}, protocol.StepStarted{Step: "audit"})
	require.NotEqual(t, Initial(), st)
	require.Equal(t, Initial(), Reset())
}
