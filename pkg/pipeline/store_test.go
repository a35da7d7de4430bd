package pipeline

import (
	"bytes"
	"testing"

	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/stretchr/testify/require"
)

func TestStore_ApplyNotifiesOnChangeOnly(t *testing.T) {
	var buf bytes.Buffer
	s := NewStore(testReducer(&buf))

	var seen []Status
	s.Subscribe(func(st State) { seen = append(seen, st.Status) })

	_, changed := s.Apply(protocol.Connected{ClientID: "c"})
	require.False(t, changed)

	st, changed := s.Apply(protocol.PipelineStarted{RunID: "r1"})
	require.True(t, changed)
	require.Equal(t, StatusRunning, st.Status)
	require.Equal(t, st, s.Snapshot())

	_, changed = s.Apply(protocol.StepStarted{Step: "nope"})
	require.False(t, changed)

	require.Equal(t, []Status{StatusRunning}, seen)

	require.Equal(t, Initial(), s.Reset())
	require.Equal(t, []Status{StatusRunning, StatusIdle}, seen)
}

func TestStore_SnapshotsAreIndependent(t *testing.T) {
	var buf bytes.Buffer
	s := NewStore(testReducer(&buf))

	before := s.Snapshot()
	s.Apply(protocol.StepStarted{Step: "audit"})
	after := s.Snapshot()

	require.Equal(t, StepIdle, before.Steps[protocol.StepAudit].Status)
	require.Equal(t, StepRunning, after.Steps[protocol.StepAudit].Status)
}

func TestNewStoreFrom_NormalizesPartialSnapshot(t *testing.T) {
	var buf bytes.Buffer
	partial := State{Steps: map[protocol.Step]StepState{
		protocol.StepDiscovery: {Status: StepCompleted, Progress: 100},
	}}
	s := NewStoreFrom(testReducer(&buf), partial)

	st := s.Snapshot()
	require.Equal(t, StatusIdle, st.Status)
	require.Len(t, st.Steps, 6)
	require.Equal(t, StepCompleted, st.Steps[protocol.StepDiscovery].Status)
	require.Equal(t, StepIdle, st.Steps[protocol.StepOutreach].Status)
}
