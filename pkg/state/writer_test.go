package state

import (
	"context"
	"testing"

	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/stretchr/testify/require"
)

func TestWriter_CoalescesToNewestState(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "http://runner:8000")
	w.SetLastRun(&protocol.RunConfig{Niche: "fitness", MaxSites: 5})

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		st := pipeline.Initial()
		st.Status = pipeline.StatusRunning
		st.RunID = id
		w.Submit(st)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	require.Equal(t, 1, w.Saves())

	snap, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "run-3", snap.State.RunID)
	require.Equal(t, "http://runner:8000", snap.ServerURL)
	require.NotNil(t, snap.LastRun)
	require.Equal(t, "fitness", snap.LastRun.Niche)
}

func TestWriter_RunWithNothingPending(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	require.Equal(t, 0, w.Saves())

	snap, err := LoadOptional(dir)
	require.NoError(t, err)
	require.Nil(t, snap)
}
