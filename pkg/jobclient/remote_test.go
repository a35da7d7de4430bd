package jobclient

import (
	"testing"
	"time"

	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2026, 3, 1, 10, 0, 5, 123456000, time.UTC)
	for _, s := range []string{
		"2026-03-01T10:00:05.123456+00:00",
		"2026-03-01T10:00:05.123456Z",
		"2026-03-01T10:00:05.123456",
	} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		require.True(t, want.Equal(got), "%s parsed as %s", s, got)
	}

	_, err := ParseTime("")
	require.Error(t, err)
	_, err = ParseTime("??")
	require.Error(t, err)
}

func TestRemoteState_FailedKeepsErrorAndDropsCurrentStep(t *testing.T) {
	step, msg := "audit", "Step audit failed"
	st := RemoteState{
		Status:      "failed",
		CurrentStep: &step,
		Error:       &msg,
		Steps: map[string]RemoteStep{
			"audit": {Status: "failed", Error: &msg},
		},
	}.ToState()

	require.Equal(t, pipeline.StatusFailed, st.Status)
	require.Equal(t, msg, st.Error)
	require.Nil(t, st.CurrentStep)
	require.Equal(t, pipeline.StepFailed, st.Steps["audit"].Status)
	require.Equal(t, msg, st.Steps["audit"].Error)
}

func TestRemoteState_EmptyIsIdle(t *testing.T) {
	require.Equal(t, pipeline.Initial(), RemoteState{}.ToState())
}
