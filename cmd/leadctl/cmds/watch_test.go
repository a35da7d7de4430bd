package cmds

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/leadctl/pkg/config"
	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/state"
	"github.com/go-go-golems/leadctl/pkg/transport"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var runFrames = []string{
	`{"type":"connected","client_id":"c1"}`,
	`{"type":"pipeline_started","run_id":"run-1","config":{"niche":"fitness","max_sites":5}}`,
	`{"type":"step_started","step":"discovery"}`,
	`{"type":"step_completed","step":"discovery","duration":800,"items_processed":3}`,
	`{"type":"pipeline_completed","summary":{"total_duration":1200,"steps_completed":1,"total_steps":6,"sites_processed":3}}`,
}

func feedServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc(transport.FeedPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunWatch_FollowsRunUntilCompletion(t *testing.T) {
	srv := feedServer(t, runFrames)

	cfg := config.Default()
	cfg.Server.BaseURL = srv.URL
	cfg.State.Dir = t.TempDir()
	cfg.Transport.ReconnectDelay = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := &syncBuffer{}
	err := runWatch(ctx, cfg, watchOptions{ExitOnFinish: true, Journal: true}, out)
	require.NoError(t, err)
	require.NoError(t, ctx.Err(), "watch should exit on completion, not on timeout")

	text := out.String()
	require.Contains(t, text, "discovery: completed in 800ms, 3 items")
	require.Contains(t, text, "pipeline completed: 1/6 steps, 3 sites in 1.2s")

	snap, err := state.Load(cfg.State.Dir)
	require.NoError(t, err)
	require.Equal(t, pipeline.StatusCompleted, snap.State.Status)
	require.Equal(t, "run-1", snap.State.RunID)

	entries, err := state.RecentEvents(cfg.State.Dir, 10)
	require.NoError(t, err)
	require.Len(t, entries, len(runFrames))
}

func TestRunWatch_FailedRunIsAnError(t *testing.T) {
	srv := feedServer(t, []string{
		`{"type":"pipeline_started","run_id":"run-2"}`,
		`{"type":"pipeline_failed","error":"runner crashed"}`,
	})

	cfg := config.Default()
	cfg.Server.BaseURL = srv.URL
	cfg.State.Dir = t.TempDir()
	cfg.State.Persist = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := runWatch(ctx, cfg, watchOptions{ExitOnFinish: true}, &syncBuffer{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "runner crashed")
}

func TestRunWatch_KeepsRememberedRun(t *testing.T) {
	srv := feedServer(t, []string{
		`{"type":"pipeline_started","run_id":"run-4"}`,
		`{"type":"pipeline_completed","summary":{"total_duration":10,"steps_completed":0,"total_steps":6,"sites_processed":0}}`,
	})

	cfg := config.Default()
	cfg.Server.BaseURL = srv.URL
	cfg.State.Dir = t.TempDir()
	require.NoError(t, rememberRun(cfg.State.Dir, srv.URL, "fitness", 5))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runWatch(ctx, cfg, watchOptions{ExitOnFinish: true}, &syncBuffer{}))

	snap, err := state.Load(cfg.State.Dir)
	require.NoError(t, err)
	require.Equal(t, "run-4", snap.State.RunID)
	require.Equal(t, &protocol.RunConfig{Niche: "fitness", MaxSites: 5}, snap.LastRun)
}

func TestRunWatch_RecordsConfigOfFeedStartedRun(t *testing.T) {
	srv := feedServer(t, runFrames)

	cfg := config.Default()
	cfg.Server.BaseURL = srv.URL
	cfg.State.Dir = t.TempDir()
	require.NoError(t, rememberRun(cfg.State.Dir, srv.URL, "pets", 20))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runWatch(ctx, cfg, watchOptions{ExitOnFinish: true}, &syncBuffer{}))

	snap, err := state.Load(cfg.State.Dir)
	require.NoError(t, err)
	require.Equal(t, &protocol.RunConfig{Niche: "fitness", MaxSites: 5}, snap.LastRun)
}
