package state

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/rs/zerolog/log"
)

// Writer saves snapshots off the submitting goroutine. Submissions that
// arrive while a save is in flight are coalesced and only the newest state
// is written.
type Writer struct {
	dir       string
	serverURL string
	pending   chan pipeline.State

	mu      sync.Mutex
	lastRun *protocol.RunConfig
	saves   int
}

func NewWriter(dir, serverURL string) *Writer {
	return &Writer{
		dir:       dir,
		serverURL: serverURL,
		pending:   make(chan pipeline.State, 1),
	}
}

// SetLastRun records the parameters of the most recent start request.
func (w *Writer) SetLastRun(cfg *protocol.RunConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cfg == nil {
		w.lastRun = nil
		return
	}
	c := *cfg
	w.lastRun = &c
}

// Submit never blocks.
func (w *Writer) Submit(st pipeline.State) {
	for {
		select {
		case w.pending <- st:
			return
		default:
		}
		select {
		case <-w.pending:
		default:
		}
	}
}

// Run writes submitted states until ctx is done, then flushes whatever is
// still pending.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			select {
			case st := <-w.pending:
				w.save(st)
			default:
			}
			return nil
		case st := <-w.pending:
			w.save(st)
		}
	}
}

// Saves reports how many snapshots were written successfully.
func (w *Writer) Saves() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saves
}

func (w *Writer) save(st pipeline.State) {
	w.mu.Lock()
	snap := &Snapshot{
		SavedAt:   time.Now().UTC(),
		ServerURL: w.serverURL,
		LastRun:   w.lastRun,
		State:     st,
	}
	w.mu.Unlock()

	if err := Save(w.dir, snap); err != nil {
		log.Warn().Err(err).Str("dir", w.dir).Msg("persist pipeline state")
		return
	}
	w.mu.Lock()
	w.saves++
	w.mu.Unlock()
}
