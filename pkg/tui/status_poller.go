package tui

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/leadctl/pkg/jobclient"
	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type StatusSource interface {
	Status(ctx context.Context) jobclient.Result[pipeline.State]
}

// StatusPoller seeds the dashboard from the runner's status snapshot and keeps
// polling while the event feed is down. Snapshots are published as
// refresh-status action results; unchanged snapshots are dropped.
type StatusPoller struct {
	Client    StatusSource
	Connected func() bool
	Interval  time.Duration
	Pub       message.Publisher

	last *pipeline.State
}

func (w *StatusPoller) Run(ctx context.Context) error {
	if w.Client == nil {
		return errors.New("missing Client")
	}
	if w.Pub == nil {
		return errors.New("missing Publisher")
	}
	if w.Interval <= 0 {
		w.Interval = 5 * time.Second
	}

	// the first poll always runs so an idle runner still seeds the view
	w.poll(ctx)

	t := time.NewTicker(w.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		if w.Connected != nil && w.Connected() {
			continue
		}
		w.poll(ctx)
	}
}

func (w *StatusPoller) poll(ctx context.Context) {
	res := w.Client.Status(ctx)
	if !res.OK() {
		log.Debug().Str("error", res.Error).Msg("status poll failed")
		return
	}
	if w.last != nil && w.last.Equal(*res.Data) {
		return
	}
	st := *res.Data
	w.last = &st

	out := ActionResult{
		At:      time.Now(),
		Kind:    ActionRefreshStatus,
		Ok:      true,
		Message: string(st.Status),
		State:   &st,
	}
	if err := Publish(w.Pub, TopicFeedEvents, DomainTypeActionResult, out); err != nil {
		log.Warn().Err(err).Msg("publish status snapshot")
	}
}
