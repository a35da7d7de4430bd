package tui

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/transport"
	"github.com/rs/zerolog/log"
)

// FeedSource is the part of transport.Transport the bridge needs.
type FeedSource interface {
	OnOpen(func())
	OnClose(func(error))
	OnMessage(func(protocol.Event))
	State() transport.ConnState
	Attempts() int
}

// EventRecorder receives every feed event before it is published, e.g. the
// on-disk journal.
type EventRecorder interface {
	Append(ev protocol.Event, at time.Time) error
}

// AttachFeed publishes transport callbacks onto the domain topic. It replaces
// any handlers previously registered on src.
func AttachFeed(pub message.Publisher, src FeedSource, rec EventRecorder) {
	src.OnOpen(func() {
		publishConnection(pub, ConnectionChanged{At: time.Now(), State: transport.StateConnected})
	})
	src.OnClose(func(err error) {
		cc := ConnectionChanged{At: time.Now(), State: src.State(), Attempts: src.Attempts()}
		if err != nil {
			cc.Error = err.Error()
		}
		publishConnection(pub, cc)
	})
	src.OnMessage(func(ev protocol.Event) {
		now := time.Now()
		if rec != nil {
			if err := rec.Append(ev, now); err != nil {
				log.Debug().Err(err).Msg("journal append failed")
			}
		}
		fe, err := NewFeedEvent(now, ev)
		if err != nil {
			log.Warn().Err(err).Str("type", string(ev.EventType())).Msg("dropping unencodable feed event")
			return
		}
		if err := Publish(pub, TopicFeedEvents, DomainTypeFeedEvent, fe); err != nil {
			log.Warn().Err(err).Msg("publish feed event")
		}
	})
}

func publishConnection(pub message.Publisher, cc ConnectionChanged) {
	if err := Publish(pub, TopicFeedEvents, DomainTypeConnection, cc); err != nil {
		log.Warn().Err(err).Msg("publish connection change")
	}
}
