package tui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

func RegisterUIForwarder(bus *Bus, p Sender) {
	bus.AddHandler("leadctl-ui-forward", TopicUIMessages, UIForwarder(p))
}

// UIForwarder turns UI envelopes into bubbletea messages.
func UIForwarder(p Sender) func(*message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		env, err := readEnvelope(msg)
		if err != nil {
			return errors.Wrap(err, "unmarshal ui envelope")
		}

		switch env.Type {
		case UITypePipelineEvent:
			var fe FeedEvent
			if err := env.Decode(&fe); err != nil {
				return err
			}
			ev, err := fe.Event()
			if err != nil {
				return errors.Wrap(err, "decode pipeline event")
			}
			p.Send(PipelineEventMsg{At: fe.At, Event: ev})
		case UITypeConnection:
			var cc ConnectionChanged
			if err := env.Decode(&cc); err != nil {
				return err
			}
			p.Send(ConnectionMsg{Change: cc})
		case UITypeEventAppend:
			var entry EventLogEntry
			if err := env.Decode(&entry); err != nil {
				return err
			}
			p.Send(EventLogAppendMsg{Entry: entry})
		case UITypeActionResult:
			var res ActionResult
			if err := env.Decode(&res); err != nil {
				return err
			}
			p.Send(ActionResultMsg{Result: res})
		}
		return nil
	}
}
