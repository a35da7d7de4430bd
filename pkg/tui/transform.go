package tui

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/transport"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// DefaultProgressEcho bounds how often step_progress for one step is echoed
// into the event log. State updates are never throttled.
const DefaultProgressEcho = time.Second

type Transformer struct {
	pub          message.Publisher
	progressEcho time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewTransformer(pub message.Publisher, progressEcho time.Duration) *Transformer {
	return &Transformer{
		pub:          pub,
		progressEcho: progressEcho,
		limiters:     map[string]*rate.Limiter{},
	}
}

func RegisterDomainToUITransformer(bus *Bus) *Transformer {
	t := NewTransformer(bus.Publisher, DefaultProgressEcho)
	bus.AddHandler("leadctl-domain-to-ui", TopicFeedEvents, t.Handle)
	return t
}

func (t *Transformer) Handle(msg *message.Message) error {
	defer msg.Ack()

	env, err := readEnvelope(msg)
	if err != nil {
		return errors.Wrap(err, "unmarshal domain envelope")
	}

	switch env.Type {
	case DomainTypeFeedEvent:
		var fe FeedEvent
		if err := env.Decode(&fe); err != nil {
			return err
		}
		ev, err := fe.Event()
		if err != nil {
			// Already decoded once by the transport; a failure here is a bug.
			return errors.Wrap(err, "decode feed frame")
		}
		if err := t.publishUI(UITypePipelineEvent, fe); err != nil {
			return err
		}
		level, text, ok := DescribeEvent(ev)
		if !ok || !t.echo(ev) {
			return nil
		}
		return t.publishLog(fe.At, LogSourceFeed, level, text)

	case DomainTypeConnection:
		var cc ConnectionChanged
		if err := env.Decode(&cc); err != nil {
			return err
		}
		if err := t.publishUI(UITypeConnection, cc); err != nil {
			return err
		}
		level, text := describeConnection(cc)
		return t.publishLog(cc.At, LogSourceTransport, level, text)

	case DomainTypeActionLog:
		var al ActionLog
		if err := env.Decode(&al); err != nil {
			return err
		}
		level := al.Level
		if level == "" {
			level = LogLevelInfo
		}
		return t.publishLog(al.At, LogSourceAction, level, al.Text)

	case DomainTypeActionResult:
		var res ActionResult
		if err := env.Decode(&res); err != nil {
			return err
		}
		if err := t.publishUI(UITypeActionResult, res); err != nil {
			return err
		}
		if res.Ok {
			return t.publishLog(res.At, LogSourceAction, LogLevelInfo, fmt.Sprintf("%s: ok %s", res.Kind, res.Message))
		}
		return t.publishLog(res.At, LogSourceAction, LogLevelError, fmt.Sprintf("%s: %s", res.Kind, res.Error))

	default:
		return nil
	}
}

func (t *Transformer) publishUI(typ string, payload any) error {
	return Publish(t.pub, TopicUIMessages, typ, payload)
}

func (t *Transformer) publishLog(at time.Time, source string, level LogLevel, text string) error {
	entry := EventLogEntry{At: at, Source: source, Level: level, Text: strings.TrimSpace(text)}
	return t.publishUI(UITypeEventAppend, entry)
}

// echo applies the per-step progress limiter. A step_started resets it so the
// first progress line of every step is shown.
func (t *Transformer) echo(ev protocol.Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case protocol.StepStarted:
		delete(t.limiters, e.Step)
		return true
	case protocol.StepProgress:
		if t.progressEcho <= 0 {
			return true
		}
		l, ok := t.limiters[e.Step]
		if !ok {
			l = rate.NewLimiter(rate.Every(t.progressEcho), 1)
			t.limiters[e.Step] = l
		}
		return l.Allow()
	default:
		return true
	}
}

// DescribeEvent renders a feed event as an event log line. ok is false for
// events that are not worth a line (keepalive replies).
func DescribeEvent(ev protocol.Event) (LogLevel, string, bool) {
	switch e := ev.(type) {
	case protocol.Connected:
		return LogLevelInfo, fmt.Sprintf("connected (client %s)", e.ClientID), true
	case protocol.PipelineStarted:
		text := "pipeline started"
		if e.RunID != "" {
			text += " run=" + e.RunID
		}
		if e.Config != nil {
			text += fmt.Sprintf(" niche=%q max_sites=%d", e.Config.Niche, e.Config.MaxSites)
		}
		return LogLevelInfo, text, true
	case protocol.StepStarted:
		return stepLine(e.Step, LogLevelInfo, "started")
	case protocol.StepProgress:
		text := fmt.Sprintf("%.0f%%", e.Percentage)
		if e.Total > 0 {
			text += fmt.Sprintf(" (%d/%d)", e.Current, e.Total)
		}
		if e.Message != "" {
			text += " " + e.Message
		}
		return stepLine(e.Step, LogLevelDebug, text)
	case protocol.StepCompleted:
		return stepLine(e.Step, LogLevelInfo, fmt.Sprintf("completed in %s, %d items", FormatDurationMs(e.Duration), e.ItemsProcessed))
	case protocol.StepFailed:
		return stepLine(e.Step, LogLevelError, "failed: "+e.Error)
	case protocol.PipelineCompleted:
		s := e.Summary
		return LogLevelInfo, fmt.Sprintf("pipeline completed: %d/%d steps, %d sites in %s",
			s.StepsCompleted, s.TotalSteps, s.SitesProcessed, FormatDurationMs(s.TotalDuration)), true
	case protocol.PipelineFailed:
		return LogLevelError, "pipeline failed: " + e.Error, true
	case protocol.Unknown:
		return describeUnknown(e)
	default:
		return LogLevelDebug, "", false
	}
}

func stepLine(raw string, level LogLevel, text string) (LogLevel, string, bool) {
	if _, err := protocol.ValidateStep(raw); err != nil {
		return LogLevelWarn, fmt.Sprintf("ignored event for unknown step %q", raw), true
	}
	return level, raw + ": " + text, true
}

func describeUnknown(u protocol.Unknown) (LogLevel, string, bool) {
	var extra struct {
		Step   string `json:"step"`
		Reason string `json:"reason"`
	}
	_ = json.Unmarshal(u.Raw, &extra)

	switch u.Type {
	case protocol.EventPong:
		return LogLevelDebug, "", false
	case protocol.EventStepSkipped:
		text := extra.Step + ": skipped"
		if extra.Reason != "" {
			text += " (" + extra.Reason + ")"
		}
		return LogLevelWarn, text, true
	case protocol.EventPipelineStopped:
		return LogLevelWarn, "pipeline stopped", true
	default:
		return LogLevelDebug, fmt.Sprintf("unhandled event %q", u.Type), true
	}
}

func describeConnection(cc ConnectionChanged) (LogLevel, string) {
	switch cc.State {
	case transport.StateConnected:
		return LogLevelInfo, "feed connected"
	default:
		text := "feed disconnected"
		if cc.Error != "" {
			text += ": " + cc.Error
		}
		if cc.Attempts > 0 {
			text += fmt.Sprintf(" (reconnect attempt %d)", cc.Attempts)
		}
		return LogLevelWarn, text
	}
}

// FormatDurationMs renders a millisecond duration the way step rows show it.
func FormatDurationMs(ms int64) string {
	if ms <= 0 {
		return "0s"
	}
	d := time.Duration(ms) * time.Millisecond
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", ms)
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}
