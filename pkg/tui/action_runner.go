package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/leadctl/pkg/jobclient"
	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// JobController is the subset of *jobclient.Client the action runner drives.
type JobController interface {
	Start(ctx context.Context, niche string, maxSites int) jobclient.Result[jobclient.RunResponse]
	Stop(ctx context.Context) jobclient.Result[jobclient.StopResponse]
	Status(ctx context.Context) jobclient.Result[pipeline.State]
	FetchStepArtifact(ctx context.Context, step protocol.Step) jobclient.Result[json.RawMessage]
	UpdateDraft(ctx context.Context, storeURL string, update jobclient.DraftUpdate) jobclient.Result[jobclient.EmailDraft]
}

type Reconnector interface {
	Reconnect()
}

type ActionRunner struct {
	Client  JobController
	Feed    Reconnector
	Pub     message.Publisher
	Timeout time.Duration
}

func RegisterUIActionRunner(bus *Bus, r *ActionRunner) {
	if r.Pub == nil {
		r.Pub = bus.Publisher
	}
	bus.AddHandler("leadctl-ui-actions", TopicUIActions, r.Handle)
}

func (r *ActionRunner) Handle(msg *message.Message) error {
	defer msg.Ack()

	env, err := readEnvelope(msg)
	if err != nil {
		r.logAction(LogLevelWarn, "action: bad envelope (unmarshal failed)")
		return nil
	}
	if env.Type != UITypeActionRequest {
		return nil
	}
	var req ActionRequest
	if err := env.Decode(&req); err != nil {
		r.logAction(LogLevelWarn, "action: bad request (unmarshal failed)")
		return nil
	}
	if req.Kind == "" {
		return nil
	}

	ctx := msg.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	r.logAction(LogLevelInfo, "action start: "+describeRequest(req))
	res := r.Run(ctx, req)
	if err := Publish(r.Pub, TopicFeedEvents, DomainTypeActionResult, res); err != nil {
		log.Warn().Err(err).Str("kind", string(req.Kind)).Msg("publish action result")
	}
	return nil
}

// Run executes req synchronously. It never returns an error; failures are
// reported in the result.
func (r *ActionRunner) Run(ctx context.Context, req ActionRequest) ActionResult {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := ActionResult{Kind: req.Kind}
	finish := func(ok bool, errText string) ActionResult {
		res.At = time.Now()
		res.Ok = ok
		res.Error = errText
		if !ok && errText == "" {
			res.Error = "unknown error"
		}
		log.Debug().Str("kind", string(res.Kind)).Bool("ok", ok).Str("error", errText).Msg("action finished")
		return res
	}

	if r.Client == nil && req.Kind != ActionReconnect {
		return finish(false, "no job runner client configured")
	}

	switch req.Kind {
	case ActionStart:
		out := r.Client.Start(ctx, req.Niche, req.MaxSites)
		if !out.OK() {
			return finish(false, out.Error)
		}
		res.RunID = out.Data.RunID
		res.Message = out.Data.Message
		return finish(true, "")

	case ActionStop:
		out := r.Client.Stop(ctx)
		if !out.OK() {
			return finish(false, out.Error)
		}
		res.Message = out.Data.Message
		return finish(true, "")

	case ActionRefreshStatus:
		out := r.Client.Status(ctx)
		if !out.OK() {
			return finish(false, out.Error)
		}
		res.State = out.Data
		res.Message = string(out.Data.Status)
		return finish(true, "")

	case ActionFetchArtifact:
		res.Step = req.Step
		out := r.Client.FetchStepArtifact(ctx, req.Step)
		if !out.OK() {
			return finish(false, out.Error)
		}
		res.Artifact = *out.Data
		res.Message = fmt.Sprintf("%s artifact, %d bytes", req.Step, len(*out.Data))
		return finish(true, "")

	case ActionUpdateDraft:
		res.StoreURL = req.StoreURL
		if req.Draft == nil {
			return finish(false, "missing draft update")
		}
		out := r.Client.UpdateDraft(ctx, req.StoreURL, *req.Draft)
		if !out.OK() {
			return finish(false, out.Error)
		}
		res.Message = "draft " + out.Data.Status
		return finish(true, "")

	case ActionReconnect:
		if r.Feed == nil {
			return finish(false, "no feed transport configured")
		}
		r.Feed.Reconnect()
		res.Message = "reconnecting"
		return finish(true, "")

	default:
		return finish(false, errors.Errorf("unknown action: %s", req.Kind).Error())
	}
}

func (r *ActionRunner) logAction(level LogLevel, text string) {
	al := ActionLog{At: time.Now(), Level: level, Text: text}
	if err := Publish(r.Pub, TopicFeedEvents, DomainTypeActionLog, al); err != nil {
		log.Debug().Err(err).Msg("publish action log")
	}
}

func describeRequest(req ActionRequest) string {
	switch req.Kind {
	case ActionStart:
		return fmt.Sprintf("%s niche=%q max_sites=%d", req.Kind, req.Niche, req.MaxSites)
	case ActionFetchArtifact:
		return fmt.Sprintf("%s step=%s", req.Kind, req.Step)
	case ActionUpdateDraft:
		return fmt.Sprintf("%s url=%s", req.Kind, req.StoreURL)
	default:
		return string(req.Kind)
	}
}
