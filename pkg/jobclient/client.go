package jobclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 10 * time.Second

	RequestIDHeader = "X-Request-Id"
)

type Options struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the underlying client, mostly for tests.
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client talks to the job runner's REST API.
type Client struct {
	http   *resty.Client
	logger *zerolog.Logger
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.Logger
	}

	var client *resty.Client
	if opts.HTTPClient != nil {
		client = resty.NewWithClient(opts.HTTPClient)
	} else {
		client = resty.New()
	}
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("Content-Type", "application/json")

	return &Client{http: client, logger: logger}
}

func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

type RunRequest struct {
	Niche    string `json:"niche"`
	MaxSites int    `json:"max_sites"`
}

type RunResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

type StopResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type StepRunResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Health struct {
	Status string `json:"status"`
}

// Start asks the runner to begin a full pipeline run. A runner that refuses
// (for example because a run is already in progress) yields an error result
// carrying its message.
func (c *Client) Start(ctx context.Context, niche string, maxSites int) Result[RunResponse] {
	req, err := NewRunRequest(niche, maxSites)
	if err != nil {
		return fail[RunResponse](err)
	}

	var out RunResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/pipeline/run", req, &out, nil); err != nil {
		return fail[RunResponse](err)
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "pipeline run was not started"
		}
		return Result[RunResponse]{Error: msg}
	}
	c.logger.Info().Str("run_id", out.RunID).Str("niche", req.Niche).Int("max_sites", req.MaxSites).Msg("pipeline run started")
	return okResult(&out)
}

// Stop is idempotent on the runner side.
func (c *Client) Stop(ctx context.Context) Result[StopResponse] {
	var out StopResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/pipeline/stop", nil, &out, nil); err != nil {
		return fail[StopResponse](err)
	}
	if !out.Success {
		return Result[StopResponse]{Error: out.Message}
	}
	return okResult(&out)
}

// Status fetches the runner's own snapshot and maps it onto pipeline.State.
func (c *Client) Status(ctx context.Context) Result[pipeline.State] {
	var remote RemoteState
	if _, err := c.do(ctx, http.MethodGet, "/api/pipeline/status", nil, &remote, nil); err != nil {
		return fail[pipeline.State](err)
	}
	st := remote.ToState()
	return okResult(&st)
}

// RunStep triggers a single step on runners that expose per-step endpoints.
func (c *Client) RunStep(ctx context.Context, step protocol.Step) Result[StepRunResponse] {
	if !runnable(step) {
		return fail[StepRunResponse](errors.Errorf("step %q cannot be run on its own", step))
	}
	var out StepRunResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/{step}/run", nil, &out, map[string]string{"step": string(step)}); err != nil {
		return fail[StepRunResponse](err)
	}
	if !out.Success {
		return Result[StepRunResponse]{Error: out.Message}
	}
	return okResult(&out)
}

func (c *Client) Health(ctx context.Context) Result[Health] {
	var out Health
	if _, err := c.do(ctx, http.MethodGet, "/health", nil, &out, nil); err != nil {
		return fail[Health](err)
	}
	return okResult(&out)
}

type apiError struct {
	Detail json.RawMessage `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, params map[string]string) (*resty.Response, error) {
	reqID := uuid.NewString()
	req := c.http.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, reqID).
		SetError(&apiError{})
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	if len(params) > 0 {
		req.SetPathParams(params)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", reqID).
		Int("status", resp.StatusCode()).
		Dur("elapsed", resp.Time()).
		Msg("job runner request")

	if !resp.IsSuccess() {
		return resp, statusError(resp)
	}
	return resp, nil
}

// statusError renders a non-2xx response as "HTTP <code>: <detail>". FastAPI
// puts a string in detail for HTTPException and a list for validation errors.
func statusError(resp *resty.Response) error {
	detail := ""
	if e, ok := resp.Error().(*apiError); ok && e != nil && len(e.Detail) > 0 {
		var s string
		if err := json.Unmarshal(e.Detail, &s); err == nil {
			detail = s
		} else {
			detail = string(e.Detail)
		}
	}
	if detail == "" {
		detail = strings.TrimSpace(string(resp.Body()))
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode())
	}
	return errors.Errorf("HTTP %d: %s", resp.StatusCode(), detail)
}
