package jobclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/pkg/errors"
)

var artifactPaths = map[protocol.Step]string{
	protocol.StepDiscovery:    "/api/discovery",
	protocol.StepVerification: "/api/verification",
	protocol.StepAudit:        "/api/audit",
	protocol.StepContacts:     "/api/contacts",
	protocol.StepOutreach:     "/api/outreach",
}

func runnable(step protocol.Step) bool {
	switch step {
	case protocol.StepDiscovery, protocol.StepVerification, protocol.StepAudit, protocol.StepOutreach:
		return true
	}
	return false
}

// HasArtifact reports whether the runner persists output for step.
func HasArtifact(step protocol.Step) bool {
	_, ok := artifactPaths[step]
	return ok
}

// FetchStepArtifact returns the latest persisted output for step as raw JSON.
func (c *Client) FetchStepArtifact(ctx context.Context, step protocol.Step) Result[json.RawMessage] {
	path, ok := artifactPaths[step]
	if !ok {
		return fail[json.RawMessage](errors.Errorf("step %q has no artifact endpoint", step))
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil, nil)
	if err != nil {
		return fail[json.RawMessage](err)
	}
	body := resp.Body()
	if !json.Valid(body) {
		return fail[json.RawMessage](errors.Errorf("GET %s: response is not JSON", path))
	}
	raw := make(json.RawMessage, len(body))
	copy(raw, body)
	return okResult(&raw)
}

func fetchTyped[T any](ctx context.Context, c *Client, step protocol.Step) Result[T] {
	res := c.FetchStepArtifact(ctx, step)
	if !res.OK() {
		return Result[T]{Error: res.Error}
	}
	var out T
	if err := json.Unmarshal(*res.Data, &out); err != nil {
		return fail[T](errors.Wrapf(err, "decode %s artifact", step))
	}
	return okResult(&out)
}

func (c *Client) Discovery(ctx context.Context) Result[DiscoveryResponse] {
	return fetchTyped[DiscoveryResponse](ctx, c, protocol.StepDiscovery)
}

func (c *Client) Verification(ctx context.Context) Result[VerificationResponse] {
	return fetchTyped[VerificationResponse](ctx, c, protocol.StepVerification)
}

func (c *Client) Audit(ctx context.Context) Result[AuditResponse] {
	return fetchTyped[AuditResponse](ctx, c, protocol.StepAudit)
}

func (c *Client) Outreach(ctx context.Context) Result[OutreachResponse] {
	return fetchTyped[OutreachResponse](ctx, c, protocol.StepOutreach)
}

// UpdateDraft edits the outreach draft for storeURL. Nil fields are left as
// they are on the runner.
func (c *Client) UpdateDraft(ctx context.Context, storeURL string, update DraftUpdate) Result[EmailDraft] {
	storeURL = strings.TrimSpace(storeURL)
	if storeURL == "" {
		return fail[EmailDraft](errors.Wrap(ErrInvalidRequest, "store url is required"))
	}
	if update.Status != nil && !validDraftStatus(*update.Status) {
		return fail[EmailDraft](errors.Wrapf(ErrInvalidRequest, "draft status %q", *update.Status))
	}

	var out EmailDraft
	params := map[string]string{"url": storeURL}
	if _, err := c.do(ctx, http.MethodPut, "/api/outreach/{url}", update, &out, params); err != nil {
		return fail[EmailDraft](err)
	}
	return okResult(&out)
}

type DiscoveryMetadata struct {
	GeneratedAt string `json:"generated_at"`
	TotalNiches int    `json:"total_niches"`
	TotalURLs   int    `json:"total_urls"`
}

type SearchMetadata struct {
	Engine       string `json:"engine"`
	Query        string `json:"query"`
	ResultsCount int    `json:"results_count"`
}

type Discovery struct {
	Niche          string           `json:"niche"`
	DiscoveredAt   string           `json:"discovered_at"`
	TotalURLs      int              `json:"total_urls"`
	URLs           []string         `json:"urls"`
	SearchMetadata []SearchMetadata `json:"search_metadata,omitempty"`
	Source         string           `json:"source"`
}

type DiscoveryResponse struct {
	Metadata    DiscoveryMetadata `json:"metadata"`
	Discoveries []Discovery       `json:"discoveries"`
}

// URLs flattens every discovered URL across niches.
func (d DiscoveryResponse) URLs() []string {
	var out []string
	for _, disc := range d.Discoveries {
		out = append(out, disc.URLs...)
	}
	return out
}

type ShopifySite struct {
	URL          string   `json:"url"`
	IsShopify    bool     `json:"is_shopify"`
	Confidence   float64  `json:"confidence"`
	SignalsFound []string `json:"signals_found"`
	VerifiedAt   string   `json:"verified_at"`
	Error        string   `json:"error,omitempty"`
}

type VerificationMetadata struct {
	GeneratedAt            string  `json:"generated_at"`
	TotalVerified          int     `json:"total_verified"`
	ShopifyCount           int     `json:"shopify_count"`
	NonShopifyCount        int     `json:"non_shopify_count"`
	MinConfidenceThreshold float64 `json:"min_confidence_threshold"`
}

type VerificationResponse struct {
	Metadata        VerificationMetadata `json:"metadata"`
	ShopifySites    []ShopifySite        `json:"shopify_sites"`
	VerificationLog []ShopifySite        `json:"verification_log"`
}

type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type PerformanceMetrics struct {
	LCP              *float64 `json:"lcp,omitempty"`
	FCP              *float64 `json:"fcp,omitempty"`
	DOMContentLoaded *float64 `json:"dom_content_loaded,omitempty"`
	LoadComplete     *float64 `json:"load_complete,omitempty"`
	TTFB             *float64 `json:"ttfb,omitempty"`
}

type ConsoleError struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type LinkIssue struct {
	URL        string `json:"url"`
	StatusCode *int   `json:"status_code,omitempty"`
	IssueType  string `json:"issue_type"`
	Text       string `json:"text,omitempty"`
}

type ViewportAudit struct {
	ViewportType       string             `json:"viewport_type"`
	Viewport           Viewport           `json:"viewport"`
	ScreenshotPath     string             `json:"screenshot_path"`
	ConsoleErrors      []ConsoleError     `json:"console_errors"`
	PerformanceMetrics PerformanceMetrics `json:"performance_metrics"`
	LinkIssues         []LinkIssue        `json:"link_issues"`
	Error              string             `json:"error,omitempty"`
}

type SiteAudit struct {
	URL       string         `json:"url"`
	AuditedAt string         `json:"audited_at"`
	Desktop   *ViewportAudit `json:"desktop,omitempty"`
	Mobile    *ViewportAudit `json:"mobile,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type AuditMetadata struct {
	GeneratedAt string `json:"generated_at"`
	TotalSites  int    `json:"total_sites"`
	Successful  int    `json:"successful"`
	Failed      int    `json:"failed"`
}

type AuditResponse struct {
	Metadata AuditMetadata `json:"metadata"`
	Audits   []SiteAudit   `json:"audits"`
}

type IssueReference struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Severity string `json:"severity"`
}

type SocialLinks struct {
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
}

type EmailDraft struct {
	StoreURL        string         `json:"store_url"`
	ToEmails        []string       `json:"to_emails"`
	Subject         string         `json:"subject"`
	Body            string         `json:"body"`
	IssueReferenced IssueReference `json:"issue_referenced"`
	Social          SocialLinks    `json:"social"`
	Status          string         `json:"status"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at,omitempty"`
}

type OutreachMetadata struct {
	GeneratedAt   string `json:"generated_at"`
	TotalDrafts   int    `json:"total_drafts"`
	WithEmails    int    `json:"with_emails"`
	WithoutEmails int    `json:"without_emails"`
}

type OutreachResponse struct {
	Metadata OutreachMetadata `json:"metadata"`
	Drafts   []EmailDraft     `json:"drafts"`
}

type DraftUpdate struct {
	Subject *string `json:"subject,omitempty"`
	Body    *string `json:"body,omitempty"`
	Status  *string `json:"status,omitempty"`
}
