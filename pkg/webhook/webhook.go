// Package webhook posts analysis reports to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lixenwraith/log"

	"github.com/ccollicutt/convlog/pkg/output"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// EventAnalysisComplete is the event name carried by every payload.
const EventAnalysisComplete = "convlog.analysis.complete"

// Trigger values decide when a target receives the report.
const (
	TriggerOnIssues = "on_issues"
	TriggerAlways   = "always"
	TriggerNever    = "never"
)

// Payload is the JSON body posted to a webhook.
type Payload struct {
	Event     string         `json:"event"`
	RunID     string         `json:"run_id"`
	HasIssues bool           `json:"has_issues"`
	Report    *output.Report `json:"report"`
}

// NewPayload wraps report in an event envelope.
func NewPayload(report *output.Report) *Payload {
	return &Payload{
		Event:     EventAnalysisComplete,
		RunID:     report.Metadata.RunID,
		HasIssues: report.HasIssues(),
		Report:    report,
	}
}

// Client sends analysis reports to webhook endpoints.
type Client struct {
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a new webhook client. A nil logger disables logging.
func NewClient(logger *log.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts an analysis report to a webhook endpoint.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}

	payload, err := json.Marshal(NewPayload(report))
	if err != nil {
		resp.Error = fmt.Errorf("failed to marshal report: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		resp.Error = fmt.Errorf("failed to create request: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "convlog-webhook")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1024*1024)) // Limit to 1MB
	if err != nil {
		resp.Error = fmt.Errorf("failed to read response: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)
	resp.Duration = time.Since(start)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp
}

// Target is one configured endpoint.
type Target struct {
	Name    string
	URL     string
	Token   string
	Trigger string
	Timeout time.Duration
}

// DisplayName returns the name, falling back to the URL.
func (t Target) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.URL
}

// ShouldFire reports whether a target with the given trigger receives a
// report. Unknown triggers behave like on_issues.
func ShouldFire(trigger string, hasIssues bool) bool {
	switch trigger {
	case TriggerAlways:
		return true
	case TriggerNever:
		return false
	default:
		return hasIssues
	}
}

// Delivery records the outcome of sending to one target.
type Delivery struct {
	Target   Target
	Response *Response
}

// Notify sends report to every target whose trigger matches. Failures are
// logged and returned, never treated as fatal.
func (c *Client) Notify(ctx context.Context, report *output.Report, targets []Target) []Delivery {
	hasIssues := report.HasIssues()

	var deliveries []Delivery
	for _, target := range targets {
		if !ShouldFire(target.Trigger, hasIssues) {
			continue
		}

		resp := c.Send(ctx, report, SendOptions{
			URL:     target.URL,
			Token:   target.Token,
			Timeout: target.Timeout,
		})
		deliveries = append(deliveries, Delivery{Target: target, Response: resp})

		if c.logger == nil {
			continue
		}
		if resp.Success() {
			c.logger.Info("msg", "Webhook sent", "webhook", target.DisplayName(), "status", resp.StatusCode, "duration", resp.Duration)
		} else {
			c.logger.Warn("msg", "Webhook failed", "webhook", target.DisplayName(), "error", resp.Error)
		}
	}

	return deliveries
}
