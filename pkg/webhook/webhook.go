// Package webhook provides an HTTP client for posting sanitizer reports to
// webhook endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/ccollicutt/sanreport/pkg/output"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// userAgent identifies webhook requests.
const userAgent = "sanreport-webhook"

// Client sends reports to webhook endpoints.
type Client struct {
	httpc *resty.Client
}

// ClientOption configures a Client.
type ClientOption func(*resty.Client)

// WithRetries retries failed requests and 5xx responses up to n times.
func WithRetries(n int) ClientOption {
	return func(c *resty.Client) {
		c.SetRetryCount(n).
			SetRetryWaitTime(250 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return r != nil && r.StatusCode() >= 500
			})
	}
}

// WithLogger routes the HTTP client's own messages to logger.
func WithLogger(logger hclog.Logger) ClientOption {
	return func(c *resty.Client) {
		c.SetLogger(&hclogAdapter{logger: logger})
	}
}

// NewClient creates a new webhook client.
func NewClient(opts ...ClientOption) *Client {
	httpc := resty.New().
		SetHeader("User-Agent", userAgent).
		SetLogger(&hclogAdapter{logger: hclog.NewNullLogger()})
	for _, opt := range opts {
		opt(httpc)
	}
	return &Client{httpc: httpc}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
	Format  string        // Body format, json (default) or csv
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

// Send posts a report to a webhook endpoint.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}

	payload, contentType, err := encode(ctx, report, opts.Format)
	if err != nil {
		resp.Error = err
		resp.Duration = time.Since(start)
		return resp
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := c.httpc.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(payload)
	if opts.Token != "" {
		req.SetAuthToken(opts.Token)
	}

	httpResp, err := req.Post(opts.URL)
	resp.Duration = time.Since(start)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		return resp
	}

	resp.StatusCode = httpResp.StatusCode()
	resp.Body = string(httpResp.Body())

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp
}

// encode renders the request body and its content type.
func encode(ctx context.Context, report *output.Report, format string) ([]byte, string, error) {
	switch format {
	case "", "json":
		payload, err := json.Marshal(report)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal report: %w", err)
		}
		return payload, "application/json", nil
	case "csv":
		var buf bytes.Buffer
		if err := output.NewCSVFormatter(output.FormatOptions{}).Format(ctx, report, &buf); err != nil {
			return nil, "", fmt.Errorf("failed to render report: %w", err)
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported webhook format %q", format)
	}
}

// hclogAdapter satisfies resty.Logger.
type hclogAdapter struct {
	logger hclog.Logger
}

func (a *hclogAdapter) Errorf(format string, v ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

func (a *hclogAdapter) Warnf(format string, v ...interface{}) {
	a.logger.Warn(fmt.Sprintf(format, v...))
}

func (a *hclogAdapter) Debugf(format string, v ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, v...))
}
