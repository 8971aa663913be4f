// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

/*
client.go - Upstream catalog and reporting API client

Client Features:
  - HTTP client with configurable timeout
  - API key header authentication
  - Global token bucket shared by every upstream call
  - Tolerant decoding of the catalog envelope (per-item degradation)
  - Report download with ZIP sniffing and "no data" detection

Retries are deliberately absent here: a single call is one attempt, and
the adaptive backoff in the ratelimit package decides whether to try again.
*/

//nolint:staticcheck // File documentation, not package doc
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tayawaaean/mediatiger-sub002/internal/config"
	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
	"github.com/tayawaaean/mediatiger-sub002/internal/metrics"
	"github.com/tayawaaean/mediatiger-sub002/internal/models"
)

// maxErrorBodySize limits the maximum amount of response body read for error reporting
const maxErrorBodySize = 64 * 1024 // 64KB

// defaultMaxReportBytes bounds an in-memory report download.
const defaultMaxReportBytes = 64 << 20 // 64MB

// API is the upstream surface used by the proxy.
type API interface {
	FetchCatalogPage(ctx context.Context, page, size int) (*models.CatalogPage, error)
	FetchReport(ctx context.Context, date string) ([]byte, error)
}

// readBodyForError reads the response body for error reporting (max 64KB)
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// Client talks to the upstream catalog and reporting endpoints.
type Client struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	catalogPath  string
	reportPath   string
	maxReport    int64
	client       *http.Client
	limiter      *rate.Limiter
}

// NewClient creates an upstream client from configuration.
//
// The client is configured with:
//   - cfg.Timeout as the HTTP timeout (30s when unset)
//   - a token bucket of cfg.RequestsPerSecond / cfg.Burst (unlimited when unset)
func NewClient(cfg *config.UpstreamConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	maxReport := cfg.MaxReportBytes
	if maxReport <= 0 {
		maxReport = defaultMaxReportBytes
	}

	header := cfg.APIKeyHeader
	if header == "" {
		header = "X-API-Key"
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		apiKeyHeader: header,
		catalogPath:  cfg.CatalogPath,
		reportPath:   cfg.ReportPath,
		maxReport:    maxReport,
		client:       &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(limit, burst),
	}
}

// do performs exactly one HTTP GET. Network failures are reported as
// ErrUnreachable; cancellation of ctx is returned unchanged.
func (c *Client) do(ctx context.Context, op, path string, params url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "network_error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, op, err)
	}
	metrics.UpstreamRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

// statusError builds a StatusError for a non-2xx response and closes its body.
func statusError(op string, resp *http.Response) error {
	defer resp.Body.Close()

	se := &StatusError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(readBodyForError(resp.Body))),
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		se.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return se
}

// parseRetryAfter accepts delay-seconds or an HTTP date (RFC 9110).
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// envelope is the JSON wrapper used by every upstream endpoint.
type envelope struct {
	Success      bool              `json:"success"`
	ResponseCode json.RawMessage   `json:"response_code"`
	Message      string            `json:"message"`
	Datas        []json.RawMessage `json:"datas"`
	PageData     struct {
		Next  json.RawMessage `json:"next"`
		Total json.RawMessage `json:"total"`
	} `json:"page_data"`
}

// envelopeError converts success=false into the error taxonomy.
func envelopeError(op string, env *envelope) error {
	code, _ := rawInt(env.ResponseCode)
	switch {
	case code == 0, code == http.StatusOK, code == http.StatusNoContent, code == http.StatusNotFound:
		return fmt.Errorf("%s: %w: %s", op, ErrEmpty, env.Message)
	default:
		return &StatusError{Op: op, StatusCode: code, Message: env.Message}
	}
}

// FetchCatalogPage fetches one upstream catalog page. Items that fail to
// decode are skipped and counted rather than failing the page.
func (c *Client) FetchCatalogPage(ctx context.Context, page, size int) (*models.CatalogPage, error) {
	const op = "catalog"

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))

	resp, err := c.do(ctx, op, c.catalogPath, params)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(op, resp)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformed, err)
	}
	if !env.Success {
		return nil, envelopeError(op, &env)
	}

	result := &models.CatalogPage{
		Page:    page,
		Size:    size,
		Items:   make([]models.Track, 0, len(env.Datas)),
		HasNext: rawTruthy(env.PageData.Next),
		Total:   -1,
	}
	if total, ok := rawInt(env.PageData.Total); ok && total >= 0 {
		result.Total = total
	}

	for i, raw := range env.Datas {
		var track models.Track
		if err := json.Unmarshal(raw, &track); err != nil {
			metrics.MalformedFields.WithLabelValues("catalog_item").Inc()
			logging.Warn().Err(err).Int("page", page).Int("index", i).Msg("Skipping malformed catalog item")
			continue
		}
		result.Items = append(result.Items, track)
	}

	return result, nil
}

// FetchReport downloads the ZIP report for date (YYYY-MM-DD). A JSON body
// is treated as an envelope: success=false or an empty envelope is ErrEmpty.
func (c *Client) FetchReport(ctx context.Context, date string) ([]byte, error) {
	const op = "report"

	params := url.Values{}
	params.Set("date", date)

	resp, err := c.do(ctx, op, c.reportPath, params)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s %s: %w", op, date, ErrEmpty)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(op, resp)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxReport+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: reading body: %v", ErrUnreachable, op, err)
	}
	if int64(len(body)) > c.maxReport {
		return nil, fmt.Errorf("%s: %w: report exceeds %d bytes", op, ErrMalformed, c.maxReport)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%s %s: %w", op, date, ErrEmpty)
	}
	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformed, err)
		}
		return nil, envelopeError(op, &env)
	}
	if !bytes.HasPrefix(body, []byte("PK")) {
		return nil, fmt.Errorf("%s: %w: body is not a ZIP archive", op, ErrMalformed)
	}

	return body, nil
}

// rawInt decodes a JSON number or numeric string.
func rawInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return int(v), true
		}
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v, true
		}
	}
	return 0, false
}

// rawTruthy interprets page_data.next, which the upstream has sent as a
// boolean, a page number, a URL string and null.
func rawTruthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	if n, ok := rawInt(raw); ok {
		return n > 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(strings.ToLower(s))
		return s != "" && s != "false" && s != "0" && s != "null"
	}
	return false
}

var _ API = (*Client)(nil)

// errorKind names the taxonomy bucket of err for logs and metrics.
func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrEmpty):
		return "empty"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
