// internal/analytics/client.go
package analytics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/wanderer/internal/config"
)

const (
	exportPath = "/api/2.0/export"
	// bodyExcerptLimit bounds how much of an error body ends up in an error.
	bodyExcerptLimit = 512
)

// DataLocations are the residency-specific hosts of the export API.
var DataLocations = []string{"data", "data-eu", "data-in"}

// Client downloads raw events from the export API.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient builds a client for the configured data location. BaseURL, when
// set, replaces the scheme and host.
func NewClient(cfg config.MixpanelConfig, logger *zap.Logger) (*Client, error) {
	endpoint, err := exportEndpoint(cfg)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newDecompressingTransport(nil),
		},
		limiter: limiter,
		logger:  logger.Named("analytics"),
	}, nil
}

func exportEndpoint(cfg config.MixpanelConfig) (string, error) {
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "", &ValidationError{Field: "base_url", Reason: fmt.Sprintf("%q is not an absolute URL", cfg.BaseURL)}
		}
		return strings.TrimRight(cfg.BaseURL, "/") + exportPath, nil
	}
	loc := cfg.DataLocation
	if loc == "" {
		loc = "data-eu"
	}
	for _, known := range DataLocations {
		if loc == known {
			return "https://" + loc + ".mixpanel.com" + exportPath, nil
		}
	}
	return "", &ValidationError{Field: "data_location", Reason: fmt.Sprintf("%q is not one of %v", loc, DataLocations)}
}

// Endpoint is the export URL this client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchEvents downloads and decodes the events selected by params.
// Credentials and params are validated before any request is made.
func (c *Client) FetchEvents(ctx context.Context, creds Credentials, params ExportParams) (*Events, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, creds, params)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for export rate limit: %w", err)
	}

	logger := c.logger.With(zap.String("range", params.Range.String()))
	logger.Info("Requesting event export.", zap.Strings("events", params.Events), zap.Int("limit", params.Limit))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("export request for %s interrupted: %w", params.Range, ctx.Err())
		}
		return nil, &NetworkError{Range: params.Range, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp, params.Range)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("export download for %s interrupted: %w", params.Range, ctx.Err())
		}
		return nil, &NetworkError{Range: params.Range, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}

	events, err := DecodeBytes(body)
	if err != nil {
		return nil, fmt.Errorf("decoding export for %s: %w", params.Range, err)
	}

	logger.Info("Event export decoded.",
		zap.Int("events", events.Len()),
		zap.Int("skipped", events.Skipped()),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)))
	if events.Skipped() > 0 {
		logger.Warn("Some export records were not valid events and were skipped.", zap.Int("skipped", events.Skipped()))
	}
	return events, nil
}

func (c *Client) newRequest(ctx context.Context, creds Credentials, params ExportParams) (*http.Request, error) {
	q := url.Values{}
	q.Set("from_date", params.Range.FromString())
	q.Set("to_date", params.Range.ToString())
	q.Set("project_id", creds.ProjectID)
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if len(params.Events) > 0 {
		encoded, err := json.Marshal(params.Events)
		if err != nil {
			return nil, fmt.Errorf("failed to encode event filter: %w", err)
		}
		q.Set("event", string(encoded))
	}
	if params.Where != "" {
		q.Set("where", params.Where)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create export request: %w", err)
	}
	req.SetBasicAuth(creds.Username, creds.Secret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)
	return req, nil
}

// statusError maps a non-2xx response onto the error taxonomy.
func (c *Client) statusError(resp *http.Response, r DateRange) error {
	excerpt := readExcerpt(resp.Body)
	c.logger.Debug("Export API returned an error status.",
		zap.Int("status", resp.StatusCode),
		zap.String("range", r.String()))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthenticationError{StatusCode: resp.StatusCode, Message: excerpt}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &NetworkError{Range: r, StatusCode: resp.StatusCode, Err: errors.New(excerptOrStatus(excerpt, resp.StatusCode))}
	default:
		return &APIError{StatusCode: resp.StatusCode, Body: excerpt}
	}
}

func readExcerpt(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, bodyExcerptLimit))
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return strings.TrimSpace(string(b))
}

func excerptOrStatus(excerpt string, status int) string {
	if excerpt != "" {
		return excerpt
	}
	return http.StatusText(status)
}
