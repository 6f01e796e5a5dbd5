package cricketfeed

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/livescore/internal/domain/match"
	"github.com/riskibarqy/livescore/internal/platform/logging"
	"github.com/riskibarqy/livescore/internal/platform/resilience"
	"github.com/riskibarqy/livescore/internal/usecase"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBaseURL      = "https://cricket-feed.example.com/v1"
	defaultTimeout      = 5 * time.Second
	defaultRetryBackoff = 250 * time.Millisecond
	maxResponseBytes    = 6 << 20
	apiKeyHeader        = "x-api-key"
	statusSuccess       = "success"
)

var apiKeyParamRegex = regexp.MustCompile(`(?i)(api_?key=)[^&\s"']+`)

var (
	errFeedTransient = crerr.New("cricket feed transient failure")
	errFeedMalformed = crerr.New("cricket feed malformed payload")
	errFeedNotFound  = crerr.New("cricket feed resource not found")
)

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads match snapshots and listings from the cricket data provider.
// It implements match.Feed.
type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	apiKey         string
	timeout        time.Duration
	maxRetries     int
	retryBackoff   time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         singleflight.Group
	now            func() time.Time
}

var _ match.Feed = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("cricketfeed")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                "livescore",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxResponseBytes,
		}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}

	breakerCfg := cfg.CircuitBreaker.Normalized()
	if breakerCfg.OnStateChange == nil {
		breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
			logger.Warn("cricket feed circuit breaker state changed", "from", from, "to", to)
		}
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		timeout:        timeout,
		maxRetries:     max(cfg.MaxRetries, 0),
		retryBackoff:   retryBackoff,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

func (c *Client) FetchMatch(ctx context.Context, matchID string) (match.Snapshot, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Snapshot{}, fmt.Errorf("%w: match id is required", usecase.ErrInvalidInput)
	}

	var payload envelope[matchPayload]
	path := "/matches/" + url.PathEscape(matchID)
	if err := c.doJSON(ctx, path, &payload); err != nil {
		return match.Snapshot{}, fmt.Errorf("fetch match id=%s: %w", matchID, err)
	}
	if err := payload.validate(); err != nil {
		return match.Snapshot{}, fmt.Errorf("fetch match id=%s: %w", matchID, err)
	}

	return mapSnapshot(matchID, *payload.Data, c.now().UTC()), nil
}

func (c *Client) ListMatches(ctx context.Context) ([]match.Summary, error) {
	var payload envelope[listingPayload]
	if err := c.doJSON(ctx, "/matches", &payload); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	if err := payload.validate(); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	return mapSummaries(payload.Data.Matches), nil
}

// doJSON fetches path and decodes the body into target, translating provider
// failures into usecase errors.
func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "cricket feed circuit breaker rejected request", "state", c.breaker.State(), "path", path)
			return fmt.Errorf("%w: cricket feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if isCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return translateError(err)
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("%w: unexpected response payload type %T", usecase.ErrMalformedPayload, out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode provider payload: %v", usecase.ErrMalformedPayload, err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := c.send(ctx, fullURL)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !stderrors.Is(err, errFeedTransient) {
			break
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * c.retryBackoff
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = crerr.New("provider request failed")
	}
	c.logger.WarnContext(ctx, "cricket feed request failed", "url", redactAPIURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, fullURL string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	deadline := c.now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		switch {
		case stderrors.Is(err, fasthttp.ErrBodyTooLarge):
			return nil, crerr.Mark(crerr.Newf("response body exceeds %d bytes", maxResponseBytes), errFeedMalformed)
		case isTimeout(err):
			return nil, fmt.Errorf("%w: send request: %w", errFeedTransient, context.DeadlineExceeded)
		default:
			return nil, fmt.Errorf("%w: send request: %s", errFeedTransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		}
	}

	status := resp.StatusCode()
	body := resp.Body()
	switch {
	case status >= 200 && status < 300:
		return append([]byte(nil), body...), nil
	case status == fasthttp.StatusNotFound:
		return nil, crerr.Mark(crerr.Newf("provider status=%d", status), errFeedNotFound)
	case isRetryableStatus(status):
		return nil, fmt.Errorf("%w: provider status=%d body=%s", errFeedTransient, status, abbreviateBody(body, c.apiKey))
	default:
		return nil, crerr.Newf("provider status=%d body=%s", status, abbreviateBody(body, c.apiKey))
	}
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case crerr.Is(err, errFeedNotFound):
		return fmt.Errorf("%w: %v", usecase.ErrNotFound, err)
	case crerr.Is(err, errFeedMalformed):
		return fmt.Errorf("%w: %v", usecase.ErrMalformedPayload, err)
	default:
		return fmt.Errorf("%w: %w", usecase.ErrDependencyUnavailable, err)
	}
}

func isTimeout(err error) bool {
	if stderrors.Is(err, fasthttp.ErrTimeout) || stderrors.Is(err, fasthttp.ErrDialTimeout) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errFeedTransient)
}

func isRetryableStatus(code int) bool {
	return code == fasthttp.StatusTooManyRequests || code >= fasthttp.StatusInternalServerError
}

func sanitizeSensitiveText(value, apiKey string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if apiKey != "" {
		value = strings.ReplaceAll(value, apiKey, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "${1}REDACTED")
}

func redactAPIURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return sanitizeSensitiveText(rawURL, "")
	}
	query := parsed.Query()
	for _, key := range []string{"apikey", "api_key", "apiKey"} {
		if query.Has(key) {
			query.Set(key, "REDACTED")
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func abbreviateBody(body []byte, apiKey string) string {
	text := sanitizeSensitiveText(string(body), apiKey)
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
