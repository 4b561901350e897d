package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"

	"github.com/miradorstack/wpdiag/internal/models"
)

// StatusError reports a non-success HTTP status from the probed site.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// SiteProber performs the outbound self-requests the engine cannot get from a snapshot:
// the wp-cron.php loopback and the response headers used for CDN detection.
type SiteProber struct {
	baseURL      string
	loopbackPath string
	attempts     uint
	retryDelay   time.Duration
	httpClient   *http.Client
	cb           *gobreaker.CircuitBreaker
	logger       *slog.Logger
}

// NewSiteProber constructs a prober for the site at baseURL.
func NewSiteProber(baseURL, loopbackPath string, timeout time.Duration, attempts uint, logger *slog.Logger) *SiteProber {
	if logger == nil {
		logger = slog.Default()
	}
	if loopbackPath == "" {
		loopbackPath = "/wp-cron.php"
	}
	if attempts == 0 {
		attempts = 3
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "wpdiag-site-probe",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("site probe circuit state changed", slog.String("breaker", name), slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})
	return &SiteProber{
		baseURL:      strings.TrimRight(baseURL, "/"),
		loopbackPath: loopbackPath,
		attempts:     attempts,
		retryDelay:   200 * time.Millisecond,
		httpClient:   &http.Client{Timeout: timeout},
		cb:           cb,
		logger:       logger,
	}
}

// ProbeLoopback requests wp-cron.php on the site itself, the same request WordPress makes
// to spawn cron.
func (p *SiteProber) ProbeLoopback(ctx context.Context) models.ProbeResult {
	if p == nil || p.baseURL == "" {
		return models.ProbeResult{}
	}
	target := p.loopbackURL()
	resp, latency, err := p.get(ctx, target)
	if err != nil {
		p.logger.Debug("loopback probe failed", slog.String("url", target), slog.Any("error", err))
		return failureWithCode(err)
	}
	return models.ProbeSucceeded(resp.StatusCode, latency)
}

// ProbeHeaders fetches the site root and returns its response headers, lower-cased and
// flattened to the first value.
func (p *SiteProber) ProbeHeaders(ctx context.Context) (map[string]string, models.ProbeResult) {
	if p == nil || p.baseURL == "" {
		return nil, models.ProbeResult{}
	}
	resp, latency, err := p.get(ctx, p.baseURL+"/")
	if err != nil {
		p.logger.Debug("header probe failed", slog.String("url", p.baseURL), slog.Any("error", err))
		return nil, failureWithCode(err)
	}
	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}
	return headers, models.ProbeSucceeded(resp.StatusCode, latency)
}

type probeResponse struct {
	StatusCode int
	Header     http.Header
}

func (p *SiteProber) get(ctx context.Context, target string) (probeResponse, float64, error) {
	start := time.Now()
	result, err := p.cb.Execute(func() (interface{}, error) {
		var out probeResponse
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(p.attempts),
			retry.Delay(p.retryDelay),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				return retry.BackOffDelay(n, err, config)
			}),
			retry.RetryIf(retryable),
			retry.LastErrorOnly(true),
		)
		retryErr := r.Do(func() error {
			resp, err := p.do(ctx, target)
			if err != nil {
				return err
			}
			out = resp
			return nil
		})
		return out, retryErr
	})
	latency := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		return probeResponse{}, latency, err
	}
	return result.(probeResponse), latency, nil
}

func (p *SiteProber) do(ctx context.Context, target string) (probeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return probeResponse{}, retry.Unrecoverable(err)
	}
	req.Header.Set("User-Agent", "wpdiag-probe/1.0")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return probeResponse{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= http.StatusBadRequest {
		return probeResponse{}, &StatusError{Code: resp.StatusCode}
	}
	return probeResponse{StatusCode: resp.StatusCode, Header: resp.Header}, nil
}

func (p *SiteProber) loopbackURL() string {
	u, err := url.Parse(p.baseURL + p.loopbackPath)
	if err != nil {
		return p.baseURL + p.loopbackPath
	}
	q := u.Query()
	q.Set("doing_wp_cron", fmt.Sprintf("%.4f", float64(time.Now().UnixNano())/1e9))
	u.RawQuery = q.Encode()
	return u.String()
}

// retryable retries transport errors and 5xx/429 responses; other client errors are final.
func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError || statusErr.Code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

func failureWithCode(err error) models.ProbeResult {
	result := models.ProbeFailure(err)
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		result.StatusCode = statusErr.Code
	}
	return result
}
