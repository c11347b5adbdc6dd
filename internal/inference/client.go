package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mindsage/analyzer/internal/metrics"
	"github.com/mindsage/analyzer/internal/tracing"
)

const maxResponseBytes = 4 << 20

// HTTPDoer is the transport used by Client. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Caller is the narrow contract consumed by the scorer and generators.
type Caller interface {
	Call(ctx context.Context, endpoint Endpoint, payload Request) Result
}

// Client posts JSON to the remote inference endpoints with bounded retries
// and exponential backoff. It keeps no per-request state between calls.
type Client struct {
	cfg     Config
	http    HTTPDoer
	sleep   Sleeper
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPDoer replaces the transport, typically with an httptest client.
func WithHTTPDoer(d HTTPDoer) Option {
	return func(c *Client) { c.http = d }
}

// WithSleeper replaces the backoff wait.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// NewClient creates an inference client from cfg.
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:    cfg.WithDefaults(),
		sleep:  ContextSleep,
		logger: logger,
	}
	c.http = &http.Client{Timeout: c.cfg.Timeout}
	if c.cfg.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.cfg.RPS), c.cfg.Burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// ContextSleep waits on a timer that is abandoned when ctx is canceled, so a
// pending backoff never outlives its request.
func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// attemptOutcome classifies one HTTP exchange.
type attemptOutcome string

const (
	outcomeOK          attemptOutcome = "ok"
	outcomeAuth        attemptOutcome = "auth"
	outcomeLoading     attemptOutcome = "loading"
	outcomeRateLimited attemptOutcome = "rate_limited"
	outcomeStatus      attemptOutcome = "status"
	outcomeNetwork     attemptOutcome = "network"
	outcomeCanceled    attemptOutcome = "canceled"
)

type attemptResult struct {
	outcome attemptOutcome
	status  int
	body    []byte
	err     error
}

// Call posts payload to endpoint. A 401 fails at once; every other failure
// is retried up to MaxRetries attempts, waiting InitialWait*2^(n-1) after
// the n-th failed attempt. No wait follows the final attempt.
func (c *Client) Call(ctx context.Context, endpoint Endpoint, payload Request) Result {
	start := time.Now()
	defer func() {
		metrics.RecordInferenceDuration(string(endpoint), time.Since(start).Seconds())
	}()

	url, err := c.cfg.URL(endpoint)
	if err != nil {
		return Result{Failure: &Failure{Kind: KindTransient, Endpoint: endpoint, Err: err}}
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return Result{Failure: &Failure{Kind: KindMalformed, Endpoint: endpoint, Err: fmt.Errorf("encode payload: %w", err)}}
	}

	ctx, span := tracing.StartInferenceSpan(ctx, string(endpoint), url)
	defer span.End()

	var last attemptResult
	attempts := 0
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		attempts = attempt
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return c.canceled(span, endpoint, attempts, last.status, err)
			}
		}

		last = c.attempt(ctx, url, buf)
		metrics.RecordInferenceAttempt(string(endpoint), string(last.outcome))

		switch last.outcome {
		case outcomeOK:
			span.SetAttributes(attribute.Int("inference.attempts", attempt))
			return Result{Body: last.body, Attempts: attempt}
		case outcomeAuth:
			c.logger.Error("Inference credential rejected",
				zap.String("endpoint", string(endpoint)),
				zap.Int("attempt", attempt),
				zap.Int("status_code", last.status),
			)
			f := &Failure{Kind: KindAuth, Endpoint: endpoint, StatusCode: last.status, Attempts: attempt, Err: ErrAuthorization}
			span.SetStatus(codes.Error, f.Error())
			return Result{Attempts: attempt, Failure: f}
		case outcomeCanceled:
			return c.canceled(span, endpoint, attempt, last.status, last.err)
		}

		if attempt == c.cfg.MaxRetries {
			break
		}
		wait := c.cfg.Backoff(attempt)
		c.logger.Warn("Inference call failed, backing off",
			zap.String("endpoint", string(endpoint)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.MaxRetries),
			zap.Duration("backoff", wait),
			zap.String("failure_kind", string(last.outcome)),
			zap.Int("status_code", last.status),
			zap.Error(last.err),
		)
		metrics.RecordBackoff(string(endpoint), wait.Seconds())
		if err := c.sleep(ctx, wait); err != nil {
			return c.canceled(span, endpoint, attempt, last.status, err)
		}
	}

	cause := last.err
	if cause == nil {
		cause = ErrTransient
	}
	f := &Failure{Kind: KindTransient, Endpoint: endpoint, StatusCode: last.status, Attempts: attempts, Err: cause}
	c.logger.Warn("Inference retries exhausted",
		zap.String("endpoint", string(endpoint)),
		zap.Int("attempts", attempts),
		zap.String("failure_kind", string(last.outcome)),
		zap.Int("status_code", last.status),
	)
	span.SetStatus(codes.Error, f.Error())
	return Result{Attempts: attempts, Failure: f}
}

func (c *Client) canceled(span oteltrace.Span, endpoint Endpoint, attempts, status int, err error) Result {
	f := &Failure{Kind: KindCanceled, Endpoint: endpoint, StatusCode: status, Attempts: attempts, Err: err}
	span.SetStatus(codes.Error, f.Error())
	c.logger.Debug("Inference call canceled",
		zap.String("endpoint", string(endpoint)),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
	return Result{Attempts: attempts, Failure: f}
}

func (c *Client) attempt(ctx context.Context, url string, body []byte) attemptResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return attemptResult{outcome: outcomeNetwork, err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}
	tracing.InjectTraceparent(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return attemptResult{outcome: outcomeCanceled, err: err}
		}
		return attemptResult{outcome: outcomeNetwork, err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return attemptResult{outcome: outcomeCanceled, status: resp.StatusCode, err: err}
		}
		return attemptResult{outcome: outcomeNetwork, status: resp.StatusCode, err: err}
	}
	return classify(resp.StatusCode, data)
}

func classify(status int, body []byte) attemptResult {
	r := attemptResult{status: status, body: body}
	switch {
	case status >= 200 && status < 300:
		r.outcome = outcomeOK
	case status == http.StatusUnauthorized:
		r.outcome = outcomeAuth
	case status == http.StatusServiceUnavailable && strings.Contains(strings.ToLower(string(body)), "loading"):
		r.outcome = outcomeLoading
		r.err = errors.New("model loading")
	case status == http.StatusTooManyRequests:
		r.outcome = outcomeRateLimited
		r.err = errors.New("rate limited")
	default:
		r.outcome = outcomeStatus
		r.err = fmt.Errorf("unexpected status %d", status)
	}
	return r
}
