package jira

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/bobmcallan/jira-mcp/internal/common"
)

// Response is the raw outcome of an exchange that reached the server.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
	// Exhausted is set when the transport gave up retrying a transient status (429/503).
	Exhausted bool
}

// Executor performs a built request. *Transport is the production implementation.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// TransportConfig holds timeouts, limits and the retry policy.
type TransportConfig struct {
	Policy           RetryPolicy
	AttemptTimeout   time.Duration
	ConnectTimeout   time.Duration
	MaxResponseBytes int64
}

// DefaultTransportConfig returns a 30s attempt timeout, 10s connect timeout and a 10MB body cap.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Policy:           DefaultRetryPolicy(),
		AttemptTimeout:   30 * time.Second,
		ConnectTimeout:   10 * time.Second,
		MaxResponseBytes: 10 << 20,
	}
}

// Transport executes requests with per-attempt timeouts and bounded retries.
// A single Transport (and its connection pool) is shared by all invocations.
type Transport struct {
	client *http.Client
	cfg    TransportConfig
	logger *common.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewTransport creates a Transport with its own pooled http.Client.
func NewTransport(cfg TransportConfig, logger *common.Logger) *Transport {
	if cfg.Policy.MaxAttempts < 1 {
		cfg.Policy.MaxAttempts = 1
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = 10 << 20
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}).DialContext
	base.MaxIdleConnsPerHost = 16

	return &Transport{
		client: &http.Client{
			Transport: base,
			// A redirect from JIRA means a login page or a moved site, never data.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cfg:    cfg,
		logger: logger,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type retryState int

const (
	stateAttempting retryState = iota
	stateBackoff
	// stateSucceeded is any outcome the loop accepts as final, including a
	// non-retryable error status or failure.
	stateSucceeded
	stateExhausted
)

// attemptOutcome is what a single exchange produced.
type attemptOutcome struct {
	resp       *Response
	err        error
	kind       Kind
	connected  bool
	fatal      bool
	retryAfter time.Duration
}

// Execute runs req through the retry state machine.
func (t *Transport) Execute(ctx context.Context, req *Request) (*Response, error) {
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return nil, &TransportError{Kind: KindConnectionFailed, Err: fmt.Errorf("invalid request url: %w", err)}
	}
	logger := loggerFrom(ctx, t.logger)

	var (
		state      = stateAttempting
		attempt    int
		lastStatus int
		last       attemptOutcome
	)
	for {
		switch state {
		case stateAttempting:
			if err := ctx.Err(); err != nil {
				return nil, &TransportError{Kind: KindCancelled, Attempts: attempt, LastStatus: lastStatus, Err: err}
			}
			attempt++
			last = t.attempt(ctx, req, attempt, logger)
			if last.resp != nil {
				lastStatus = last.resp.StatusCode
			}
			switch {
			case !t.retryable(req.Method, last):
				state = stateSucceeded
			case attempt >= t.cfg.Policy.MaxAttempts:
				state = stateExhausted
			default:
				state = stateBackoff
			}

		case stateBackoff:
			wait := NextBackoff(t.cfg.Policy, attempt, last.retryAfter)
			logger.Debug().Str("tool", req.Tool).Int("attempt", attempt).Dur("wait", wait).Msg("jira: backing off before retry")
			if err := t.sleep(ctx, wait); err != nil {
				return nil, &TransportError{Kind: KindCancelled, Attempts: attempt, LastStatus: lastStatus, Err: err}
			}
			state = stateAttempting

		case stateSucceeded:
			if last.err != nil {
				return nil, &TransportError{
					Kind:       last.kind,
					Attempts:   attempt,
					LastStatus: lastStatus,
					Retryable:  last.kind == KindTimeout,
					Err:        last.err,
				}
			}
			last.resp.Attempts = attempt
			return last.resp, nil

		case stateExhausted:
			logger.Warn().Str("tool", req.Tool).Int("attempts", attempt).Int("last_status", lastStatus).Msg("jira: retries exhausted")
			if last.resp != nil {
				last.resp.Attempts = attempt
				last.resp.Exhausted = true
				return last.resp, nil
			}
			return nil, &TransportError{Kind: KindExhausted, Attempts: attempt, LastStatus: lastStatus, Err: last.err}
		}
	}
}

// retryable decides whether an outcome may be attempted again.
// Mutating methods are repeated only when no connection was ever made.
func (t *Transport) retryable(method string, o attemptOutcome) bool {
	if o.fatal || o.kind == KindCancelled {
		return false
	}
	if !isIdempotent(method) {
		return o.err != nil && !o.connected
	}
	if o.err != nil {
		return o.kind == KindTimeout || o.kind == KindConnectionFailed
	}
	return o.resp.StatusCode == http.StatusTooManyRequests || o.resp.StatusCode == http.StatusServiceUnavailable
}

func (t *Transport) attempt(ctx context.Context, req *Request, n int, logger *common.Logger) attemptOutcome {
	actx, cancel := context.WithTimeout(ctx, t.cfg.AttemptTimeout)
	defer cancel()

	var connected atomic.Bool
	actx = httptrace.WithClientTrace(actx, &httptrace.ClientTrace{
		GotConn: func(httptrace.GotConnInfo) { connected.Store(true) },
	})

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(actx, req.Method, req.URL, body)
	if err != nil {
		return attemptOutcome{err: err, kind: KindConnectionFailed, fatal: true}
	}
	hreq.Header = req.Header.Clone()

	start := time.Now()
	resp, err := t.client.Do(hreq)
	if err != nil {
		kind := classifyError(ctx, err)
		logger.Debug().Str("tool", req.Tool).Str("method", req.Method).Int("attempt", n).
			Str("kind", string(kind)).Dur("duration", time.Since(start)).Msg("jira: exchange failed")
		return attemptOutcome{err: err, kind: kind, connected: connected.Load()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.cfg.MaxResponseBytes+1))
	if err != nil {
		return attemptOutcome{err: fmt.Errorf("failed to read response: %w", err), kind: classifyError(ctx, err), connected: true}
	}
	if int64(len(data)) > t.cfg.MaxResponseBytes {
		return attemptOutcome{
			err:       fmt.Errorf("response body exceeds %d bytes", t.cfg.MaxResponseBytes),
			kind:      KindServerFault,
			connected: true,
			fatal:     true,
		}
	}

	logger.Debug().Str("tool", req.Tool).Str("method", req.Method).Str("path", hreq.URL.Path).
		Int("status", resp.StatusCode).Int("attempt", n).Dur("duration", time.Since(start)).Msg("jira: exchange complete")

	return attemptOutcome{
		resp: &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       data,
		},
		connected:  true,
		retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), t.now()),
	}
}

// classifyError maps a client error to Cancelled, Timeout or ConnectionFailed.
// ctx is the invocation context, not the per-attempt one.
func classifyError(ctx context.Context, err error) Kind {
	if ctx.Err() != nil {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindConnectionFailed
}
