package jira

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy bounds the transport's retry loop.
type RetryPolicy struct {
	MaxAttempts   int
	BaseBackoff   time.Duration
	Factor        float64
	MaxBackoff    time.Duration
	MaxRetryAfter time.Duration
}

// DefaultRetryPolicy is 3 attempts, 0.5s doubling, capped at 8s, Retry-After honored up to 60s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BaseBackoff:   500 * time.Millisecond,
		Factor:        2,
		MaxBackoff:    8 * time.Second,
		MaxRetryAfter: 60 * time.Second,
	}
}

// NextBackoff returns how long to wait after the given failed attempt (1-based).
// The wait is the exponential backoff, raised to the server's Retry-After hint
// when that is longer. The hint itself is capped by MaxRetryAfter.
func NextBackoff(p RetryPolicy, attempt int, retryAfter time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	d := time.Duration(float64(p.BaseBackoff) * math.Pow(factor, float64(attempt-1)))
	if p.MaxBackoff > 0 && (d > p.MaxBackoff || d < 0) {
		d = p.MaxBackoff
	}
	if retryAfter > 0 {
		if p.MaxRetryAfter > 0 && retryAfter > p.MaxRetryAfter {
			retryAfter = p.MaxRetryAfter
		}
		if retryAfter > d {
			d = retryAfter
		}
	}
	return d
}

// parseRetryAfter reads a Retry-After header as delay-seconds or an HTTP-date.
// Unparseable or past values yield zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}
