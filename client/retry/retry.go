// Package retry provides an [http.RoundTripper] that retries a single
// HTTP call with exponential backoff from
// [github.com/cenkalti/backoff/v5].
//
// Only transport failures and the transient statuses 429, 502, 503 and
// 504 are retried. Requests whose body cannot be rewound are sent once.
package retry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var (
	ErrMustBePositive = errors.New("must be greater than zero")
	errTransient      = errors.New("transient status")
)

// Config bounds the retries of one HTTP call.
type Config struct {
	// MaxAttempts counts the first attempt; 1 disables retries.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig returns three attempts starting at 200ms, capped at 5s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

type retrier struct {
	cfg   Config
	next  http.RoundTripper
	logFn func() *slog.Logger
}

// NewRoundTripper wraps next with retries bounded by cfg. Zero
// intervals fall back to [DefaultConfig].
func NewRoundTripper(cfg Config, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts[%d] %w", cfg.MaxAttempts, ErrMustBePositive)
	}
	def := DefaultConfig()
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if next == nil {
		next = http.DefaultTransport
	}

	return &retrier{cfg: cfg, next: next, logFn: logFn}, nil
}

func (rt *retrier) RoundTrip(r *http.Request) (*http.Response, error) {
	rewindable := r.Body == nil || r.Body == http.NoBody || r.GetBody != nil
	if rt.cfg.MaxAttempts == 1 || !rewindable {
		return rt.next.RoundTrip(r)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = rt.cfg.InitialInterval
	expo.MaxInterval = rt.cfg.MaxInterval

	var attempt int
	op := func() (*http.Response, error) {
		attempt++

		req := r
		if attempt > 1 && r.GetBody != nil {
			body, err := r.GetBody()
			if err != nil {
				return nil, backoff.Permanent(fmt.Errorf("rewinding request body: %w", err))
			}
			req = r.Clone(r.Context())
			req.Body = body
		}

		resp, err := rt.next.RoundTrip(req)
		if err != nil {
			if r.Context().Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		if transient(resp.StatusCode) && attempt < rt.cfg.MaxAttempts {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", errTransient, resp.StatusCode)
		}

		return resp, nil
	}

	notify := func(err error, next time.Duration) {
		if rt.logFn == nil {
			return
		}
		if logger := rt.logFn(); logger != nil {
			logger.Warn("retrying api call", "method", r.Method, "path", r.URL.Path, "attempt", attempt, "backoff", next.String(), "error", err)
		}
	}

	return backoff.Retry(r.Context(), op,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(rt.cfg.MaxAttempts)),
		backoff.WithNotify(notify),
	)
}

func transient(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
