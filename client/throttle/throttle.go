package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config defines the throttler's
// Requests Per Second and Burst Rate
type Config struct {
	RPS   int
	Burst int
}

// throttle is an http.RoundTripper, using the time/rate token
// bucket limiter to restrict calls to the API.
type throttle struct {
	limiter *rate.Limiter
	cfg     Config
	next    http.RoundTripper
	logFn   func() *slog.Logger
}

// NewRoundTripper returns an http.RoundTripper that throttles outbound requests
// using a token bucket rate limiter. logFn lazily resolves the logger at request
// time, so the logger may be configured after the transport chain is built.
// A nil-returning logFn disables the exhaustion log lines.
func NewRoundTripper(rps, burst int, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}
	if next == nil {
		next = http.DefaultTransport
	}

	t := &throttle{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		cfg:     Config{RPS: rps, Burst: burst},
		next:    next,
		logFn:   logFn,
	}

	return t, nil
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	// Reserve rather than Allow+Wait so the token consumed is the one waited for.
	res := t.limiter.Reserve()
	if !res.OK() {
		return nil, fmt.Errorf("%w: burst %d exceeded", ErrWaitingFailed, t.cfg.Burst)
	}

	if delay := res.Delay(); delay > 0 {
		var logger *slog.Logger
		if t.logFn != nil {
			logger = t.logFn()
		}
		if logger != nil {
			logger.Info("api throttle tokens exhausted", "rate", t.cfg.RPS, "burst", t.cfg.Burst, "path", r.URL.Path, "delay", delay.String())
		}

		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
			res.Cancel()
			return nil, fmt.Errorf("%w: would exceed context deadline", ErrWaitingFailed)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			res.Cancel()
			return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, ctx.Err())
		case <-timer.C:
		}

		if logger != nil {
			logger.Info("api throttle wait complete", "waited", delay.String(), "rate", t.cfg.RPS, "burst", t.cfg.Burst)
		}
	}

	return t.next.RoundTrip(r)
}
