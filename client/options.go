package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/furiosa-ai/furiosa-client/client/retry"
	"github.com/furiosa-ai/furiosa-client/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client          *http.Client
	rt              http.RoundTripper
	timeout         *time.Duration
	userAgent       string
	throttle        *throttle.Config
	retry           *retry.Config
	logger          *slog.Logger
	accessKeyID     string
	secretAccessKey string
	sdkVersion      string
	requestID       func() string
}

// WithClient replaces the default [http.Client] used by the [Client].
// The given client is copied, never mutated.
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the per-request timeout on the underlying [http.Client].
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		c.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithRetry retries a single HTTP call on transport failures and
// transient statuses. See [retry.NewRoundTripper].
func WithRetry(cfg retry.Config) Option {
	return func(c *options) error {
		if cfg.MaxAttempts <= 0 {
			return fmt.Errorf("max attempts[%d] %w", cfg.MaxAttempts, retry.ErrMustBePositive)
		}
		c.retry = &cfg
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithCredentials attaches the access key pair to every request.
func WithCredentials(accessKeyID, secretAccessKey string) Option {
	return func(c *options) error {
		if accessKeyID == "" || secretAccessKey == "" {
			return errors.New("access key id and secret access key must not be empty")
		}
		c.accessKeyID = accessKeyID
		c.secretAccessKey = secretAccessKey
		return nil
	}
}

// WithSDKVersion sets the value of the SDK version header.
func WithSDKVersion(version string) Option {
	return func(c *options) error {
		c.sdkVersion = version
		return nil
	}
}

// WithRequestIDFunc replaces the generator of X-Request-Id values.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *options) error {
		if fn == nil {
			return errors.New("request id func must not be nil")
		}
		c.requestID = fn
		return nil
	}
}

// /////////////////////////////////////////////////////////////////

// DoOption is a functional option for [Client.Do].
type DoOption func(options *doOpts) error

type doOpts struct {
	responseBody any
	raw          *[]byte
}

// WithDestination decodes the JSON response body into bodyTemplate.
// bodyTemplate must be a pointer.
func WithDestination[T any](bodyTemplate *T) DoOption {
	return func(opts *doOpts) error {
		if bodyTemplate == nil {
			return errors.New("destination must not be nil")
		}
		opts.responseBody = bodyTemplate

		return nil
	}
}

// WithRawBody stores the undecoded response body in dst.
func WithRawBody(dst *[]byte) DoOption {
	return func(opts *doOpts) error {
		if dst == nil {
			return errors.New("destination must not be nil")
		}
		opts.raw = dst

		return nil
	}
}

// /////////////////////////////////////////////////////////////////

// RequestOption is a functional option for [Request].
type RequestOption func(options *requestOpts) error

type requestOpts struct {
	body    any
	form    *Form
	headers map[string][]string
}

// WithPayload sets the JSON-encoded request body.
func WithPayload(body any) RequestOption {
	return func(opts *requestOpts) error {
		opts.body = body

		return nil
	}
}

// WithMultipart sets a multipart/form-data body. It takes precedence over WithPayload.
func WithMultipart(form *Form) RequestOption {
	return func(opts *requestOpts) error {
		if form == nil {
			return errors.New("form must not be nil")
		}
		opts.form = form

		return nil
	}
}

// WithHeaders adds custom headers to the outgoing request.
func WithHeaders(headers map[string][]string) RequestOption {
	return func(opts *requestOpts) error {
		opts.headers = headers

		return nil
	}
}
