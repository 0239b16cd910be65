package furiosa

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/furiosa-ai/furiosa-client/client"
	"github.com/furiosa-ai/furiosa-client/client/retry"
)

// Option configures a [Client] built by [New].
type Option func(*options) error

type options struct {
	accessKeyID     string
	secretAccessKey string
	endpoint        *string
	homeDir         *string
	pollInterval    *time.Duration
	pollTimeout     *time.Duration
	maxPolls        *int
	indefinite      bool
	sdkVersion      string
	logger          *slog.Logger
	tracer          trace.Tracer
	clientOpts      []client.Option
}

// WithCredentials sets the access key pair instead of reading it from
// the environment or the credential dotfile.
func WithCredentials(accessKeyID, secretAccessKey string) Option {
	return func(o *options) error {
		if accessKeyID == "" || secretAccessKey == "" {
			return errors.New("access key id and secret access key must not be empty")
		}
		o.accessKeyID = accessKeyID
		o.secretAccessKey = secretAccessKey
		return nil
	}
}

// WithEndpoint overrides the API endpoint. Trailing slashes are removed.
func WithEndpoint(endpoint string) Option {
	return func(o *options) error {
		if endpoint == "" {
			return errors.New("endpoint must not be empty")
		}
		o.endpoint = &endpoint
		return nil
	}
}

// WithHomeDir sets the directory searched for .furiosa dotfiles.
// An empty dir disables them.
func WithHomeDir(dir string) Option {
	return func(o *options) error {
		o.homeDir = &dir
		return nil
	}
}

// WithPollInterval sets the wait before each task status fetch.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		o.pollInterval = &d
		return nil
	}
}

// WithPollTimeout bounds the time spent polling one task. Zero removes the bound.
func WithPollTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("poll timeout must not be negative")
		}
		o.pollTimeout = &d
		return nil
	}
}

// WithMaxPolls caps the status fetches of one task. Zero removes the cap.
func WithMaxPolls(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("max polls must not be negative")
		}
		o.maxPolls = &n
		return nil
	}
}

// WithIndefinitePolling removes both the poll timeout and the poll cap,
// so a task is polled until it reaches a terminal phase or ctx ends.
func WithIndefinitePolling() Option {
	return func(o *options) error {
		o.indefinite = true
		return nil
	}
}

// WithSDKVersion overrides the version reported in the SDK version and User-Agent headers.
func WithSDKVersion(version string) Option {
	return func(o *options) error {
		if version == "" {
			return errors.New("sdk version must not be empty")
		}
		o.sdkVersion = version
		return nil
	}
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTracer sets the tracer used for operation spans. Defaults to the
// global otel tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}

// WithHTTPClient uses a copy of hc for every request.
func WithHTTPClient(hc *http.Client) Option {
	return withClientOption(client.WithClient(hc))
}

// WithTransport sets the base [http.RoundTripper].
func WithTransport(rt http.RoundTripper) Option {
	return withClientOption(client.WithTransport(rt))
}

// WithTimeout sets the timeout of each individual HTTP call.
func WithTimeout(d time.Duration) Option {
	return withClientOption(client.WithTimeout(d))
}

// WithThrottle limits outgoing calls to rps requests per second with the given burst.
func WithThrottle(rps, burst int) Option {
	return withClientOption(client.WithThrottle(rps, burst))
}

// WithRetry retries each HTTP call up to maxAttempts times on transport
// failures and transient statuses. The poll loop itself is never retried.
func WithRetry(maxAttempts int) Option {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = maxAttempts
	return withClientOption(client.WithRetry(cfg))
}

func withClientOption(opt client.Option) Option {
	return func(o *options) error {
		o.clientOpts = append(o.clientOpts, opt)
		return nil
	}
}
