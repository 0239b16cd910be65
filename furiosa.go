// Package furiosa is a client for the FuriosaAI compiler and DSS APIs.
//
// A [Client] submits a model for compilation, polls the resulting task
// until the server reports a terminal phase, then returns the compiled
// binary or the compiler log as an error:
//
//	c, err := furiosa.New()
//	if err != nil {
//		return err
//	}
//	req := furiosa.NewCompileRequest(npuSpec, model).WithFilename("model.onnx")
//	binary, err := c.Compile(ctx, req)
//
// Credentials, the endpoint and the polling settings are resolved by
// [github.com/furiosa-ai/furiosa-client/credential] unless given as options.
// Every public operation fails with an [*errs.Error].
package furiosa

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/furiosa-ai/furiosa-client/client"
	"github.com/furiosa-ai/furiosa-client/credential"
	"github.com/furiosa-ai/furiosa-client/errs"
)

// Version is the SDK version sent with every request.
const Version = "0.3.0"

const tracerName = "github.com/furiosa-ai/furiosa-client"

// UserAgent returns the User-Agent header value for an SDK version.
func UserAgent(version string) string {
	return "FuriosaAI Go Client (ver." + version + ")"
}

// PollPolicy bounds the compile task poll loop.
type PollPolicy struct {
	// Interval is the wait before every status fetch.
	Interval time.Duration
	// Timeout is the total time spent polling. Zero means no limit.
	Timeout time.Duration
	// MaxPolls caps the number of status fetches. Zero means no limit.
	MaxPolls int
}

// Client talks to the API. It is safe for concurrent use.
type Client struct {
	hc       *client.Client
	endpoint string
	poll     PollPolicy
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New resolves credentials and settings, applies optFns on top and
// builds the HTTP transport. It fails with an errs.KindNoCredentials
// error when no access key pair can be found.
func New(optFns ...Option) (*Client, error) {
	opts := options{sdkVersion: Version}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, errs.Wrap(errs.KindInvalidArgument, "applying option", err)
		}
	}

	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}

	credOpts := []credential.Option{credential.WithLogger(logger)}
	if opts.homeDir != nil {
		credOpts = append(credOpts, credential.WithHomeDir(*opts.homeDir))
	}
	if opts.accessKeyID != "" {
		credOpts = append(credOpts, credential.WithKeys(opts.accessKeyID, opts.secretAccessKey))
	}
	settings, err := credential.Resolve(credOpts...)
	if err != nil {
		return nil, err
	}

	endpoint := settings.Endpoint
	if opts.endpoint != nil {
		endpoint = credential.NormalizeEndpoint(*opts.endpoint)
	}
	if _, err := client.JoinURL(endpoint); err != nil {
		return nil, err
	}

	poll := PollPolicy{Interval: settings.PollInterval, Timeout: settings.PollTimeout}
	if opts.pollInterval != nil {
		poll.Interval = *opts.pollInterval
	}
	if opts.pollTimeout != nil {
		poll.Timeout = *opts.pollTimeout
	}
	if opts.maxPolls != nil {
		poll.MaxPolls = *opts.maxPolls
	}
	if opts.indefinite {
		poll.Timeout, poll.MaxPolls = 0, 0
	}

	clientOpts := append([]client.Option{
		client.WithCredentials(settings.AccessKeyID, settings.SecretAccessKey),
		client.WithSDKVersion(opts.sdkVersion),
		client.WithUserAgent(UserAgent(opts.sdkVersion)),
		client.WithLogger(logger),
	}, opts.clientOpts...)

	hc, err := client.Build(clientOpts...)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidArgument, "building http client", err)
	}

	tracer := opts.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	logger.Info("connecting API endpoint", "endpoint", endpoint)

	return &Client{
		hc:       hc,
		endpoint: endpoint,
		poll:     poll,
		logger:   logger,
		tracer:   tracer,
	}, nil
}

// Endpoint returns the normalized API endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// PollPolicy returns the policy applied to compile tasks.
func (c *Client) PollPolicy() PollPolicy {
	return c.poll
}

// url joins elems under the endpoint. The endpoint was validated in New.
func (c *Client) url(elems ...string) *url.URL {
	u, err := client.JoinURL(c.endpoint, elems...)
	if err != nil {
		panic(fmt.Sprintf("furiosa: endpoint %q became invalid: %v", c.endpoint, err))
	}
	return u
}

func (c *Client) compilerURL(elems ...string) *url.URL {
	return c.url(append([]string{"api", "compiler", "v1alpha1"}, elems...)...)
}

func (c *Client) dssURL(elems ...string) *url.URL {
	return c.url(append([]string{"api", "dss", "v1alpha1"}, elems...)...)
}
