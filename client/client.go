package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/furiosa-ai/furiosa-client/artifact"
	"github.com/furiosa-ai/furiosa-client/client/retry"
	"github.com/furiosa-ai/furiosa-client/client/throttle"
	"github.com/furiosa-ai/furiosa-client/errs"
)

// Client wraps the std-lib *http.Client with the API's authentication
// headers and response decoding. The wrapped *http.Client and its
// transport chain can be customized via optional funcs.
type Client struct {
	c      *http.Client
	logger *slog.Logger
}

// Build constructs a Client. The transport chain is, from the outside in:
// API headers, retry, throttle, base transport.
func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		c:      &http.Client{},
		logger: slog.Default(),
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		cpy := *opts.client
		client.c = &cpy
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	logFn := func() *slog.Logger { return client.logger }
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(opts.throttle.RPS, opts.throttle.Burst, logFn, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	if opts.retry != nil {
		rt, err := retry.NewRoundTripper(*opts.retry, logFn, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring retry: %w", err)
		}
		transport = rt
	}
	transport = &apiHeaders{
		accessKeyID:     opts.accessKeyID,
		secretAccessKey: opts.secretAccessKey,
		sdkVersion:      opts.sdkVersion,
		userAgent:       opts.userAgent,
		newID:           opts.requestID,
		base:            transport,
	}
	client.c.Transport = transport

	return client, nil
}

// Do fires the request and, on a 2xx response, writes the body
// to the destination configured by opts, if any. Any other status is
// decoded as the API error body.
func (c *Client) Do(req *http.Request, opts ...DoOption) error {
	var settings doOpts
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return errs.Wrap(errs.KindInvalidArgument, "applying do option", err)
		}
	}

	doFunc := func(resp *http.Response) error {
		switch {
		case settings.raw != nil:
			b, err := io.ReadAll(resp.Body)
			if err != nil {
				if req.Context().Err() != nil {
					return transportError(req.Context(), err)
				}
				return errs.Wrap(errs.KindIO, "reading response body", err)
			}
			*settings.raw = b
		case settings.responseBody != nil:
			if err := json.NewDecoder(resp.Body).Decode(settings.responseBody); err != nil {
				if req.Context().Err() != nil {
					return transportError(req.Context(), err)
				}
				return &errs.Error{
					Kind:       errs.KindMalformedResponse,
					StatusCode: resp.StatusCode,
					Message:    fmt.Sprintf("decoding body: %v", err),
					Err:        err,
				}
			}
		}

		return nil
	}

	return c.exec(req, doFunc)
}

// Bytes fires the request and returns the raw body of a 2xx response.
func (c *Client) Bytes(req *http.Request) ([]byte, error) {
	var b []byte
	if err := c.Do(req, WithRawBody(&b)); err != nil {
		return nil, err
	}

	return b, nil
}

// Download executes a request that's intended to stream the response body to destPath.
// See [artifact.Handle] for the write semantics.
func (c *Client) Download(req *http.Request, destPath string, opts ...artifact.Option) error {
	if destPath == "" {
		return errs.New(errs.KindInvalidArgument, "destPath must not be empty")
	}

	dlFunc := func(resp *http.Response) error {
		return artifact.Handle(req.Context(), resp.Body, resp.ContentLength, destPath, c.logger, opts...)
	}

	return c.exec(req, dlFunc)
}

// exec runs the request and injected function on success after validating the status code.
func (c *Client) exec(req *http.Request, fn execFn) error {
	resp, err := c.c.Do(req)
	if err != nil {
		return transportError(req.Context(), err)
	}

	discardBody := true
	defer func() {
		if discardBody {
			if _, err := io.Copy(io.Discard, resp.Body); err != nil {
				c.logger.Error("failed to discard unused body", "error", err)
			}
		}
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if err := fn(resp); err != nil {
		discardBody = false
		return err
	}

	return nil
}

// transportError classifies a failed round trip. Context errors
// take precedence so callers can tell cancellation from network failure.
func transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return errs.Wrap(errs.KindCancelled, "request cancelled", err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return errs.Wrap(errs.KindTimeout, "request deadline exceeded", err)
	default:
		return errs.Wrap(errs.KindAPI, err.Error(), err)
	}
}

// Request instantiates an *http.Request with the provided information.
// Content-Type is `application/json` unless WithMultipart sets the form's
// boundary type.
func Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	var settings requestOpts
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, errs.Wrap(errs.KindInvalidArgument, "applying request option", err)
		}
	}

	var (
		payload     *bytes.Buffer
		contentType = "application/json"
	)
	switch {
	case settings.form != nil:
		buf, ct, err := settings.form.encode()
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalidArgument, "encoding multipart form", err)
		}
		payload, contentType = buf, ct
	case settings.body != nil:
		payload = new(bytes.Buffer)
		if err := json.NewEncoder(payload).Encode(settings.body); err != nil {
			return nil, errs.Wrap(errs.KindInvalidArgument, "encoding request payload", err)
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload.Bytes())
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidArgument, "instantiating request", err)
	}

	req.Header.Set("Content-Type", contentType)
	for k, v := range settings.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}

	return req, nil
}

// Request instantiates an *http.Request with the provided information.
// It's just a convenience method that wraps the public Request func.
func (c *Client) Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	return Request(ctx, reqURL, method, opts...)
}

// JoinURL appends the escaped path elements to base, which may already carry a path prefix.
func JoinURL(base string, elems ...string) (*url.URL, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidArgument, "parsing endpoint", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errs.New(errs.KindInvalidArgument, fmt.Sprintf("endpoint %q must be an absolute URL", base))
	}

	return u.JoinPath(elems...), nil
}
