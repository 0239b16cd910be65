// Package blocking wraps [furiosa.Client] for callers that do not manage
// contexts. Each Client owns a base context that bounds every call and is
// cancelled by Close. Polling behaves exactly as in the wrapped client.
package blocking

import (
	"context"
	"sync"

	furiosa "github.com/furiosa-ai/furiosa-client"
	"github.com/furiosa-ai/furiosa-client/artifact"
	"github.com/furiosa-ai/furiosa-client/errs"
)

// Client is a blocking façade over a [furiosa.Client].
type Client struct {
	inner  *furiosa.Client
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New builds a furiosa.Client with opts and wraps it.
func New(opts ...furiosa.Option) (*Client, error) {
	inner, err := furiosa.New(opts...)
	if err != nil {
		return nil, err
	}

	return Wrap(inner), nil
}

// Wrap returns a blocking façade over c.
func Wrap(c *furiosa.Client) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{inner: c, ctx: ctx, cancel: cancel}
}

// Close cancels every call in flight. Later calls fail with errs.ErrCancelled.
func (c *Client) Close() error {
	c.once.Do(c.cancel)
	return nil
}

// Endpoint returns the normalized API endpoint.
func (c *Client) Endpoint() string {
	return c.inner.Endpoint()
}

// Compile blocks until the compiled binary is available.
func (c *Client) Compile(req furiosa.CompileRequest) ([]byte, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	return c.inner.Compile(c.ctx, req)
}

// CompileToFile blocks until the compiled binary is written to destPath.
func (c *Client) CompileToFile(req furiosa.CompileRequest, destPath string, opts ...artifact.Option) error {
	if err := c.alive(); err != nil {
		return err
	}
	return c.inner.CompileToFile(c.ctx, req, destPath, opts...)
}

// Calibrate blocks until the calibration model is returned.
func (c *Client) Calibrate(req furiosa.CalibrateRequest) ([]byte, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	return c.inner.Calibrate(c.ctx, req)
}

// Quantize blocks until the quantized model is returned.
func (c *Client) Quantize(req furiosa.QuantizeRequest) ([]byte, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	return c.inner.Quantize(c.ctx, req)
}

// Optimize blocks until the optimized model is returned.
func (c *Client) Optimize(req furiosa.OptimizeRequest) ([]byte, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	return c.inner.Optimize(c.ctx, req)
}

// ServerVersion returns the compiler service version.
func (c *Client) ServerVersion() (furiosa.VersionInfo, error) {
	if err := c.alive(); err != nil {
		return furiosa.VersionInfo{}, err
	}
	return c.inner.ServerVersion(c.ctx)
}

func (c *Client) alive() error {
	if err := c.ctx.Err(); err != nil {
		return errs.Wrap(errs.KindCancelled, "client closed", err)
	}
	return nil
}
