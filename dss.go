package furiosa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/furiosa-ai/furiosa-client/client"
	"github.com/furiosa-ai/furiosa-client/errs"
)

// DynamicRange is the (min, max) range of a tensor. It is encoded as a
// two element JSON array.
type DynamicRange struct {
	Min float64
	Max float64
}

// MarshalJSON implements json.Marshaler.
func (r DynamicRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Min, r.Max})
}

// UnmarshalJSON implements json.Unmarshaler.
// Arrays of any length other than two are rejected.
func (r *DynamicRange) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("dynamic range must be a [min, max] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("dynamic range must be a [min, max] pair, got %d values", len(pair))
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// CalibrateRequest asks for a calibration model of an ONNX source.
type CalibrateRequest struct {
	Filename     string
	Source       []byte
	InputTensors []string
}

// NewCalibrateRequest returns a request with the default filename.
func NewCalibrateRequest(source []byte, inputTensors []string) CalibrateRequest {
	return CalibrateRequest{Filename: DefaultFilename, Source: source, InputTensors: inputTensors}
}

// WithFilename returns a copy with the source part named filename.
func (r CalibrateRequest) WithFilename(filename string) CalibrateRequest {
	r.Filename = filename
	return r
}

// QuantizeRequest asks for a quantized model given per-tensor dynamic ranges.
type QuantizeRequest struct {
	Filename      string
	Source        []byte
	InputTensors  []string
	DynamicRanges map[string]DynamicRange
}

// NewQuantizeRequest returns a request with the default filename.
func NewQuantizeRequest(source []byte, inputTensors []string, ranges map[string]DynamicRange) QuantizeRequest {
	return QuantizeRequest{
		Filename:      DefaultFilename,
		Source:        source,
		InputTensors:  inputTensors,
		DynamicRanges: ranges,
	}
}

// WithFilename returns a copy with the source part named filename.
func (r QuantizeRequest) WithFilename(filename string) QuantizeRequest {
	r.Filename = filename
	return r
}

// OptimizeRequest asks for a graph-optimized model.
type OptimizeRequest struct {
	Filename string
	Source   []byte
}

// NewOptimizeRequest returns a request with the default filename.
func NewOptimizeRequest(source []byte) OptimizeRequest {
	return OptimizeRequest{Filename: DefaultFilename, Source: source}
}

// WithFilename returns a copy with the source part named filename.
func (r OptimizeRequest) WithFilename(filename string) OptimizeRequest {
	r.Filename = filename
	return r
}

// Calibrate returns the calibration model built from req.
func (c *Client) Calibrate(ctx context.Context, req CalibrateRequest) ([]byte, error) {
	tensors, err := encodeTensors(req.InputTensors)
	if err != nil {
		return nil, err
	}

	form := client.NewForm().
		Text(partInputTensors, tensors).
		File(partSource, filenameOrDefault(req.Filename), req.Source)

	return c.postDSS(ctx, "furiosa.Calibrate", c.dssURL("build-calibration-model"), form, len(req.Source))
}

// Quantize returns the quantized model built from req.
func (c *Client) Quantize(ctx context.Context, req QuantizeRequest) ([]byte, error) {
	tensors, err := encodeTensors(req.InputTensors)
	if err != nil {
		return nil, err
	}

	ranges := req.DynamicRanges
	if ranges == nil {
		ranges = map[string]DynamicRange{}
	}
	b, err := json.Marshal(ranges)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidArgument, "encoding dynamic_ranges", err)
	}

	form := client.NewForm().
		Text(partInputTensors, tensors).
		Text(partDynamicRanges, string(b)).
		File(partSource, filenameOrDefault(req.Filename), req.Source)

	return c.postDSS(ctx, "furiosa.Quantize", c.dssURL("quantize"), form, len(req.Source))
}

// Optimize returns the optimized model built from req.
func (c *Client) Optimize(ctx context.Context, req OptimizeRequest) ([]byte, error) {
	form := client.NewForm().File(partSource, filenameOrDefault(req.Filename), req.Source)

	return c.postDSS(ctx, "furiosa.Optimize", c.dssURL("optimize"), form, len(req.Source))
}

func (c *Client) postDSS(ctx context.Context, op string, u *url.URL, form *client.Form, size int) (out []byte, err error) {
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(attribute.Int("furiosa.source_size", size)))
	defer func() { endSpan(span, err) }()

	req, err := client.Request(ctx, u, http.MethodPost, client.WithMultipart(form))
	if err != nil {
		return nil, err
	}

	out, err = c.hc.Bytes(req)
	if err != nil {
		return nil, err
	}

	c.logger.Info("dss request complete", "op", op, "bytes", len(out))

	return out, nil
}

func encodeTensors(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	b, err := json.Marshal(names)
	if err != nil {
		return "", errs.Wrap(errs.KindInvalidArgument, "encoding input_tensors", err)
	}
	return string(b), nil
}
