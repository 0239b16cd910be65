package client

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/furiosa-ai/furiosa-client/errs"
)

// maxErrBodySize caps the amount of response body read when
// decoding the error of a non-2xx response.
const maxErrBodySize = 64 << 10 // 64KB

// execFn represents a func to operate on a response.
type execFn func(response *http.Response) error

// APIError is the body the server returns with every non-2xx response.
type APIError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	TraceID   string `json:"trace_id,omitempty"`
}

// wireError mirrors APIError with pointers so absent required fields can be detected.
type wireError struct {
	ErrorCode *string `json:"error_code"`
	Message   *string `json:"message"`
	TraceID   *string `json:"trace_id"`
}

var errMissingField = errors.New("missing required field")

// decodeError turns a non-2xx response into a KindAPI error, or a
// KindMalformedResponse error when the body is not a valid [APIError].
func decodeError(resp *http.Response) error {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
	if err != nil {
		return &errs.Error{
			Kind:       errs.KindMalformedResponse,
			StatusCode: resp.StatusCode,
			Message:    "unable to read error body",
			Err:        err,
		}
	}

	var w wireError
	if err := json.Unmarshal(b, &w); err != nil {
		return &errs.Error{
			Kind:       errs.KindMalformedResponse,
			StatusCode: resp.StatusCode,
			Message:    "fail to get API response: " + err.Error(),
			Body:       string(b),
			Err:        err,
		}
	}

	if w.ErrorCode == nil || w.Message == nil {
		return &errs.Error{
			Kind:       errs.KindMalformedResponse,
			StatusCode: resp.StatusCode,
			Message:    "fail to get API response: error_code and message are required",
			Body:       string(b),
			Err:        errMissingField,
		}
	}

	apiErr := &errs.Error{
		Kind:       errs.KindAPI,
		StatusCode: resp.StatusCode,
		Code:       *w.ErrorCode,
		Message:    *w.Message,
	}
	if w.TraceID != nil {
		apiErr.TraceID = *w.TraceID
	}

	return apiErr
}
