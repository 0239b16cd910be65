package artifact

import (
	"context"
	"errors"

	"github.com/furiosa-ai/furiosa-client/errs"
)

// Causes of errs.KindIO errors returned when the written artifact does not
// match what the server announced or what the caller expected.
var (
	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
)

// writeError classifies a failure while writing the artifact at path.
// Context errors keep their own kind so a cancelled compile reads the same
// whether it stopped while polling or while streaming the binary.
func writeError(path, msg string, err error) error {
	var e *errs.Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, context.Canceled):
		return &errs.Error{Kind: errs.KindCancelled, Message: msg, Path: path, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &errs.Error{Kind: errs.KindTimeout, Message: msg, Path: path, Err: err}
	default:
		return &errs.Error{Kind: errs.KindIO, Message: msg, Path: path, Err: err}
	}
}
