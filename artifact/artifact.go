package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/furiosa-ai/furiosa-client/errs"
)

// tempPattern names the partial file written next to the destination.
const tempPattern = ".furiosa-artifact-*"

// Handle streams body to a temp file in the directory of destPath, which is
// renamed to destPath on success. On any error the temp file is removed and
// destPath is left untouched. A negative contentLength means the length is
// unknown.
//
// Every error is an *errs.Error: KindCancelled or KindTimeout when ctx ends
// first, KindInvalidArgument for a bad option, KindIO otherwise.
func Handle(ctx context.Context, body io.Reader, contentLength int64, destPath string, logger *slog.Logger, optFns ...Option) error {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return errs.Wrap(errs.KindInvalidArgument, "applying artifact option", err)
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	if opts.skipExisting {
		if _, err := os.Stat(destPath); err == nil {
			logger.Info("artifact exists, skipping", "path", destPath)
			return nil
		}
	}

	file, err := os.CreateTemp(filepath.Dir(destPath), tempPattern)
	if err != nil {
		return writeError(destPath, "creating temp file", err)
	}

	var written bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("closing temp artifact", "path", file.Name(), "error", err)
		}
		if !written {
			if err := os.Remove(file.Name()); err != nil {
				logger.Error("removing temp artifact", "path", file.Name(), "error", err)
			}
		}
	}()

	n, err := copyArtifact(ctx, file, body, contentLength, destPath, logger, opts)
	if err != nil {
		return writeError(destPath, "receiving artifact", err)
	}

	if contentLength >= 0 && n != contentLength {
		return &errs.Error{
			Kind:    errs.KindIO,
			Path:    destPath,
			Message: fmt.Sprintf("expected %d bytes, got %d", contentLength, n),
			Err:     ErrContentLengthMismatch,
		}
	}

	if err := opts.checksum.Verify(); err != nil {
		return &errs.Error{Kind: errs.KindIO, Path: destPath, Message: err.Error(), Err: ErrChecksumMismatch}
	}

	if err := file.Sync(); err != nil {
		return writeError(destPath, "syncing temp file", err)
	}
	if err := file.Close(); err != nil {
		return writeError(destPath, "closing temp file", err)
	}
	if err := os.Rename(file.Name(), destPath); err != nil {
		return writeError(destPath, "moving artifact into place", err)
	}

	written = true
	logger.Info("artifact written", "path", destPath, "bytes", n)

	return nil
}

// copyArtifact copies body into file through the checksum and progress
// writers requested by opts.
func copyArtifact(ctx context.Context, file *os.File, body io.Reader, contentLength int64, destPath string, logger *slog.Logger, opts options) (int64, error) {
	var w io.Writer = file
	if opts.checksum != nil {
		w = io.MultiWriter(w, opts.checksum)
	}
	if opts.progress {
		w = newProgress(w, logger, destPath, contentLength)
	}

	return io.Copy(w, &contextReader{ctx: ctx, r: body})
}

// WriteFile stores data at destPath with the same atomic semantics as [Handle].
// The DSS operations return their models in memory and land here.
func WriteFile(ctx context.Context, data []byte, destPath string, logger *slog.Logger, optFns ...Option) error {
	return Handle(ctx, bytesReader(data), int64(len(data)), destPath, logger, optFns...)
}

// contextReader stops a copy as soon as ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
