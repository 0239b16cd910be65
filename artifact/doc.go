// Package artifact writes compiled artifacts to disk.
//
// [Handle] streams a response body into a temporary file next to the
// destination path, then atomically renames it on success, so a failed
// or cancelled compile never leaves a truncated binary behind:
//
//	err := artifact.Handle(ctx, resp.Body, resp.ContentLength, "model.enf", logger,
//		artifact.WithChecksum(sha256.New(), expectedHex),
//		artifact.WithProgress(),
//	)
//
// Errors are [errs.Error] values. A body that is shorter than announced
// or fails its checksum is errs.KindIO wrapping [ErrContentLengthMismatch]
// or [ErrChecksumMismatch].
//
// Most callers reach it through furiosa.Client.CompileToFile.
package artifact
