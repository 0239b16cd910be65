package furiosa

import (
	"context"
)

// Result represents an in-flight or completed asynchronous compile.
type Result struct {
	done   chan struct{}
	out    []byte
	err    error
	cancel context.CancelFunc
}

// CompileAsync runs Compile in a new goroutine. Cancelling ctx or
// calling [Result.Cancel] stops the poll loop before its next fetch.
func (c *Client) CompileAsync(ctx context.Context, req CompileRequest) *Result {
	ctx, cancel := context.WithCancel(ctx)
	r := &Result{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(r.done)
		defer cancel()
		r.out, r.err = c.Compile(ctx, req)
	}()

	return r
}

// Done returns a channel that is closed when the compile completes.
func (r *Result) Done() <-chan struct{} { return r.done }

// Wait blocks until the compile completes and returns the binary.
func (r *Result) Wait() ([]byte, error) {
	<-r.done
	return r.out, r.err
}

// Err blocks until the compile completes and returns its error.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Cancel cancels the compile's context.
func (r *Result) Cancel() {
	r.cancel()
}
