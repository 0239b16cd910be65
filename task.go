package furiosa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding/unicode"

	"github.com/furiosa-ai/furiosa-client/artifact"
	"github.com/furiosa-ai/furiosa-client/client"
	"github.com/furiosa-ai/furiosa-client/errs"
)

// ArtifactName is the artifact fetched from a succeeded task.
const ArtifactName = "output.enf"

// Phase is the server-side state of a compile task.
type Phase string

// Task phases. Succeeded and Failed are terminal.
const (
	PhasePending   Phase = "Pending"
	PhaseRunning   Phase = "Running"
	PhaseSucceeded Phase = "Succeeded"
	PhaseFailed    Phase = "Failed"
)

// IsTerminal reports whether no further transition can happen.
func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// UnmarshalJSON rejects phases the client does not know.
func (p *Phase) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	switch ph := Phase(s); ph {
	case PhasePending, PhaseRunning, PhaseSucceeded, PhaseFailed:
		*p = ph
		return nil
	default:
		return fmt.Errorf("unknown task phase %q", s)
	}
}

// CompileTask is the server's view of a compile job. Times are unix seconds.
type CompileTask struct {
	Version      int32   `json:"version"`
	TaskID       string  `json:"task_id"`
	Phase        Phase   `json:"phase"`
	SubmitTime   int64   `json:"submit_time"`
	StartTime    *int64  `json:"start_time,omitempty"`
	FinishTime   *int64  `json:"finish_time,omitempty"`
	Progress     float32 `json:"progress"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// check rejects a task body missing the fields that drive the poll loop.
// An absent phase never reaches Phase.UnmarshalJSON, so it is caught here.
func (t CompileTask) check() error {
	if t.TaskID == "" {
		return errs.New(errs.KindMalformedResponse, "task has no task_id")
	}

	switch t.Phase {
	case PhasePending, PhaseRunning, PhaseSucceeded, PhaseFailed:
		return nil
	default:
		return errs.New(errs.KindMalformedResponse, fmt.Sprintf("task %s has no phase", t.TaskID))
	}
}

// Compile submits req, waits for the task to finish and returns the
// compiled binary. A failed task yields an errs.KindCompilationFailed
// error carrying the compiler log.
func (c *Client) Compile(ctx context.Context, req CompileRequest) ([]byte, error) {
	var out []byte
	err := c.runTask(ctx, "furiosa.Compile", req, func(ctx context.Context, task CompileTask) error {
		r, err := client.Request(ctx, c.compilerURL("tasks", task.TaskID, "artifacts", ArtifactName), http.MethodGet)
		if err != nil {
			return err
		}
		out, err = c.hc.Bytes(r)
		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// CompileToFile behaves like Compile but streams the binary to destPath,
// which only appears once the whole artifact was written.
func (c *Client) CompileToFile(ctx context.Context, req CompileRequest, destPath string, opts ...artifact.Option) error {
	if destPath == "" {
		return errs.New(errs.KindInvalidArgument, "destPath must not be empty")
	}

	return c.runTask(ctx, "furiosa.CompileToFile", req, func(ctx context.Context, task CompileTask) error {
		r, err := client.Request(ctx, c.compilerURL("tasks", task.TaskID, "artifacts", ArtifactName), http.MethodGet)
		if err != nil {
			return err
		}
		return c.hc.Download(r, destPath, opts...)
	})
}

// Submit creates a compile task without waiting for it.
func (c *Client) Submit(ctx context.Context, req CompileRequest) (CompileTask, error) {
	form, err := req.form()
	if err != nil {
		return CompileTask{}, err
	}

	r, err := client.Request(ctx, c.compilerURL("tasks"), http.MethodPost, client.WithMultipart(form))
	if err != nil {
		return CompileTask{}, err
	}

	var task CompileTask
	if err := c.hc.Do(r, client.WithDestination(&task)); err != nil {
		return CompileTask{}, err
	}
	if err := task.check(); err != nil {
		return CompileTask{}, err
	}

	c.logger.Info("compile task submitted", "task_id", task.TaskID, "phase", task.Phase)

	return task, nil
}

// Task fetches the current state of a task.
func (c *Client) Task(ctx context.Context, taskID string) (CompileTask, error) {
	if taskID == "" {
		return CompileTask{}, errs.New(errs.KindInvalidArgument, "task id must not be empty")
	}

	r, err := client.Request(ctx, c.compilerURL("tasks", taskID), http.MethodGet)
	if err != nil {
		return CompileTask{}, err
	}

	var task CompileTask
	if err := c.hc.Do(r, client.WithDestination(&task)); err != nil {
		return CompileTask{}, err
	}
	if err := task.check(); err != nil {
		return CompileTask{}, err
	}

	return task, nil
}

// Logs returns the compiler log of a task. Invalid UTF-8 is replaced with U+FFFD.
func (c *Client) Logs(ctx context.Context, taskID string) (string, error) {
	r, err := client.Request(ctx, c.compilerURL("tasks", taskID, "logs"), http.MethodGet)
	if err != nil {
		return "", err
	}

	b, err := c.hc.Bytes(r)
	if err != nil {
		return "", err
	}

	return lossyUTF8(b), nil
}

type resolveFn func(ctx context.Context, task CompileTask) error

// runTask drives a task from submission to a terminal phase and then
// hands a succeeded task to onSucceeded.
func (c *Client) runTask(ctx context.Context, op string, req CompileRequest, onSucceeded resolveFn) (err error) {
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("furiosa.target_ir", req.TargetIR.String()),
		attribute.String("furiosa.filename", req.Filename),
		attribute.Int("furiosa.source_size", len(req.Source)),
	))
	defer func() { endSpan(span, err) }()

	task, err := c.Submit(ctx, req)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("furiosa.task_id", task.TaskID))

	task, err = c.Wait(ctx, task)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("furiosa.phase", string(task.Phase)))

	switch task.Phase {
	case PhaseSucceeded:
		c.logger.Info("compile task succeeded", "task_id", task.TaskID)
		return onSucceeded(ctx, task)

	case PhaseFailed:
		log, err := c.Logs(ctx, task.TaskID)
		if err != nil {
			return err
		}
		c.logger.Info("compile task failed", "task_id", task.TaskID)
		return errs.CompilationFailed(log)

	default:
		panic(fmt.Sprintf("furiosa: task %s left the poll loop in phase %q", task.TaskID, task.Phase))
	}
}

// Wait polls task until its phase is terminal and returns the last state
// read from the server. The client's PollPolicy is checked once per
// iteration: the poll budget before sleeping, the elapsed time after.
// Neither check lets another status fetch go out once a bound is hit.
func (c *Client) Wait(ctx context.Context, task CompileTask) (CompileTask, error) {
	start := time.Now()

	for polls := 0; !task.Phase.IsTerminal(); polls++ {
		if c.poll.MaxPolls > 0 && polls >= c.poll.MaxPolls {
			return task, &errs.Error{
				Kind:    errs.KindTimeout,
				Message: fmt.Sprintf("task %s still %s after %d polls", task.TaskID, task.Phase, polls),
			}
		}

		c.logger.Debug("compile task",
			"task_id", task.TaskID,
			"phase", task.Phase,
			"progress", task.Progress,
			"attempt", polls,
		)

		if err := sleep(ctx, c.poll.Interval); err != nil {
			return task, err
		}

		if c.poll.Timeout > 0 && time.Since(start) >= c.poll.Timeout {
			return task, &errs.Error{
				Kind:    errs.KindTimeout,
				Message: fmt.Sprintf("task %s still %s after %v", task.TaskID, task.Phase, c.poll.Timeout),
			}
		}

		next, err := c.Task(ctx, task.TaskID)
		if err != nil {
			return task, err
		}
		task = next
	}

	return task, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return contextError(ctx.Err())
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.KindTimeout, "context deadline exceeded while polling", err)
	}
	return errs.Wrap(errs.KindCancelled, "polling cancelled", err)
}

func lossyUTF8(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
