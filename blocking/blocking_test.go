package blocking_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	furiosa "github.com/furiosa-ai/furiosa-client"
	"github.com/furiosa-ai/furiosa-client/blocking"
	"github.com/furiosa-ai/furiosa-client/credential"
	"github.com/furiosa-ai/furiosa-client/errs"
	"github.com/furiosa-ai/furiosa-client/internal/apitest"
)

func newClient(t *testing.T, srv *apitest.Server, opts ...furiosa.Option) *blocking.Client {
	t.Helper()
	for _, k := range []string{
		credential.EnvAccessKeyID,
		credential.EnvSecretAccessKey,
		credential.EnvEndpoint,
		credential.EnvPollInterval,
		credential.EnvPollTimeout,
	} {
		t.Setenv(k, "")
	}

	base := []furiosa.Option{
		furiosa.WithCredentials("id", "secret"),
		furiosa.WithEndpoint(srv.URL + "/"),
		furiosa.WithHomeDir(""),
		furiosa.WithPollInterval(time.Millisecond),
		furiosa.WithLogger(slog.New(slog.DiscardHandler)),
	}
	c, err := blocking.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return c
}

func TestCompile_SamePollingAsCore(t *testing.T) {
	srv := apitest.NewServer(t, apitest.Script{
		Phases:   []string{"Pending", "Running", "Succeeded"},
		Artifact: []byte("bin"),
	})
	c := newClient(t, srv)

	out, err := c.Compile(furiosa.NewCompileRequest(json.RawMessage(`{}`), []byte("x")))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if string(out) != "bin" {
		t.Errorf("exp bin, got %q", out)
	}
	if got := srv.Hits(apitest.RouteTask); got != 3 {
		t.Errorf("exp 3 polls, got %d", got)
	}
	if got := srv.Hits(apitest.RouteArtifact); got != 1 {
		t.Errorf("exp 1 artifact GET, got %d", got)
	}
}

func TestCompile_Failed(t *testing.T) {
	srv := apitest.NewServer(t, apitest.Script{
		SubmitPhase: "Failed",
		Logs:        []byte("no such op"),
	})
	c := newClient(t, srv)

	_, err := c.Compile(furiosa.NewCompileRequest(json.RawMessage(`{}`), []byte("x")))
	if !errors.Is(err, errs.ErrCompilationFailed) {
		t.Fatalf("exp compilation failed, got %v", err)
	}
	if got := err.Error(); got != "compilation failed: no such op" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestClose(t *testing.T) {
	srv := apitest.NewServer(t, apitest.Script{Phases: []string{"Running"}})
	c := newClient(t, srv, furiosa.WithIndefinitePolling())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Compile(furiosa.NewCompileRequest(json.RawMessage(`{}`), []byte("x")))
		errCh <- err
	}()

	deadline := time.After(5 * time.Second)
	for srv.Hits(apitest.RouteTask) < 1 {
		select {
		case <-deadline:
			t.Fatal("poll loop never started")
		case <-time.After(time.Millisecond):
		}
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, errs.ErrCancelled) {
			t.Errorf("exp cancelled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("compile did not stop after Close")
	}

	if _, err := c.ServerVersion(); !errors.Is(err, errs.ErrCancelled) {
		t.Errorf("exp cancelled after close, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestEndpoint(t *testing.T) {
	srv := apitest.NewServer(t, apitest.Script{})
	c := newClient(t, srv)

	if got := c.Endpoint(); got != srv.URL {
		t.Errorf("exp %q, got %q", srv.URL, got)
	}
}
