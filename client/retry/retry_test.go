package retry_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/furiosa-ai/furiosa-client/client/retry"
)

func fastConfig(attempts int) retry.Config {
	return retry.Config{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestNewRoundTripper_Validation(t *testing.T) {
	_, err := retry.NewRoundTripper(retry.Config{}, nil, http.DefaultTransport)
	if !errors.Is(err, retry.ErrMustBePositive) {
		t.Errorf("exp ErrMustBePositive, got: %v", err)
	}
}

func TestRetry_Statuses(t *testing.T) {
	testCases := map[string]struct {
		attempts  int
		statuses  []int
		expStatus int
		expHits   int32
	}{
		"successFirstTry": {
			attempts: 3, statuses: []int{200}, expStatus: 200, expHits: 1,
		},
		"recoversAfterUnavailable": {
			attempts: 3, statuses: []int{503, 502, 200}, expStatus: 200, expHits: 3,
		},
		"exhaustedReturnsLastResponse": {
			attempts: 2, statuses: []int{503, 503, 200}, expStatus: 503, expHits: 2,
		},
		"clientErrorNotRetried": {
			attempts: 3, statuses: []int{400, 200}, expStatus: 400, expHits: 1,
		},
		"singleAttempt": {
			attempts: 1, statuses: []int{503, 200}, expStatus: 503, expHits: 1,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(hits.Add(1)) - 1
				body, _ := io.ReadAll(r.Body)
				if string(body) != "payload" {
					t.Errorf("attempt %d: exp rewound body, got %q", n+1, body)
				}
				w.WriteHeader(tc.statuses[min(n, len(tc.statuses)-1)])
			}))
			defer server.Close()

			rt, err := retry.NewRoundTripper(fastConfig(tc.attempts), func() *slog.Logger { return slog.Default() }, http.DefaultTransport)
			if err != nil {
				t.Fatal(err)
			}

			req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, server.URL, strings.NewReader("payload"))
			if err != nil {
				t.Fatal(err)
			}

			resp, err := (&http.Client{Transport: rt}).Do(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.expStatus {
				t.Errorf("exp status %d, got %d", tc.expStatus, resp.StatusCode)
			}
			if got := hits.Load(); got != tc.expHits {
				t.Errorf("exp %d hits, got %d", tc.expHits, got)
			}
		})
	}
}

func TestRetry_TransportError(t *testing.T) {
	var calls atomic.Int32
	failing := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("connection reset")
	})

	rt, err := retry.NewRoundTripper(fastConfig(3), nil, failing)
	if err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://example.invalid", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("exp 3 attempts, got %d", got)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
