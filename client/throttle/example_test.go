package throttle_test

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/furiosa-ai/furiosa-client/client/throttle"
)

func ExampleNewRoundTripper() {
	rt, err := throttle.NewRoundTripper(
		2, // requests per second
		5, // burst capacity
		func() *slog.Logger { return slog.Default() },
		http.DefaultTransport,
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	_ = &http.Client{Transport: rt}

	fmt.Println("throttled api transport ready")
	// Output: throttled api transport ready
}
