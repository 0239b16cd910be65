// Package throttle provides an [http.RoundTripper] that rate-limits
// calls to the API using a token-bucket algorithm from
// [golang.org/x/time/rate].
//
// Most callers enable it through client.WithThrottle. To wrap a
// transport directly use [NewRoundTripper]:
//
//	rt, err := throttle.NewRoundTripper(
//		10, // requests per second
//		5,  // burst capacity
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//
// When the rate limit is exceeded, requests block until a token becomes
// available. A request whose context deadline would pass first fails
// immediately with [ErrWaitingFailed].
package throttle
