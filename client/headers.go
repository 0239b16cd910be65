package client

import (
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Header names understood by the API.
const (
	HeaderAccessKeyID     = "X-FuriosaAI-Access-Key-ID"
	HeaderSecretAccessKey = "X-FuriosaAI-Secret-Access-Key"
	HeaderSDKVersion      = "X-FuriosaAI-SDK-Version"
	HeaderRequestID       = "X-Request-Id"
)

// apiHeaders is an http.RoundTripper stamping every outbound request
// with credentials, a fresh correlation id, the SDK version, the
// User-Agent and the trace context of the request's context.
type apiHeaders struct {
	accessKeyID     string
	secretAccessKey string
	sdkVersion      string
	userAgent       string
	newID           func() string
	base            http.RoundTripper
}

func (h *apiHeaders) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())

	if h.accessKeyID != "" {
		cpy.Header.Set(HeaderAccessKeyID, h.accessKeyID)
		cpy.Header.Set(HeaderSecretAccessKey, h.secretAccessKey)
	}
	if h.sdkVersion != "" {
		cpy.Header.Set(HeaderSDKVersion, h.sdkVersion)
	}
	if h.userAgent != "" {
		cpy.Header.Set("User-Agent", h.userAgent)
	}

	id := uuid.NewString()
	if h.newID != nil {
		id = h.newID()
	}
	cpy.Header.Set(HeaderRequestID, id)

	otel.GetTextMapPropagator().Inject(r.Context(), propagation.HeaderCarrier(cpy.Header))

	return h.base.RoundTrip(cpy)
}
