// Package errs defines the closed set of errors returned by the SDK.
//
// Every failure surfaced by a public operation is an [*Error] whose Kind
// identifies one case of the taxonomy. Callers match kinds with
// [errors.Is] against the package sentinels:
//
//	if errors.Is(err, errs.ErrCompilationFailed) {
//		var e *errs.Error
//		errors.As(err, &e)
//		fmt.Println(e.Message) // compiler log
//	}
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind discriminates the cases of [Error].
type Kind int

const (
	// KindIO is a file or network I/O failure.
	KindIO Kind = iota + 1
	// KindConfigParse is a malformed line in a credential or config file.
	KindConfigParse
	// KindEnvVar is an environment variable holding an unusable value.
	KindEnvVar
	// KindNoCredentials means the access key pair could not be found.
	KindNoCredentials
	// KindAPI is a structured error returned by the server or a transport failure.
	KindAPI
	// KindMalformedResponse is a response body that could not be decoded.
	KindMalformedResponse
	// KindCompilationFailed carries the compiler log of a failed task.
	KindCompilationFailed
	// KindTimeout means a deadline or poll limit was reached.
	KindTimeout
	// KindCancelled means the caller cancelled the operation.
	KindCancelled
	// KindInvalidArgument is a value rejected before anything was sent.
	KindInvalidArgument
)

// Sentinels matched by [errors.Is] for each [Kind].
var (
	ErrIO                = errors.New("io error")
	ErrConfigParse       = errors.New("config parse error")
	ErrEnvVar            = errors.New("environment variable error")
	ErrNoCredentials     = errors.New("FURIOSA_ACCESS_KEY_ID, FURIOSA_SECRET_ACCESS_KEY must be set")
	ErrAPI               = errors.New("api error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrCompilationFailed = errors.New("compilation failed")
	ErrTimeout           = errors.New("timeout")
	ErrCancelled         = errors.New("cancelled")
	ErrInvalidArgument   = errors.New("invalid argument")

	// ErrAuthFailure is additionally matched by API errors carrying
	// 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
)

var sentinels = map[Kind]error{
	KindIO:                ErrIO,
	KindConfigParse:       ErrConfigParse,
	KindEnvVar:            ErrEnvVar,
	KindNoCredentials:     ErrNoCredentials,
	KindAPI:               ErrAPI,
	KindMalformedResponse: ErrMalformedResponse,
	KindCompilationFailed: ErrCompilationFailed,
	KindTimeout:           ErrTimeout,
	KindCancelled:         ErrCancelled,
	KindInvalidArgument:   ErrInvalidArgument,
}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindConfigParse:
		return "config_parse"
	case KindEnvVar:
		return "env_var"
	case KindNoCredentials:
		return "no_credentials"
	case KindAPI:
		return "api"
	case KindMalformedResponse:
		return "malformed_response"
	case KindCompilationFailed:
		return "compilation_failed"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error represents an error in the SDK. Only the fields relevant to
// its Kind are populated.
type Error struct {
	Kind    Kind
	Message string

	// Path is the file involved in KindIO and KindConfigParse errors.
	Path string
	// Line is the 1-based line of a KindConfigParse error, 0 if unknown.
	Line int
	// Var is the environment variable of a KindEnvVar error.
	Var string

	// StatusCode is the HTTP status of KindAPI and KindMalformedResponse
	// errors, 0 for transport failures.
	StatusCode int
	// Code is the server's error_code.
	Code string
	// TraceID is the server's trace_id, if any.
	TraceID string
	// Body holds the raw response body when it could not be decoded.
	Body string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	switch e.Kind {
	case KindConfigParse:
		fmt.Fprintf(&b, "error parsing %s", e.Path)
		if e.Line > 0 {
			fmt.Fprintf(&b, " at line %d", e.Line)
		}
		if e.Message != "" {
			fmt.Fprintf(&b, ": %s", e.Message)
		}
	case KindNoCredentials:
		b.WriteString(ErrNoCredentials.Error())
	case KindAPI:
		b.WriteString("api error")
		if e.StatusCode != 0 {
			fmt.Fprintf(&b, " (HTTP %d", e.StatusCode)
			if e.Code != "" {
				fmt.Fprintf(&b, ", %s", e.Code)
			}
			b.WriteString(")")
		}
		fmt.Fprintf(&b, ": %s", e.Message)
	case KindMalformedResponse:
		b.WriteString("malformed response")
		if e.StatusCode != 0 {
			fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
		}
		fmt.Fprintf(&b, ": %s", e.Message)
	case KindCompilationFailed:
		fmt.Fprintf(&b, "compilation failed: %s", e.Message)
	default:
		b.WriteString(e.Kind.String())
		if e.Var != "" {
			fmt.Fprintf(&b, " %s", e.Var)
		}
		if e.Path != "" {
			fmt.Fprintf(&b, " %s", e.Path)
		}
		if e.Message != "" {
			fmt.Fprintf(&b, ": %s", e.Message)
		}
	}

	if e.Err != nil && e.Kind != KindAPI && e.Kind != KindCompilationFailed {
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	return b.String()
}

// Unwrap exposes the kind sentinel and the cause to [errors.Is] and [errors.As].
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 3)
	if s, ok := sentinels[e.Kind]; ok {
		out = append(out, s)
	}
	if e.Kind == KindAPI && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden) {
		out = append(out, ErrAuthFailure)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// /////////////////////////////////////////////////////////////////////////////////////////////

// New constructs an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap constructs an error of the given kind around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// NoCredentials returns the missing-credentials error.
func NoCredentials() *Error {
	return &Error{Kind: KindNoCredentials}
}

// CompilationFailed carries the server-side compiler log.
func CompilationFailed(log string) *Error {
	return &Error{Kind: KindCompilationFailed, Message: log}
}

// KindOf returns the Kind of err, or 0 if err is not an [*Error].
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return 0
	}
	return e.Kind
}

// Is reports whether err is an [*Error] of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
