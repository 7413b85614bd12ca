package core

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies one member of the closed failure taxonomy.
type Kind string

const (
	KindInvalidRequestURL    Kind = "invalid_request_url"
	KindAuthenticationFailed Kind = "authentication_failed"
	KindRateLimitExceeded    Kind = "rate_limit_exceeded"
	KindClientError          Kind = "client_error"
	KindServerError          Kind = "server_error"
	KindInvalidPayload       Kind = "invalid_payload"
	KindDecodingFailed       Kind = "decoding_failed"
	KindStreamingUnsupported Kind = "streaming_unsupported"
	KindTimedOut             Kind = "timed_out"
	KindCancelled            Kind = "cancelled"
)

// Severity grades how a surface should present a classified error.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Error is a classified failure. Every failure that crosses the SDK
// boundary is exactly one of these; surfaces render Title/Message/Actions
// without reimplementing classification.
//
// Error values are constructed once per failure and never mutated.
type Error struct {
	Kind      Kind
	Status    int    // HTTP status when the failure came from a response, else 0
	Code      string // stable machine-readable code from the server, when present
	RequestID string // server-side request id, when present

	Title    string
	Message  string
	Severity Severity
	Actions  []string

	Retryable  bool
	RetryAfter time.Duration // suggested minimum delay before retrying, when retryable

	Err error // underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.RequestID != "":
		return fmt.Sprintf("%s: %s (status=%d, request_id=%s)", e.Kind, e.Message, e.Status, e.RequestID)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (status=%d)", e.Kind, e.Message, e.Status)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the underlying cause for error chaining.
func (e *Error) Unwrap() error {
	return e.Err
}

// AsClassified extracts a classified error from an error chain.
func AsClassified(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Protocol violation sentinels reported by the Accumulator. They classify
// as KindDecodingFailed but are never skippable, even under lenient
// decoding.
var (
	ErrDuplicateItem = errors.New("duplicate output item id")
	ErrUnknownItem   = errors.New("frame references unknown output item id")
	ErrItemDone      = errors.New("frame mutates completed output item")
)

// IsProtocolViolation reports whether err is one of the stream protocol
// violations.
func IsProtocolViolation(err error) bool {
	return errors.Is(err, ErrDuplicateItem) ||
		errors.Is(err, ErrUnknownItem) ||
		errors.Is(err, ErrItemDone)
}

// kindMeta holds the advisory presentation metadata attached to every
// classified error of a given kind.
type kindMeta struct {
	title     string
	message   string
	severity  Severity
	retryable bool
	actions   []string
}

var kindTable = map[Kind]kindMeta{
	KindInvalidRequestURL: {
		title:    "Invalid Request URL",
		message:  "The request URL could not be constructed.",
		severity: SeverityCritical,
		actions:  []string{"Check the configured base URL and request path."},
	},
	KindAuthenticationFailed: {
		title:    "Authentication Failed",
		message:  "The API rejected the provided credentials.",
		severity: SeverityCritical,
		actions:  []string{"Check that the API key is set and has not expired.", "Verify organization and project scoping."},
	},
	KindRateLimitExceeded: {
		title:     "Rate Limit Exceeded",
		message:   "Too many requests in the current window.",
		severity:  SeverityWarning,
		retryable: true,
		actions:   []string{"Slow down request volume or raise the account rate limit."},
	},
	KindClientError: {
		title:    "Request Rejected",
		message:  "The API rejected the request.",
		severity: SeverityCritical,
		actions:  []string{"Inspect the response code and adjust the request."},
	},
	KindServerError: {
		title:     "Server Error",
		message:   "The API or the network path to it failed.",
		severity:  SeverityWarning,
		retryable: true,
		actions:   []string{"Retry later; check the provider status page if it persists."},
	},
	KindInvalidPayload: {
		title:    "Invalid Payload",
		message:  "The request body could not be serialized.",
		severity: SeverityCritical,
		actions:  []string{"Check the request payload for unserializable values."},
	},
	KindDecodingFailed: {
		title:    "Decoding Failed",
		message:  "The response could not be decoded.",
		severity: SeverityCritical,
		actions:  []string{"Report the raw response if the problem persists."},
	},
	KindStreamingUnsupported: {
		title:    "Streaming Unsupported",
		message:  "The endpoint did not return an event stream.",
		severity: SeverityCritical,
		actions:  []string{"Use the non-streaming call for this endpoint."},
	},
	KindTimedOut: {
		title:     "Request Timed Out",
		message:   "The request did not complete in time.",
		severity:  SeverityWarning,
		retryable: true,
		actions:   []string{"Retry; consider a longer timeout or a smaller request."},
	},
	KindCancelled: {
		title:    "Cancelled",
		message:  "The call was cancelled before completion.",
		severity: SeverityInfo,
	},
}

// newError builds a classified error of the given kind with the taxonomy's
// presentation metadata, wrapping cause. A non-nil cause also becomes the
// message detail.
func newError(kind Kind, cause error) *Error {
	meta := kindTable[kind]
	e := &Error{
		Kind:      kind,
		Title:     meta.title,
		Message:   meta.message,
		Severity:  meta.severity,
		Retryable: meta.retryable,
		Err:       cause,
	}
	if len(meta.actions) > 0 {
		e.Actions = append([]string(nil), meta.actions...)
	}
	if cause != nil {
		e.Message = cause.Error()
	}
	return e
}

// NewDecodeError classifies a response or frame decode failure.
func NewDecodeError(cause error) *Error {
	return newError(KindDecodingFailed, cause)
}

// NewInvalidPayload classifies a client-side request serialization failure.
func NewInvalidPayload(cause error) *Error {
	return newError(KindInvalidPayload, cause)
}

// NewServerError classifies a server-reported failure that arrived without
// an HTTP status, such as a terminal failure event on a stream.
func NewServerError(cause error) *Error {
	return newError(KindServerError, cause)
}

// NewStreamingUnsupported classifies a response that cannot stream.
func NewStreamingUnsupported(contentType string) *Error {
	return newError(KindStreamingUnsupported,
		fmt.Errorf("expected text/event-stream, got %q", contentType))
}
