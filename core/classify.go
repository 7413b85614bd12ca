package core

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Classify maps an arbitrary failure to exactly one classified error.
// Already-classified errors pass through unchanged; nil maps to nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if ce, ok := AsClassified(err); ok {
		return ce
	}

	switch {
	case errors.Is(err, context.Canceled):
		return newError(KindCancelled, err)

	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindTimedOut, err)

	case IsProtocolViolation(err):
		return NewDecodeError(err)
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		switch {
		case ue.Timeout():
			return newError(KindTimedOut, err)
		case ue.Op == "parse":
			return newError(KindInvalidRequestURL, err)
		}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return newError(KindTimedOut, err)
	}

	// Anything else at this point is a transport-level fault (refused,
	// reset, DNS). Status 0 distinguishes it from a real 5xx; it stays
	// retryable because transient network faults usually are.
	return newError(KindServerError, err)
}

// ClassifyStatus maps an HTTP error status plus its body and headers to a
// classified error. The body is expected to carry an OpenAI-style error
// envelope ({"error":{"message","type","code"}}); absent or malformed
// envelopes fall back to the HTTP status text.
func ClassifyStatus(status int, body []byte, header http.Header) *Error {
	var kind Kind
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuthenticationFailed
	case status == http.StatusTooManyRequests:
		kind = KindRateLimitExceeded
	case status >= 500:
		kind = KindServerError
	default:
		kind = KindClientError
	}

	e := newError(kind, nil)
	e.Status = status

	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() && msg.String() != "" {
		e.Message = msg.String()
	} else if text := http.StatusText(status); text != "" {
		e.Message = text
	}
	if code := gjson.GetBytes(body, "error.code"); code.Exists() && code.String() != "" {
		e.Code = code.String()
	} else if typ := gjson.GetBytes(body, "error.type"); typ.Exists() {
		e.Code = typ.String()
	}

	if header != nil {
		e.RequestID = header.Get("x-request-id")
		if e.Retryable {
			e.RetryAfter = parseRetryAfter(header.Get("Retry-After"))
		}
	}

	return e
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
