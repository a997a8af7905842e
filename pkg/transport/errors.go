package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// ErrNoBody is returned when a 2xx response carries no readable body.
var ErrNoBody = errors.New("transport: response has no body")

// RateLimitError is returned when the gateway responds with HTTP 429.
// It carries an optional RetryAfter duration parsed from the Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("rate limited: %s", e.Message)
}

// PaymentRequiredError is returned when the gateway responds with HTTP 402.
type PaymentRequiredError struct {
	Message string
}

func (e *PaymentRequiredError) Error() string {
	return "payment required: " + e.Message
}

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

// Kind is the user-facing class of a failed send.
type Kind int

const (
	// KindNetwork covers fetch failures, missing bodies and any status other
	// than 429 and 402.
	KindNetwork Kind = iota
	KindRateLimited
	KindPaymentRequired
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindPaymentRequired:
		return "payment_required"
	default:
		return "network"
	}
}

// Classify maps err onto a Kind.
func Classify(err error) Kind {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return KindRateLimited
	}

	var pr *PaymentRequiredError
	if errors.As(err, &pr) {
		return KindPaymentRequired
	}

	return KindNetwork
}

// ParseRetryAfter parses the Retry-After header value as either seconds (integer)
// or an HTTP-date (RFC 7231). Returns zero if unparseable or if the date is in the past.
func ParseRetryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// statusError reads the body of a failed response and builds the matching
// typed error.
func statusError(resp *http.Response) error {
	var msg string
	if resp.Body != nil {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg = errorMessage(raw)
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &RateLimitError{
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    msg,
		}
	case http.StatusPaymentRequired:
		return &PaymentRequiredError{Message: msg}
	default:
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
}

// errorMessage prefers the "error" field of a JSON body and falls back to the
// trimmed raw text.
func errorMessage(raw []byte) string {
	raw = bytes.TrimSpace(raw)

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}

	return strings.TrimSpace(string(raw))
}
