package llm

import (
	"errors"
	"fmt"
)

// TransientError is a failure worth retrying: timeouts, connection errors, 5xx.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("llm transient error (%s): %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// QuotaError reports the provider refused the call for rate or billing reasons.
type QuotaError struct {
	Message string
}

func (e *QuotaError) Error() string {
	return "llm quota exceeded: " + e.Message
}

// MalformedResponseError reports a reply that could not be interpreted.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	return "llm malformed response: " + e.Reason
}

// IsTransient reports whether err wraps a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsQuota reports whether err wraps a QuotaError.
func IsQuota(err error) bool {
	var q *QuotaError
	return errors.As(err, &q)
}

// IsMalformed reports whether err wraps a MalformedResponseError.
func IsMalformed(err error) bool {
	var m *MalformedResponseError
	return errors.As(err, &m)
}

// Outcome labels err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsQuota(err):
		return "quota"
	case IsMalformed(err):
		return "malformed"
	case IsTransient(err):
		return "transient"
	default:
		return "error"
	}
}
