// Package resilience provides the error taxonomy, circuit breaker, and retry
// policy for calls to the remote automation platform.
package resilience

import (
	"errors"
	"net"
	"strings"
)

// ErrorKind classifies a remote-execution failure.
type ErrorKind string

const (
	// KindMemoryLimit means the remote run exceeded its memory allowance.
	// Never retryable; counts toward the circuit breaker.
	KindMemoryLimit ErrorKind = "memory_limit_exceeded"
	// KindBillingLimit means the platform account hit a usage or billing cap.
	// Never retryable; counts toward the circuit breaker.
	KindBillingLimit ErrorKind = "billing_limit_exceeded"
	// KindRateLimit means the platform throttled the request. Retryable.
	KindRateLimit ErrorKind = "rate_limit_exceeded"
	// KindTimeout means the run or request timed out. Retryable.
	KindTimeout ErrorKind = "timeout"
	// KindNotFound means the task or dataset does not exist. Not retryable.
	KindNotFound ErrorKind = "not_found"
	// KindUnknown is everything else. Retryable only for 5xx responses.
	KindUnknown ErrorKind = "unknown"
)

// TaskError is a classified remote-execution failure.
type TaskError struct {
	Kind       ErrorKind
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *TaskError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// BreakerWorthy reports whether the failure should count toward the shared
// circuit breaker. Only memory and billing limit failures do: they indicate
// an exhausted platform account, not a transient glitch.
func (e *TaskError) BreakerWorthy() bool {
	return e.Kind == KindMemoryLimit || e.Kind == KindBillingLimit
}

// Classify maps a raw error and optional HTTP status code onto the taxonomy.
// Message inspection matters because the platform reports limit errors
// through a terminal run status with an explanatory string, not an HTTP code.
func Classify(err error, statusCode int) *TaskError {
	msg := ""
	if err != nil {
		msg = strings.ToLower(err.Error())
	}

	kind := KindUnknown
	switch {
	case strings.Contains(msg, "memory limit") || strings.Contains(msg, "out of memory"):
		kind = KindMemoryLimit
	case statusCode == 402 ||
		strings.Contains(msg, "usage hard limit") ||
		strings.Contains(msg, "billing") ||
		strings.Contains(msg, "payment required"):
		kind = KindBillingLimit
	case statusCode == 429 || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		kind = KindRateLimit
	case statusCode == 408 || isTimeout(err) || strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout"):
		kind = KindTimeout
	case statusCode == 404 || strings.Contains(msg, "not found"):
		kind = KindNotFound
	}

	return &TaskError{
		Kind:       kind,
		StatusCode: statusCode,
		Retryable:  retryable(kind, statusCode),
		Err:        err,
	}
}

func retryable(kind ErrorKind, statusCode int) bool {
	switch kind {
	case KindRateLimit, KindTimeout:
		return true
	case KindUnknown:
		return statusCode >= 500 && statusCode < 600
	default:
		return false
	}
}

// AsTaskError unwraps a TaskError from an error chain, or classifies the
// error fresh when none is present.
func AsTaskError(err error) *TaskError {
	var te *TaskError
	if errors.As(err, &te) {
		return te
	}
	return Classify(err, 0)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
