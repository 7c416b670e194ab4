package model

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrMissingKeywords is returned when a search is requested without keywords.
	ErrMissingKeywords = errors.New("keywords are required")
	// ErrRateLimited is returned when the same keywords are searched again too soon.
	ErrRateLimited = errors.New("search rate limited")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ParseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// FaultKind classifies where in the pipeline a failure happened.
type FaultKind int

const (
	// FaultAdapter: a single source failed; the run continues without it.
	FaultAdapter FaultKind = iota
	// FaultValidation: the request itself was rejected before any work ran.
	FaultValidation
	// FaultScoring: a single posting could not be scored normally.
	FaultScoring
	// FaultCatastrophic: an unexpected failure caught at the pipeline boundary.
	FaultCatastrophic
)

func (k FaultKind) String() string {
	switch k {
	case FaultAdapter:
		return "adapter"
	case FaultValidation:
		return "validation"
	case FaultScoring:
		return "scoring"
	case FaultCatastrophic:
		return "catastrophic"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

// Fault is a recovered failure recorded in run metadata.
type Fault struct {
	Kind   FaultKind
	Source string // component or source name, may be empty
	Err    error
}

// NewFault builds a fault of the given kind.
func NewFault(kind FaultKind, source string, err error) Fault {
	return Fault{Kind: kind, Source: source, Err: err}
}

func (f Fault) Error() string {
	msg := "unknown failure"
	if f.Err != nil {
		msg = f.Err.Error()
	}
	if f.Source == "" {
		return msg
	}
	return f.Source + ": " + msg
}

func (f Fault) Unwrap() error {
	return f.Err
}

// MarshalText renders the fault as its message so metadata stays readable JSON.
func (f Fault) MarshalText() ([]byte, error) {
	return []byte(f.Error()), nil
}

// UnmarshalText restores a fault from its message. Kind and the wrapped
// error type are not recoverable.
func (f *Fault) UnmarshalText(b []byte) error {
	f.Err = errors.New(string(b))
	return nil
}
