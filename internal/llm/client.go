package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is one generation call. JSONMode asks the backend to constrain
// output to a single JSON object when it supports that.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// Generator is the model backend. Implementations return the raw text of
// the completion; parsing and validation happen upstream.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrorKind classifies a failed generation for retry decisions.
type ErrorKind int

const (
	// KindTransient covers rate limits, overload and timeouts. Safe to retry.
	KindTransient ErrorKind = iota
	// KindPermanent covers auth, quota and bad-request failures. Retrying
	// cannot help.
	KindPermanent
)

// ServiceError wraps a backend failure with its retry classification.
type ServiceError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("llm: status=%d transient=%v: %v", e.StatusCode, e.Kind == KindTransient, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable backend failure.
func IsTransient(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == KindTransient
}
