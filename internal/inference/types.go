package inference

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Endpoint names one of the remote inference endpoints.
type Endpoint string

const (
	EndpointClassification Endpoint = "classification"
	EndpointGeneration     Endpoint = "generation"
	EndpointSummarization  Endpoint = "summarization"
)

// Kind tags why a remote call failed.
type Kind int

const (
	// KindTransient covers cold starts, rate limiting, other non-2xx
	// statuses and network faults once retries are exhausted.
	KindTransient Kind = iota + 1
	// KindAuth is a rejected credential. Never retried.
	KindAuth
	// KindMalformed is a 2xx response whose body has an unexpected shape.
	KindMalformed
	// KindCanceled means the caller's context ended before a result.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindMalformed:
		return "malformed"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

var (
	ErrTransient     = errors.New("inference service unavailable")
	ErrAuthorization = errors.New("inference credential rejected")
	ErrMalformed     = errors.New("malformed inference response")
)

// Failure describes a failed remote call.
type Failure struct {
	Kind       Kind
	Endpoint   Endpoint
	StatusCode int
	Attempts   int
	Err        error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s %s failure after %d attempt(s)", f.Endpoint, f.Kind, f.Attempts)
	if f.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", f.StatusCode)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Is lets errors.Is match a Failure against the package sentinels.
func (f *Failure) Is(target error) bool {
	switch target {
	case ErrTransient:
		return f.Kind == KindTransient
	case ErrAuthorization:
		return f.Kind == KindAuth
	case ErrMalformed:
		return f.Kind == KindMalformed
	}
	return false
}

// Request is the JSON body posted to every endpoint.
type Request struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Result is the outcome of Client.Call. Exactly one of Body or Failure is set.
type Result struct {
	Body     json.RawMessage
	Attempts int
	Failure  *Failure
}

// OK reports whether the call produced a 2xx body.
func (r Result) OK() bool { return r.Failure == nil }

// Decode unmarshals a successful body into v. A failed result returns its
// Failure; a body that does not fit v returns a KindMalformed Failure.
func (r Result) Decode(endpoint Endpoint, v any) error {
	if r.Failure != nil {
		return r.Failure
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &Failure{Kind: KindMalformed, Endpoint: endpoint, Attempts: r.Attempts, Err: err}
	}
	return nil
}

// Malformed builds a KindMalformed failure for a body that decoded but
// lacked the expected fields.
func Malformed(endpoint Endpoint, attempts int, reason string) *Failure {
	return &Failure{Kind: KindMalformed, Endpoint: endpoint, Attempts: attempts, Err: errors.New(reason)}
}
