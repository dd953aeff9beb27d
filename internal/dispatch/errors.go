package dispatch

import (
	"errors"
	"fmt"
)

// ErrInvalidVerb is returned for methods outside GET, POST, PUT, PATCH and DELETE.
var ErrInvalidVerb = errors.New("unsupported verb")

// ErrResponseTooLarge is returned when a response body exceeds the read limit.
var ErrResponseTooLarge = errors.New("response too large")

// TransportError covers failures below the envelope: network errors, local
// request construction problems and non-2xx responses that do not carry a
// success:false envelope.
type TransportError struct {
	Verb   string
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s returned status %d: %v", e.Verb, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Verb, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ApplicationError is a well-formed envelope with success:false.
type ApplicationError struct {
	Verb    string
	URL     string
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("%s %s failed: %s", e.Verb, e.URL, e.Message)
}

// ValueError is a success:true envelope whose value did not decode into the
// shape the continuation expected.
type ValueError struct {
	Verb string
	URL  string
	Err  error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s %s returned an unexpected value: %v", e.Verb, e.URL, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }
