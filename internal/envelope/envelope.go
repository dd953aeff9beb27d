package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field names used by the two observed API contracts for failure text.
const (
	FieldMessage = "message"
	FieldErrMsg  = "errmsg"
)

// State classifies an envelope by its success flag.
type State int

const (
	// StateAbsent means the response carried no success field at all.
	StateAbsent State = iota
	StateSuccess
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "absent"
	}
}

// Envelope mirrors the wrapper every API response is expected to follow.
type Envelope struct {
	Success *bool           `json:"success"`
	Value   json.RawMessage `json:"value"`
	Message string          `json:"message"`
	ErrMsg  string          `json:"errmsg"`

	errorField string
}

// State reports whether the envelope signals success, failure or neither.
func (e Envelope) State() State {
	if e.Success == nil {
		return StateAbsent
	}
	if *e.Success {
		return StateSuccess
	}
	return StateFailure
}

// Text returns the server supplied message, preferring the field the codec
// was configured with and falling back to the other contract's field.
func (e Envelope) Text() string {
	primary, secondary := e.Message, e.ErrMsg
	if e.errorField == FieldErrMsg {
		primary, secondary = e.ErrMsg, e.Message
	}
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	return secondary
}

// HasValue reports whether value is present and not JSON null.
func (e Envelope) HasValue() bool {
	trimmed := bytes.TrimSpace(e.Value)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeValue unmarshals the opaque value into dest.
func (e Envelope) DecodeValue(dest any) error {
	if !e.HasValue() {
		return nil
	}
	if err := json.Unmarshal(e.Value, dest); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

// DecodeError reports a response body that is not a JSON object.
type DecodeError struct {
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode envelope: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Codec turns raw response bodies into envelopes. The zero value prefers the
// "message" field for failure text.
type Codec struct {
	ErrorField string
}

// NewCodec returns a codec preferring the given failure text field. Unknown
// names fall back to "message".
func NewCodec(errorField string) Codec {
	field := strings.ToLower(strings.TrimSpace(errorField))
	if field != FieldErrMsg {
		field = FieldMessage
	}
	return Codec{ErrorField: field}
}

// Decode parses raw into an Envelope. It never inspects the shape of value.
func (c Codec) Decode(raw []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Envelope{}, &DecodeError{Body: raw, Err: fmt.Errorf("empty body")}
	}
	if trimmed[0] != '{' {
		return Envelope{}, &DecodeError{Body: raw, Err: fmt.Errorf("body is not a JSON object")}
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Envelope{}, &DecodeError{Body: raw, Err: err}
	}
	env.errorField = c.ErrorField
	return env, nil
}
