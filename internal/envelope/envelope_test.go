package envelope

import (
	"errors"
	"testing"
)

func TestDecode_States(t *testing.T) {
	c := NewCodec("")

	tests := []struct {
		name  string
		body  string
		state State
	}{
		{"success", `{"success": true, "value": {"a": 1}}`, StateSuccess},
		{"failure", `{"success": false, "message": "nope"}`, StateFailure},
		{"absent", `{"value": 3}`, StateAbsent},
		{"null success", `{"success": null, "value": 3}`, StateAbsent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := c.Decode([]byte(tt.body))
			if err != nil {
				t.Fatalf("Decode returned error: %v", err)
			}
			if env.State() != tt.state {
				t.Fatalf("State = %v, want %v", env.State(), tt.state)
			}
		})
	}
}

func TestDecode_MalformedBodies(t *testing.T) {
	c := NewCodec("")
	for _, body := range []string{"", "   ", "{not-json", "[1,2]", "\"text\"", "<html></html>"} {
		_, err := c.Decode([]byte(body))
		var decErr *DecodeError
		if !errors.As(err, &decErr) {
			t.Fatalf("Decode(%q) error = %v, want *DecodeError", body, err)
		}
	}
}

func TestText_PrefersConfiguredField(t *testing.T) {
	body := []byte(`{"success": false, "message": "modern", "errmsg": "legacy"}`)

	env, err := NewCodec("message").Decode(body)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if env.Text() != "modern" {
		t.Fatalf("Text = %q, want modern", env.Text())
	}

	env, err = NewCodec("ERRMSG").Decode(body)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if env.Text() != "legacy" {
		t.Fatalf("Text = %q, want legacy", env.Text())
	}
}

func TestText_FallsBackToOtherField(t *testing.T) {
	env, err := NewCodec("message").Decode([]byte(`{"success": false, "errmsg": "only legacy"}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if env.Text() != "only legacy" {
		t.Fatalf("Text = %q, want only legacy", env.Text())
	}

	env, err = NewCodec("errmsg").Decode([]byte(`{"success": false, "message": "only modern"}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if env.Text() != "only modern" {
		t.Fatalf("Text = %q, want only modern", env.Text())
	}
}

func TestNewCodec_UnknownFieldDefaultsToMessage(t *testing.T) {
	if got := NewCodec("detail").ErrorField; got != FieldMessage {
		t.Fatalf("ErrorField = %q, want %q", got, FieldMessage)
	}
}

func TestDecodeValue(t *testing.T) {
	env, err := Codec{}.Decode([]byte(`{"success": true, "value": {"code": "005930", "price": 100}}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	var dest struct {
		Code  string `json:"code"`
		Price int    `json:"price"`
	}
	if err := env.DecodeValue(&dest); err != nil {
		t.Fatalf("DecodeValue returned error: %v", err)
	}
	if dest.Code != "005930" || dest.Price != 100 {
		t.Fatalf("DecodeValue = %#v", dest)
	}

	env, _ = Codec{}.Decode([]byte(`{"success": true, "value": null}`))
	if env.HasValue() {
		t.Fatalf("HasValue = true for null value")
	}
	if err := env.DecodeValue(&dest); err != nil {
		t.Fatalf("DecodeValue(null) returned error: %v", err)
	}

	env, _ = Codec{}.Decode([]byte(`{"success": true, "value": "text"}`))
	if err := env.DecodeValue(&dest); err == nil {
		t.Fatalf("DecodeValue into struct from string returned nil error")
	}
}
