package request

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/matzehuels/graphwriter/pkg/errors"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		payload string
	}{
		{"syntax tree", "outfile", "[S [NP] [VP]]"},
		{"graph", "/tmp/graphs/g1", GraphvizMarker},
		{"quit", TargetQuit, TargetQuit},
		{"ignore", TargetIgnore, TargetIgnore},
		{"unicode", "bäume/test_1", "[S [NP Schöne] [VP grüßen]]"},
		{"single byte", "a", "b"},
		{"long payload", "big", strings.Repeat("[X]", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := New(tt.target, tt.payload)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}

			var buf bytes.Buffer
			if err := Encode(&buf, req); err != nil {
				t.Fatalf("Encode() error: %v", err)
			}

			got, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if got != req {
				t.Errorf("Decode(Encode(r)) = %+v, want %+v", got, req)
			}
		})
	}
}

func TestMarshalLayout(t *testing.T) {
	got := Marshal(Request{Target: "out", Payload: "[S]"})
	want := []byte("out\x00[S]\x00")
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal() = %q, want %q", got, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode errors.Code
	}{
		{"empty stream", "", errors.ErrCodeMalformedRequest},
		{"no terminator", "outfile", errors.ErrCodeMalformedRequest},
		{"truncated payload", "outfile\x00[S [NP]", errors.ErrCodeMalformedRequest},
		{"missing payload", "outfile\x00", errors.ErrCodeMalformedRequest},
		{"empty target", "\x00[S]\x00", errors.ErrCodeEmptyField},
		{"empty payload", "outfile\x00\x00", errors.ErrCodeEmptyField},
		{"both empty", "\x00\x00", errors.ErrCodeEmptyField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Decode() expected error")
			}
			if got := errors.GetCode(err); got != tt.wantCode {
				t.Errorf("Decode() code = %q, want %q (err=%v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	got, err := Decode(strings.NewReader("out\x00[S]\x00trailing garbage"))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got.Target != "out" || got.Payload != "[S]" {
		t.Errorf("Decode() = %+v", got)
	}
}

func TestDecodeOneByteReader(t *testing.T) {
	r := iotest.OneByteReader(strings.NewReader("out\x00[S [NP]]\x00"))
	got, err := Decode(r)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got.Payload != "[S [NP]]" {
		t.Errorf("Payload = %q", got.Payload)
	}
}

func TestDecodeReadError(t *testing.T) {
	r := iotest.ErrReader(io.ErrClosedPipe)
	_, err := Decode(r)
	if !errors.Is(err, errors.ErrCodeMalformedRequest) {
		t.Errorf("Decode() error = %v, want MALFORMED_REQUEST", err)
	}
}

func TestDecodePayloadErrorKeepsTarget(t *testing.T) {
	got, err := Decode(strings.NewReader("outfile\x00\x00"))
	if err == nil {
		t.Fatal("expected error")
	}
	if got.Target != "outfile" {
		t.Errorf("Target = %q, want outfile", got.Target)
	}
}

func TestDecodeOversized(t *testing.T) {
	r := io.MultiReader(strings.NewReader(strings.Repeat("x", maxRequestSize+10)))
	_, err := Decode(r)
	if !errors.Is(err, errors.ErrCodeMalformedRequest) {
		t.Errorf("Decode() error = %v, want MALFORMED_REQUEST", err)
	}
}

func TestDecodeFieldLimitMatchesEncode(t *testing.T) {
	atLimit := strings.Repeat("x", errors.MaxFieldLength)
	over := atLimit + "x"

	tests := []struct {
		name    string
		target  string
		payload string
		code    errors.Code
	}{
		{"both fields at limit", atLimit, atLimit, ""},
		{"target over limit", over, "[S]", errors.ErrCodeInvalidRequest},
		{"payload over limit", "out", over, errors.ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, newErr := New(tt.target, tt.payload)
			raw := Marshal(Request{Target: tt.target, Payload: tt.payload})
			got, err := Decode(bytes.NewReader(raw))

			if tt.code == "" {
				if newErr != nil || err != nil {
					t.Fatalf("New() = %v, Decode() = %v, want both to accept", newErr, err)
				}
				if got.Target != tt.target || got.Payload != tt.payload {
					t.Error("decoded request does not match")
				}
				return
			}
			if !errors.Is(newErr, tt.code) {
				t.Errorf("New() error = %v, want %s", newErr, tt.code)
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Decode() error = %v, want %s", err, tt.code)
			}
		})
	}
}
