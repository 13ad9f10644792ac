package errors

import (
	"strings"
	"testing"
)

func TestValidateField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode Code
	}{
		{"valid", "[S [NP] [VP]]", ""},
		{"valid unicode", "[S [NP Äpfel]]", ""},
		{"empty", "", ErrCodeEmptyField},
		{"zero byte", "a\x00b", ErrCodeInvalidRequest},
		{"too long", strings.Repeat("x", MaxFieldLength+1), ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateField("payload", tt.input)
			if got := GetCode(err); got != tt.wantCode {
				t.Errorf("ValidateField(%q) code = %q, want %q (err=%v)", tt.name, got, tt.wantCode, err)
			}
		})
	}
}

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple stem", "outfile", false},
		{"absolute path", "/tmp/graphs/test1", false},
		{"relative path", "graphs/test1", false},
		{"reserved quit", "quit", false},

		{"empty", "", true},
		{"zero byte", "out\x00file", true},
		{"newline", "out\nfile", true},
		{"trailing slash", "graphs/", true},
		{"trailing backslash", "graphs\\", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTarget(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTarget(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLoopbackAddr(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"ipv4 loopback", "127.0.0.1:14446", false},
		{"ipv4 loopback range", "127.0.0.2:14446", false},
		{"ipv6 loopback", "[::1]:14446", false},
		{"localhost", "localhost:14446", false},
		{"ephemeral port", "127.0.0.1:0", false},

		{"all interfaces", ":14446", true},
		{"unspecified", "0.0.0.0:14446", true},
		{"public ip", "192.0.2.1:14446", true},
		{"hostname", "example.com:14446", true},
		{"missing port", "127.0.0.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLoopbackAddr(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLoopbackAddr(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidConfig) {
				t.Errorf("code = %s, want INVALID_CONFIG", GetCode(err))
			}
		})
	}
}
