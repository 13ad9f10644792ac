package errors

import (
	"net"
	"strings"
	"unicode"
)

// MaxFieldLength bounds a single wire field on both encode and decode.
// Labeled trees are short; anything larger is almost certainly a stray client.
const MaxFieldLength = 1 << 20

// ValidateField checks that a request field can be framed on the wire.
// It rejects empty values and values containing the zero byte, which is the
// field terminator.
func ValidateField(name, value string) error {
	if value == "" {
		return New(ErrCodeEmptyField, "%s cannot be empty", name)
	}
	if len(value) > MaxFieldLength {
		return New(ErrCodeInvalidRequest, "%s too long (max %d bytes)", name, MaxFieldLength)
	}
	if strings.IndexByte(value, 0) >= 0 {
		return New(ErrCodeInvalidRequest, "%s contains a zero byte", name)
	}
	return nil
}

// ValidateTarget validates an output path stem.
//
// Validation rules:
//   - Must satisfy ValidateField
//   - No control characters (newlines would corrupt log lines and file names)
//   - Must not end in a path separator, since ".png" is appended to it
func ValidateTarget(target string) error {
	if err := ValidateField("target", target); err != nil {
		return err
	}

	for _, r := range target {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidRequest, "target contains invalid control characters")
		}
	}

	if strings.HasSuffix(target, "/") || strings.HasSuffix(target, "\\") {
		return New(ErrCodeInvalidRequest, "target must name a file, not a directory: %q", target)
	}

	return nil
}

// ValidateLoopbackAddr checks that a host:port address stays on this machine.
// The host must be "localhost" or a loopback IP; an empty host is rejected
// because it binds every interface.
func ValidateLoopbackAddr(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return Wrap(ErrCodeInvalidConfig, err, "invalid address %q", addr)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return New(ErrCodeInvalidConfig, "address %q is not a loopback address", addr)
	}
	return nil
}
