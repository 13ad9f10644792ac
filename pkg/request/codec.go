package request

import (
	"bufio"
	"bytes"
	"io"

	"github.com/matzehuels/graphwriter/pkg/errors"
)

// terminator ends each field on the wire.
const terminator = 0x00

// maxRequestSize bounds how much Decode will read from one connection: two
// fields of at most errors.MaxFieldLength bytes, each with its terminator.
const maxRequestSize = 2 * (errors.MaxFieldLength + 1)

// Decode reads one request from r.
//
// It fails with a MALFORMED_REQUEST error when the stream ends before a
// field's terminator, with EMPTY_FIELD when a field is empty, and with
// INVALID_REQUEST when a field exceeds errors.MaxFieldLength. Bytes after
// the second terminator are not read. On a payload failure the returned
// request still carries the decoded target for logging. Decode does not impose a deadline;
// callers reading from a network connection set one on the connection.
func Decode(r io.Reader) (Request, error) {
	br := bufio.NewReader(io.LimitReader(r, maxRequestSize))

	target, err := readField(br, "target")
	if err != nil {
		return Request{}, err
	}
	payload, err := readField(br, "payload")
	if err != nil {
		return Request{Target: target}, err
	}
	return Request{Target: target, Payload: payload}, nil
}

func readField(br *bufio.Reader, name string) (string, error) {
	field, err := br.ReadString(terminator)
	if err != nil {
		if err == io.EOF {
			return "", errors.New(errors.ErrCodeMalformedRequest, "ill formed %s: %q", name, Abbrev(field))
		}
		return "", errors.Wrap(errors.ErrCodeMalformedRequest, err, "read %s", name)
	}
	field = field[:len(field)-1]
	if field == "" {
		return "", errors.New(errors.ErrCodeEmptyField, "request is missing the %s", name)
	}
	if len(field) > errors.MaxFieldLength {
		return "", errors.New(errors.ErrCodeInvalidRequest, "%s too long (%d bytes, max %d)", name, len(field), errors.MaxFieldLength)
	}
	return field, nil
}

// Encode writes req to w in wire format.
func Encode(w io.Writer, req Request) error {
	_, err := w.Write(Marshal(req))
	return err
}

// Marshal returns the wire encoding of req. Fields containing a zero byte
// produce undefined framing; use [New] to reject them up front.
func Marshal(req Request) []byte {
	var buf bytes.Buffer
	buf.Grow(len(req.Target) + len(req.Payload) + 2)
	buf.WriteString(req.Target)
	buf.WriteByte(terminator)
	buf.WriteString(req.Payload)
	buf.WriteByte(terminator)
	return buf.Bytes()
}
