package request

import (
	"fmt"

	"github.com/matzehuels/graphwriter/pkg/errors"
)

// Reserved target and payload values.
const (
	// TargetQuit asks the service to shut down gracefully.
	TargetQuit = "quit"

	// TargetIgnore is a no-op used to probe whether the service is reachable.
	TargetIgnore = "ignore"

	// GraphvizMarker selects the graph backend. The backend reads its input
	// from <target>.dot instead of the payload.
	GraphvizMarker = "graphviz"
)

// Kind classifies a request by how the dispatcher handles it.
type Kind int

const (
	KindSyntaxTree Kind = iota // render the payload as a labeled tree
	KindGraph                  // render <target>.dot with the graph backend
	KindQuit                   // control: shut down
	KindIgnore                 // control: no-op probe
)

// String returns a short name for log fields.
func (k Kind) String() string {
	switch k {
	case KindSyntaxTree:
		return "syntax-tree"
	case KindGraph:
		return "graph"
	case KindQuit:
		return "quit"
	case KindIgnore:
		return "ignore"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Request is one render job.
type Request struct {
	// ID correlates log lines for one job. It is assigned when the request is
	// accepted and is never sent on the wire.
	ID string

	Target  string
	Payload string
}

// New creates a request after checking that both fields can be framed.
func New(target, payload string) (Request, error) {
	if err := errors.ValidateField("target", target); err != nil {
		return Request{}, err
	}
	if err := errors.ValidateField("payload", payload); err != nil {
		return Request{}, err
	}
	return Request{Target: target, Payload: payload}, nil
}

// Quit returns the control request that triggers a graceful shutdown.
func Quit() Request {
	return Request{Target: TargetQuit, Payload: TargetQuit}
}

// Ignore returns the no-op control request used for liveness probes.
func Ignore() Request {
	return Request{Target: TargetIgnore, Payload: TargetIgnore}
}

// Kind reports how the dispatcher routes r. Control targets take precedence
// over the payload.
func (r Request) Kind() Kind {
	switch r.Target {
	case TargetQuit:
		return KindQuit
	case TargetIgnore:
		return KindIgnore
	}
	if r.Payload == GraphvizMarker {
		return KindGraph
	}
	return KindSyntaxTree
}

// IsControl reports whether r is consumed by the control plane.
func (r Request) IsControl() bool {
	k := r.Kind()
	return k == KindQuit || k == KindIgnore
}

// String returns a compact representation for logs.
func (r Request) String() string {
	return fmt.Sprintf("[Request %s %s]", r.Target, r.Kind())
}

// Abbrev shortens a payload for log output.
func Abbrev(payload string) string {
	const max = 30
	if len(payload) > max {
		return payload[:max] + " ..."
	}
	return payload
}
