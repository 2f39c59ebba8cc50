// Package event defines the wire types of the instrumentation bridge: the
// one-way, fire-and-forget message protocol carrying console and network
// telemetry out of the sandbox frame.
//
// Exactly two message shapes cross the boundary, both pushed sandbox → host
// as JSON over a CDP Runtime binding:
//
//	CONSOLE_EVENT { kind: log|warn|error, message, timestampMs, generation }
//	NETWORK_EVENT { method, url, status: number | "ERR", durationMs, timestampMs, generation }
//
// Every message is stamped with the Generation of the sandbox that emitted
// it, so the host can discard telemetry from superseded frames.
package event

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Message type discriminators.
const (
	TypeConsole = "CONSOLE_EVENT"
	TypeNetwork = "NETWORK_EVENT"
)

// Kind classifies a console event.
type Kind string

const (
	KindLog   Kind = "log"
	KindWarn  Kind = "warn"
	KindError Kind = "error"
)

// Console is one captured console call (or uncaught runtime error).
type Console struct {
	Generation  uint64 `json:"generation"`
	Kind        Kind   `json:"kind"`
	Message     string `json:"message"`
	TimestampMs int64  `json:"timestampMs"`
}

// StatusErr is the sentinel for a request that failed before producing an
// HTTP status (DNS failure, refused connection, CORS rejection).
const StatusErr = -1

// Status is an HTTP status code or the "ERR" sentinel. On the wire it is
// either a JSON number or the literal string "ERR".
type Status int

// Failed reports whether the status is the error sentinel.
func (s Status) Failed() bool { return s == StatusErr }

func (s Status) MarshalJSON() ([]byte, error) {
	if s == StatusErr {
		return []byte(`"ERR"`), nil
	}
	return []byte(strconv.Itoa(int(s))), nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	if string(data) == `"ERR"` {
		*s = StatusErr
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("event: status %s: %w", data, err)
	}
	*s = Status(n)
	return nil
}

// Network is one captured outbound request.
type Network struct {
	Generation  uint64 `json:"generation"`
	Method      string `json:"method"`
	URL         string `json:"url"`
	Status      Status `json:"status"`
	DurationMs  int64  `json:"durationMs"`
	TimestampMs int64  `json:"timestampMs"`
}

// Envelope is one decoded bridge message. Exactly one of Console or Network
// is non-nil, matching Type.
type Envelope struct {
	Type    string
	Console *Console
	Network *Network
}

// Generation returns the generation stamp of the wrapped message.
func (e *Envelope) Generation() uint64 {
	switch {
	case e.Console != nil:
		return e.Console.Generation
	case e.Network != nil:
		return e.Network.Generation
	}
	return 0
}

// Decode parses one bridge payload. Unknown message types are an error:
// the bridge protocol carries exactly two shapes and nothing else.
func Decode(data []byte) (*Envelope, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("event: decode envelope: %w", err)
	}

	switch head.Type {
	case TypeConsole:
		var c Console
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("event: decode console: %w", err)
		}
		return &Envelope{Type: TypeConsole, Console: &c}, nil
	case TypeNetwork:
		var n Network
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, fmt.Errorf("event: decode network: %w", err)
		}
		return &Envelope{Type: TypeNetwork, Network: &n}, nil
	default:
		return nil, fmt.Errorf("event: unknown message type %q", head.Type)
	}
}
