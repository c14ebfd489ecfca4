package gateway

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/c360/chatkit/errors"
)

// frame is the wire shape of every gateway message. S and T are only set
// on DISPATCH frames; the client never sends them.
type frame struct {
	Op Opcode          `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  int64           `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

// helloData is the payload of the server's first frame.
type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"` // milliseconds
}

// identifyProperties describes the connecting client.
type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// identifyData opens a fresh session.
type identifyData struct {
	Token      string             `json:"token"`
	Intents    Intents            `json:"intents"`
	Properties identifyProperties `json:"properties"`
	Shard      [2]int             `json:"shard"`
	Compress   bool               `json:"compress,omitempty"`
}

// resumeData reattaches to an existing session after a drop.
type resumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// readyData is the dispatch payload confirming a fresh session.
// ResumeGatewayURL, when present, is the session-specific endpoint later
// resumes must dial.
type readyData struct {
	SessionID        string `json:"session_id"`
	ResumeGatewayURL string `json:"resume_gateway_url"`
}

// Event is a decoded DISPATCH frame as delivered to event handlers.
type Event struct {
	ShardID  int
	Type     string
	Sequence int64
	Data     json.RawMessage
}

// encodeFrame marshals an outbound frame. d may be nil for frames without
// a payload.
func encodeFrame(op Opcode, d any) ([]byte, error) {
	f := frame{Op: op}
	if d != nil {
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, errors.WrapInvalid(err, "gateway", "encodeFrame", "marshal payload")
		}
		f.D = raw
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, errors.WrapInvalid(err, "gateway", "encodeFrame", "marshal frame")
	}
	return data, nil
}

// encodeHeartbeat builds a HEARTBEAT frame. The payload is the last seen
// sequence number, or null when no dispatch has arrived yet.
func encodeHeartbeat(seq int64) ([]byte, error) {
	if seq == 0 {
		return json.Marshal(frame{Op: OpHeartbeat, D: json.RawMessage("null")})
	}
	return encodeFrame(OpHeartbeat, seq)
}

// decodeFrame parses an inbound message. Binary messages hold a
// zlib-deflated JSON frame and are inflated transparently.
func decodeFrame(data []byte, binary bool) (*frame, error) {
	if binary {
		inflated, err := inflate(data)
		if err != nil {
			return nil, err
		}
		data = inflated
	}

	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapInvalid(err, "gateway", "decodeFrame", "unmarshal frame")
	}
	return &f, nil
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WrapInvalid(err, "gateway", "decodeFrame", "open zlib stream")
	}
	defer func() { _ = r.Close() }()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapInvalid(err, "gateway", "decodeFrame", "inflate frame")
	}
	return out, nil
}
