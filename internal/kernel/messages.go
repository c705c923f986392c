package kernel

import (
	"encoding/json"
	"fmt"
)

// Message is one typed notification emitted by the kernel while a submission
// runs. The concrete variants below are the only kinds the publisher cares
// about; everything else the wire carries decodes to a nil Message and is
// dropped at the boundary.
type Message interface {
	kind() string
}

// Stream carries a chunk of stdout or stderr text.
type Stream struct {
	Name string
	Text string
}

// Error carries a kernel-side execution error: the error class name, its
// value, and the traceback lines in kernel order.
type Error struct {
	Name      string
	Value     string
	Traceback []string
}

// ExecuteResult carries the computed result of a submission, keyed by MIME
// type.
type ExecuteResult struct {
	Data map[string]string
}

// Status reports the kernel execution state ("busy", "idle"). It is consumed
// by the gateway client to detect submission completion and is never handed
// to message consumers.
type Status struct {
	State string
}

func (Stream) kind() string        { return "stream" }
func (Error) kind() string         { return "error" }
func (ExecuteResult) kind() string { return "execute_result" }
func (Status) kind() string        { return "status" }

// Text returns the plain-text representation of the result, if the kernel
// provided one.
func (r ExecuteResult) Text() (string, bool) {
	text, ok := r.Data["text/plain"]
	return text, ok
}

// Envelope pairs a decoded message with the routing fields needed to match it
// to the submission that produced it.
type Envelope struct {
	ParentID string
	Channel  string
	Msg      Message // nil when the wire kind is not one the publisher handles
}

type wireMessage struct {
	Header struct {
		MsgID   string `json:"msg_id"`
		MsgType string `json:"msg_type"`
	} `json:"header"`
	ParentHeader struct {
		MsgID string `json:"msg_id"`
	} `json:"parent_header"`
	Channel string          `json:"channel"`
	Content json.RawMessage `json:"content"`
}

// Decode parses one raw gateway frame into an Envelope. Frames with a message
// kind outside the handled set yield an Envelope with a nil Msg rather than an
// error, matching the protocol's expectation that unknown kinds are ignored.
func Decode(raw []byte) (Envelope, error) {
	var wire wireMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Envelope{}, fmt.Errorf("decode kernel message: %w", err)
	}

	env := Envelope{ParentID: wire.ParentHeader.MsgID, Channel: wire.Channel}

	switch wire.Header.MsgType {
	case "stream":
		var content struct {
			Name string `json:"name"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(wire.Content, &content); err != nil {
			return Envelope{}, fmt.Errorf("decode stream content: %w", err)
		}
		env.Msg = Stream{Name: content.Name, Text: content.Text}
	case "error":
		var content struct {
			Ename     string   `json:"ename"`
			Evalue    string   `json:"evalue"`
			Traceback []string `json:"traceback"`
		}
		if err := json.Unmarshal(wire.Content, &content); err != nil {
			return Envelope{}, fmt.Errorf("decode error content: %w", err)
		}
		env.Msg = Error{Name: content.Ename, Value: content.Evalue, Traceback: content.Traceback}
	case "execute_result":
		var content struct {
			Data map[string]json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(wire.Content, &content); err != nil {
			return Envelope{}, fmt.Errorf("decode execute_result content: %w", err)
		}
		data := make(map[string]string, len(content.Data))
		for mime, value := range content.Data {
			var text string
			if err := json.Unmarshal(value, &text); err != nil {
				// Non-string representations (e.g. application/json) are
				// kept verbatim.
				text = string(value)
			}
			data[mime] = text
		}
		env.Msg = ExecuteResult{Data: data}
	case "status":
		var content struct {
			ExecutionState string `json:"execution_state"`
		}
		if err := json.Unmarshal(wire.Content, &content); err != nil {
			return Envelope{}, fmt.Errorf("decode status content: %w", err)
		}
		env.Msg = Status{State: content.ExecutionState}
	}

	return env, nil
}
