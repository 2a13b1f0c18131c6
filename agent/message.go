package agent

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Role of a Message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a request from the model to invoke a declared tool.
//
// Arguments is the raw JSON payload as sent by the model, it is parsed by the
// Library at dispatch time.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single entry of a Transcript.
//
// Assistant messages may carry ToolCalls. Tool messages carry the result of
// one call in Content, linked to it by ToolCallID. Name repeats the tool name
// on tool messages, some backends need it.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

func SystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }
func UserMessage(text string) Message   { return Message{Role: RoleUser, Content: text} }

// AssistantMessage returns a message from the model, optionally requesting tool calls.
func AssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolMessage returns the message answering call with result.
func ToolMessage(call ToolCall, result string) Message {
	return Message{Role: RoleTool, Content: result, ToolCallID: call.ID, Name: call.Name}
}

// Transcript is the append-only conversation history of a session.
type Transcript struct {
	mu       sync.Mutex
	messages []Message
}

// NewTranscript creates a Transcript seeded with a system message, if not empty.
func NewTranscript(system string) *Transcript {
	t := &Transcript{}
	if system != "" {
		t.messages = append(t.messages, SystemMessage(system))
	}
	return t
}

// Append adds messages at the end of the transcript.
func (t *Transcript) Append(msgs ...Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msgs...)
}

// Messages returns a copy of the messages in order.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.messages...)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Validate checks the tool call pairing of the transcript.
//
// Every ToolCall of an assistant message must be answered, in order, by the
// tool messages that immediately follow it. A tool message answering anything
// else is an error, and so is a system message anywhere but first.
func (t *Transcript) Validate() error {
	msgs := t.Messages()
	var pending []ToolCall
	for i, m := range msgs {
		if m.Role != RoleTool && len(pending) > 0 {
			return fmt.Errorf("message %d (%s): tool call %q has no answer", i, m.Role, pending[0].ID)
		}
		switch m.Role {
		case RoleSystem:
			if i != 0 {
				return fmt.Errorf("message %d: system message must come first", i)
			}
		case RoleUser:
		case RoleAssistant:
			pending = append(pending, m.ToolCalls...)
		case RoleTool:
			if len(pending) == 0 {
				return fmt.Errorf("message %d: tool message %q answers no pending call", i, m.ToolCallID)
			}
			if m.ToolCallID != pending[0].ID {
				return fmt.Errorf("message %d: tool message answers %q, want %q", i, m.ToolCallID, pending[0].ID)
			}
			pending = pending[1:]
		default:
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	if len(pending) > 0 {
		return fmt.Errorf("tool call %q has no answer", pending[0].ID)
	}
	return nil
}

// MarshalJSON encodes the transcript as a JSON array of messages.
func (t *Transcript) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Messages())
}
