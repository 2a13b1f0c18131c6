package agent

import (
	"context"
	"fmt"
)

// ToolSpec declares a tool to the model.
//
// Parameters is a JSON schema object describing the arguments. It is sent
// verbatim to the backend and used to validate the arguments before dispatch.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Response is the outcome of one round trip with the model.
//
// It is a tool request when it carries at least one ToolCall, otherwise it is
// the final answer of the turn. Content may accompany a tool request.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// FinalAnswer returns a Response ending the turn with text.
func FinalAnswer(text string) Response { return Response{Content: text} }

// ToolRequest returns a Response asking for calls to be executed.
func ToolRequest(calls ...ToolCall) Response { return Response{ToolCalls: calls} }

// IsFinal reports whether r ends the turn.
func (r Response) IsFinal() bool { return len(r.ToolCalls) == 0 }

// Gateway sends a transcript and the available tools to a language model.
//
// Implementations must not interpret tool results. Backend failures are
// reported as *BackendError. A response with neither content nor tool calls
// is returned as FinalAnswer("").
type Gateway interface {
	Complete(ctx context.Context, msgs []Message, tools []ToolSpec) (Response, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, msgs []Message, tools []ToolSpec) (Response, error)

func (f GatewayFunc) Complete(ctx context.Context, msgs []Message, tools []ToolSpec) (Response, error) {
	return f(ctx, msgs, tools)
}

// BackendError is a failure of the model backend: network, protocol, quota.
//
// Transient errors (timeouts, rate limits, 5xx) may be retried.
type BackendError struct {
	Backend   string
	Transient bool
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// TransientStatus reports whether an HTTP status code is worth retrying.
func TransientStatus(code int) bool {
	return code == 408 || code == 409 || code == 429 || code >= 500
}
