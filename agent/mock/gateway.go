// Package mock provides a scripted agent.Gateway, for tests and offline use.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/etnz/fintalk/agent"
)

// Step is one scripted round trip: the response to return, or the error.
type Step struct {
	Response agent.Response
	Err      error
}

// Final returns a Step answering text.
func Final(text string) Step { return Step{Response: agent.FinalAnswer(text)} }

// Call returns a Step requesting a single tool call.
func Call(id, name, args string) Step {
	return Step{Response: agent.ToolRequest(agent.ToolCall{ID: id, Name: name, Arguments: args})}
}

// Calls returns a Step requesting several tool calls at once.
func Calls(calls ...agent.ToolCall) Step { return Step{Response: agent.ToolRequest(calls...)} }

// Fail returns a Step failing with err.
func Fail(err error) Step { return Step{Err: err} }

// Gateway replays Steps in order, one per Complete.
//
// Once the script is exhausted it answers with the content of the trailing
// tool messages, or with "mock response".
type Gateway struct {
	mu       sync.Mutex
	steps    []Step
	requests [][]agent.Message
	tools    [][]agent.ToolSpec
}

// NewGateway creates a Gateway playing steps.
func NewGateway(steps ...Step) *Gateway {
	return &Gateway{steps: steps}
}

func (g *Gateway) Complete(ctx context.Context, msgs []agent.Message, tools []agent.ToolSpec) (agent.Response, error) {
	if err := ctx.Err(); err != nil {
		return agent.Response{}, &agent.BackendError{Backend: "mock", Err: err}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, append([]agent.Message(nil), msgs...))
	g.tools = append(g.tools, tools)

	if len(g.steps) == 0 {
		return agent.FinalAnswer(fallback(msgs)), nil
	}
	step := g.steps[0]
	g.steps = g.steps[1:]
	return step.Response, step.Err
}

// Requests returns the transcripts received, one per Complete.
func (g *Gateway) Requests() [][]agent.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]agent.Message(nil), g.requests...)
}

// Tools returns the tool declarations received, one per Complete.
func (g *Gateway) Tools() [][]agent.ToolSpec {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]agent.ToolSpec(nil), g.tools...)
}

// Remaining returns the number of steps not played yet.
func (g *Gateway) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.steps)
}

func fallback(msgs []agent.Message) string {
	var results []string
	for i := len(msgs) - 1; i >= 0 && msgs[i].Role == agent.RoleTool; i-- {
		results = append([]string{msgs[i].Content}, results...)
	}
	if len(results) == 0 {
		return "mock response"
	}
	return strings.Join(results, "\n")
}
