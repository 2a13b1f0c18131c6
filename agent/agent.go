package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"goa.design/clue/log"
)

// DefaultMaxRoundTrips is the default cap on model round trips per turn.
const DefaultMaxRoundTrips = 8

// RoundTripLimitError reports a turn that kept requesting tools for more
// than Limit round trips.
type RoundTripLimitError struct {
	Limit int
}

func (e *RoundTripLimitError) Error() string {
	return fmt.Sprintf("no final answer after %d model round trips", e.Limit)
}

// Agent is the AI assistant that handles the chat session.
//
// It owns the transcript of the session. Each call to Turn appends the user
// input, then calls the model, and the tools it requests, until the model
// gives its final answer.
type Agent struct {
	gateway       Gateway
	library       *Library
	transcript    *Transcript
	system        string
	maxRoundTrips int

	w      io.Writer
	r      *bufio.Reader
	format func(string) (string, error)
}

// Option configures an Agent.
type Option func(*Agent)

// WithSystemPrompt seeds the transcript with a system message.
func WithSystemPrompt(text string) Option {
	return func(a *Agent) { a.system = text }
}

// WithMaxRoundTrips caps the model round trips of a single turn.
func WithMaxRoundTrips(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxRoundTrips = n
		}
	}
}

// WithIO sets the streams used by Run. Defaults to stdout and stdin.
func WithIO(w io.Writer, r io.Reader) Option {
	return func(a *Agent) {
		a.w = w
		a.r = bufio.NewReader(r)
	}
}

// WithFormatter transforms the answers before Run prints them.
func WithFormatter(format func(string) (string, error)) Option {
	return func(a *Agent) { a.format = format }
}

// New creates a new Agent talking to gw, with the tools of lib.
func New(gw Gateway, lib *Library, opts ...Option) *Agent {
	a := &Agent{
		gateway:       gw,
		library:       lib,
		maxRoundTrips: DefaultMaxRoundTrips,
		w:             os.Stdout,
		r:             bufio.NewReader(os.Stdin),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.transcript = NewTranscript(a.system)
	return a
}

// Transcript returns the session transcript.
func (a *Agent) Transcript() *Transcript { return a.transcript }

// Turn processes one user input and returns the model's final answer.
//
// Tool results are never returned, only the answer that follows them. The
// turn fails with *BackendError if the gateway fails, and with
// *RoundTripLimitError if the model is still requesting tools after the
// configured number of round trips. In both cases the transcript remains well
// formed and the next turn can proceed.
func (a *Agent) Turn(ctx context.Context, input string) (string, error) {
	ctx, span := startSpan(ctx, "agent.turn")
	answer, err := a.turn(ctx, input)
	endSpan(span, err)
	return answer, err
}

func (a *Agent) turn(ctx context.Context, input string) (string, error) {
	a.transcript.Append(UserMessage(input))
	tools := a.library.Specs()

	for trip := 1; ; trip++ {
		if trip > a.maxRoundTrips {
			return "", &RoundTripLimitError{Limit: a.maxRoundTrips}
		}
		resp, err := a.complete(ctx, trip, tools)
		if err != nil {
			return "", err
		}
		if resp.IsFinal() {
			a.transcript.Append(AssistantMessage(resp.Content))
			return resp.Content, nil
		}

		calls := withIDs(resp.ToolCalls)
		// The request goes in before any of its answers.
		a.transcript.Append(AssistantMessage(resp.Content, calls...))
		for _, call := range calls {
			a.transcript.Append(ToolMessage(call, a.dispatch(ctx, call)))
		}
	}
}

// complete runs one round trip with the model.
func (a *Agent) complete(ctx context.Context, trip int, tools []ToolSpec) (Response, error) {
	ctx, span := startSpan(ctx, "agent.complete", attribute.Int("round_trip", trip))
	resp, err := a.gateway.Complete(ctx, a.transcript.Messages(), tools)
	if err != nil {
		var be *BackendError
		if !errors.As(err, &be) {
			err = &BackendError{Backend: "gateway", Err: err}
		}
	}
	endSpan(span, err)
	return resp, err
}

// dispatch runs a tool call and returns the text of its tool message.
//
// Errors, and panics, are turned into the result text so that the model can
// react to them.
func (a *Agent) dispatch(ctx context.Context, call ToolCall) string {
	ctx, span := startSpan(ctx, "agent.tool",
		attribute.String("tool", call.Name),
		attribute.String("call_id", call.ID))

	result, err := a.call(ctx, call)
	outcome := "ok"
	if err != nil {
		outcome = outcomeOf(err)
		result = "error: " + err.Error()
	}
	endSpan(span, err)
	countToolCall(ctx, call.Name, outcome)
	log.Debug(ctx,
		log.KV{K: "msg", V: "tool call"},
		log.KV{K: "tool", V: call.Name},
		log.KV{K: "call_id", V: call.ID},
		log.KV{K: "outcome", V: outcome},
		log.KV{K: "result", V: result})
	return result
}

func (a *Agent) call(ctx context.Context, call ToolCall) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s failed: %v", call.Name, r)
		}
	}()
	return a.library.Call(ctx, call)
}

func outcomeOf(err error) string {
	var unknown *UnknownToolError
	var parse *ArgumentParseError
	switch {
	case errors.As(err, &unknown):
		return "unknown_tool"
	case errors.As(err, &parse):
		return "invalid_arguments"
	default:
		return "error"
	}
}

// withIDs returns calls where every missing id has been generated.
func withIDs(calls []ToolCall) []ToolCall {
	out := make([]ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = "call_" + uuid.NewString()
		}
		out[i] = c
	}
	return out
}

const (
	prompt       = "User: "
	answerPrefix = "Assistant: "
	exitToken    = "bye"
)

// Run starts the interactive session.
//
// The prompts, if any, are used as the first user inputs. Then inputs are
// read line by line until an empty line, "bye" or the end of the input.
// A failed turn is reported to the user and the session goes on.
func (a *Agent) Run(ctx context.Context, prompts ...string) error {
	fmt.Fprintln(a.w, "Welcome to fin, your personal finance assistant. Type 'bye' to exit.")

	for {
		fmt.Fprint(a.w, prompt)
		var input string

		// Flush prompts from the list and then ask for the user.
		if len(prompts) > 0 {
			input, prompts = strings.TrimSpace(prompts[0]), prompts[1:]
			fmt.Fprintln(a.w, input)
		} else {
			line, err := a.r.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			if err != nil && strings.TrimSpace(line) == "" {
				fmt.Fprintln(a.w) // Clean exit on Ctrl+D
				return nil
			}
			input = strings.TrimSpace(line)
		}

		if input == "" || input == exitToken {
			return nil
		}

		answer, err := a.Turn(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error(ctx, err, log.KV{K: "msg", V: "turn failed"})
			fmt.Fprintf(a.w, "%sSorry, I could not complete that request: %v\n", answerPrefix, err)
			continue
		}
		fmt.Fprintln(a.w, answerPrefix+a.render(ctx, answer))
	}
}

func (a *Agent) render(ctx context.Context, answer string) string {
	if a.format == nil {
		return answer
	}
	out, err := a.format(answer)
	if err != nil {
		log.Warn(ctx, log.KV{K: "msg", V: "format answer"}, log.KV{K: "err", V: err.Error()})
		return answer
	}
	return out
}
