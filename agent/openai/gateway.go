// Package openai provides an agent.Gateway backed by the OpenAI Chat
// Completions API. Any compatible endpoint works, Groq included, by setting
// the base URL.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/fintalk/agent"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GroqBaseURL is the OpenAI compatible endpoint of Groq.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// ChatClient captures the subset of the SDK client used by the gateway.
type ChatClient interface {
	New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
}

// Options configures the gateway.
type Options struct {
	Client    ChatClient
	Model     string
	MaxTokens int64
	// Name of the backend in errors, defaults to "openai".
	Name string
}

// Gateway implements agent.Gateway over Chat Completions.
type Gateway struct {
	chat      ChatClient
	model     string
	maxTokens int64
	name      string
}

// New builds a gateway from opts.
func New(opts Options) (*Gateway, error) {
	if opts.Client == nil {
		return nil, errors.New("openai client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model is required")
	}
	name := opts.Name
	if name == "" {
		name = "openai"
	}
	return &Gateway{chat: opts.Client, model: opts.Model, maxTokens: opts.MaxTokens, name: name}, nil
}

// NewFromAPIKey builds a gateway with the SDK HTTP client. An empty baseURL
// means the OpenAI API.
//
// SDK retries are disabled, retries belong to agent.Resilient.
func NewFromAPIKey(apiKey, baseURL, model string, maxTokens int64) (*Gateway, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	name := "openai"
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
		if baseURL == GroqBaseURL {
			name = "groq"
		}
	}
	client := sdk.NewClient(opts...)
	return New(Options{Client: &client.Chat.Completions, Model: model, MaxTokens: maxTokens, Name: name})
}

// Complete sends the transcript and the tools as a chat completion request.
func (g *Gateway) Complete(ctx context.Context, msgs []agent.Message, tools []agent.ToolSpec) (agent.Response, error) {
	params := sdk.ChatCompletionNewParams{
		Model:    g.model,
		Messages: encodeMessages(msgs),
		Tools:    encodeTools(tools),
	}
	if g.maxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(g.maxTokens)
	}
	resp, err := g.chat.New(ctx, params)
	if err != nil {
		return agent.Response{}, g.backendError(err)
	}
	return translateResponse(resp), nil
}

func (g *Gateway) backendError(err error) error {
	be := &agent.BackendError{Backend: g.name, Err: fmt.Errorf("chat completion: %w", err)}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		be.Transient = agent.TransientStatus(apiErr.StatusCode)
	} else if !errors.Is(err, context.Canceled) {
		// no status: the request did not make it, network or timeout
		be.Transient = true
	}
	return be
}

func encodeMessages(msgs []agent.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case agent.RoleSystem:
			out = append(out, sdk.SystemMessage(m.Content))
		case agent.RoleUser:
			out = append(out, sdk.UserMessage(m.Content))
		case agent.RoleTool:
			out = append(out, sdk.ToolMessage(m.Content, m.ToolCallID))
		case agent.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, sdk.AssistantMessage(m.Content))
				continue
			}
			assistant := &sdk.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = sdk.String(m.Content)
			}
			for _, c := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, sdk.ChatCompletionMessageToolCallParam{
					ID: c.ID,
					Function: sdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      c.Name,
						Arguments: c.Arguments,
					},
				})
			}
			out = append(out, sdk.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		}
	}
	return out
}

func encodeTools(specs []agent.ToolSpec) []sdk.ChatCompletionToolParam {
	if len(specs) == 0 {
		return nil
	}
	tools := make([]sdk.ChatCompletionToolParam, 0, len(specs))
	for _, s := range specs {
		tools = append(tools, sdk.ChatCompletionToolParam{
			Function: sdk.FunctionDefinitionParam{
				Name:        s.Name,
				Description: sdk.String(s.Description),
				Parameters:  sdk.FunctionParameters(s.Parameters),
			},
		})
	}
	return tools
}

// translateResponse reads the first choice. No choice at all is an empty
// final answer.
func translateResponse(resp *sdk.ChatCompletion) agent.Response {
	if resp == nil || len(resp.Choices) == 0 {
		return agent.FinalAnswer("")
	}
	msg := resp.Choices[0].Message
	out := agent.Response{Content: msg.Content}
	for _, c := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
			ID:        c.ID,
			Name:      c.Function.Name,
			Arguments: c.Function.Arguments,
		})
	}
	return out
}
