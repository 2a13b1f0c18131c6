// Package anthropic provides an agent.Gateway backed by the Anthropic
// Messages API, with tool_use and tool_result content blocks.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/etnz/fintalk/agent"
)

// DefaultMaxTokens is used when no completion cap is configured, the API
// requires one.
const DefaultMaxTokens = 1024

// MessagesClient captures the subset of the SDK client used by the gateway.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Gateway implements agent.Gateway over the Messages API.
type Gateway struct {
	msgs      MessagesClient
	model     string
	maxTokens int64
}

// New builds a gateway on msgs.
func New(msgs MessagesClient, model string, maxTokens int64) (*Gateway, error) {
	if msgs == nil {
		return nil, errors.New("anthropic client is required")
	}
	if model == "" {
		return nil, errors.New("model is required")
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Gateway{msgs: msgs, model: model, maxTokens: maxTokens}, nil
}

// NewFromAPIKey builds a gateway with the SDK HTTP client, SDK retries
// disabled.
func NewFromAPIKey(apiKey, model string, maxTokens int64) (*Gateway, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0))
	return New(&client.Messages, model, maxTokens)
}

func (g *Gateway) Complete(ctx context.Context, msgs []agent.Message, tools []agent.ToolSpec) (agent.Response, error) {
	system, messages := encodeMessages(msgs)
	params := sdk.MessageNewParams{
		Model:     sdk.Model(g.model),
		MaxTokens: g.maxTokens,
		System:    system,
		Messages:  messages,
		Tools:     encodeTools(tools),
	}
	resp, err := g.msgs.New(ctx, params)
	if err != nil {
		return agent.Response{}, backendError(err)
	}
	return translateResponse(resp), nil
}

func backendError(err error) error {
	be := &agent.BackendError{Backend: "anthropic", Err: fmt.Errorf("messages.new: %w", err)}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		// 529 is "overloaded"
		be.Transient = agent.TransientStatus(apiErr.StatusCode)
	} else if !errors.Is(err, context.Canceled) {
		be.Transient = true
	}
	return be
}

// encodeMessages extracts the system prompt and builds alternating user and
// assistant messages: tool results and user text that follow each other are
// merged in a single user message.
func encodeMessages(msgs []agent.Message) ([]sdk.TextBlockParam, []sdk.MessageParam) {
	var system []sdk.TextBlockParam
	var out []sdk.MessageParam
	appendUser := func(block sdk.ContentBlockParamUnion) {
		if n := len(out); n > 0 && out[n-1].Role == sdk.MessageParamRoleUser {
			out[n-1].Content = append(out[n-1].Content, block)
			return
		}
		out = append(out, sdk.NewUserMessage(block))
	}
	for _, m := range msgs {
		switch m.Role {
		case agent.RoleSystem:
			system = append(system, sdk.TextBlockParam{Text: m.Content})
		case agent.RoleUser:
			appendUser(sdk.NewTextBlock(m.Content))
		case agent.RoleTool:
			content, isError := strings.CutPrefix(m.Content, "error: ")
			appendUser(sdk.NewToolResultBlock(m.ToolCallID, content, isError))
		case agent.RoleAssistant:
			var blocks []sdk.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, c := range m.ToolCalls {
				blocks = append(blocks, sdk.NewToolUseBlock(c.ID, toolInput(c.Arguments), c.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, sdk.NewAssistantMessage(blocks...))
		}
	}
	return system, out
}

// toolInput echoes the arguments as they were received.
func toolInput(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	if !json.Valid([]byte(raw)) {
		return map[string]any{"raw": raw}
	}
	return json.RawMessage(raw)
}

func encodeTools(specs []agent.ToolSpec) []sdk.ToolUnionParam {
	if len(specs) == 0 {
		return nil
	}
	tools := make([]sdk.ToolUnionParam, 0, len(specs))
	for _, s := range specs {
		tool := sdk.ToolUnionParamOfTool(inputSchema(s.Parameters), s.Name)
		tool.OfTool.Description = sdk.String(s.Description)
		tools = append(tools, tool)
	}
	return tools
}

// inputSchema splits a JSON schema object into the typed fields of the
// SDK parameter, anything else travels as extra fields.
func inputSchema(schema map[string]any) sdk.ToolInputSchemaParam {
	var out sdk.ToolInputSchemaParam
	for k, v := range schema {
		switch k {
		case "type":
		case "properties":
			out.Properties = v
		case "required":
			switch req := v.(type) {
			case []string:
				out.Required = req
			case []any:
				for _, r := range req {
					if name, ok := r.(string); ok {
						out.Required = append(out.Required, name)
					}
				}
			}
		default:
			if out.ExtraFields == nil {
				out.ExtraFields = make(map[string]any)
			}
			out.ExtraFields[k] = v
		}
	}
	if out.Properties == nil {
		out.Properties = map[string]any{}
	}
	return out
}

func translateResponse(msg *sdk.Message) agent.Response {
	if msg == nil {
		return agent.FinalAnswer("")
	}
	var out agent.Response
	var text []string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				text = append(text, block.Text)
			}
		case "tool_use":
			args := string(block.Input)
			if args == "" || args == "null" {
				args = "{}"
			}
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	out.Content = strings.Join(text, "\n")
	return out
}
