// Package gemini provides an agent.Gateway backed by Google Gemini
// GenerateContent with function declarations.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/fintalk/agent"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// ModelsClient captures the subset of the genai client used by the gateway.
type ModelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gateway implements agent.Gateway over Gemini.
type Gateway struct {
	models    ModelsClient
	model     string
	maxTokens int32
}

// New builds a gateway on models.
func New(models ModelsClient, model string, maxTokens int32) (*Gateway, error) {
	if models == nil {
		return nil, errors.New("gemini client is required")
	}
	if model == "" {
		return nil, errors.New("model is required")
	}
	return &Gateway{models: models, model: model, maxTokens: maxTokens}, nil
}

// NewFromAPIKey builds a gateway on the Gemini API.
func NewFromAPIKey(ctx context.Context, apiKey, model string, maxTokens int32) (*Gateway, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return New(client.Models, model, maxTokens)
}

func (g *Gateway) Complete(ctx context.Context, msgs []agent.Message, tools []agent.ToolSpec) (agent.Response, error) {
	system, contents := encodeMessages(msgs)
	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		MaxOutputTokens:   g.maxTokens,
	}
	if len(tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: encodeTools(tools)}}
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return agent.Response{}, backendError(err)
	}
	return translateResponse(resp), nil
}

func backendError(err error) error {
	be := &agent.BackendError{Backend: "gemini", Err: fmt.Errorf("generate content: %w", err)}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		be.Transient = agent.TransientStatus(apiErr.Code)
	} else if !errors.Is(err, context.Canceled) {
		be.Transient = true
	}
	return be
}

// encodeMessages splits the system instruction from the contents. Consecutive
// tool messages are grouped in a single user content, as Gemini expects all
// the responses to a turn of calls together.
func encodeMessages(msgs []agent.Message) (*genai.Content, []*genai.Content) {
	var system []*genai.Part
	var contents []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case agent.RoleSystem:
			system = append(system, &genai.Part{Text: m.Content})
		case agent.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case agent.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, c := range m.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   c.ID,
					Name: c.Name,
					Args: parseArguments(c.Arguments),
				}})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case agent.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     m.Name,
				Response: toolResponse(m.Content),
			}}
			if n := len(contents); n > 0 && isFunctionResponses(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return &genai.Content{Parts: system}, contents
}

func isFunctionResponses(c *genai.Content) bool {
	return c.Role == genai.RoleUser && len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

// toolResponse uses the "output" and "error" keys Gemini documents.
func toolResponse(content string) map[string]any {
	if msg, ok := strings.CutPrefix(content, "error: "); ok {
		return map[string]any{"error": msg}
	}
	return map[string]any{"output": content}
}

func parseArguments(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"raw": raw}
	}
	return args
}

func encodeTools(specs []agent.ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  toSchema(s.Parameters),
		})
	}
	return decls
}

// toSchema converts the subset of JSON schema used by the tools.
func toSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := m["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	s.Description, _ = m["description"].(string)
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = toSchema(pm)
			}
		}
	}
	switch req := m["required"].(type) {
	case []string:
		s.Required = req
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = toSchema(items)
	}
	if n, ok := m["minLength"].(int); ok {
		v := int64(n)
		s.MinLength = &v
	}
	return s
}

// translateResponse reads the first candidate. Gemini may omit call ids,
// they are generated then.
func translateResponse(resp *genai.GenerateContentResponse) agent.Response {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return agent.FinalAnswer("")
	}
	var out agent.Response
	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		switch {
		case p.FunctionCall != nil:
			args := []byte("{}")
			if p.FunctionCall.Args != nil {
				if b, err := json.Marshal(p.FunctionCall.Args); err == nil {
					args = b
				}
			}
			id := p.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{ID: id, Name: p.FunctionCall.Name, Arguments: string(args)})
		case p.Thought:
		default:
			text.WriteString(p.Text)
		}
	}
	out.Content = text.String()
	return out
}
