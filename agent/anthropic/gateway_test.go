package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PaesslerAG/jsonpath"
	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/etnz/fintalk/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessages struct {
	params sdk.MessageNewParams
	resp   string
	err    error
}

func (f *fakeMessages) New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error) {
	f.params = body
	if f.err != nil {
		return nil, f.err
	}
	var out sdk.Message
	if err := json.Unmarshal([]byte(f.resp), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *fakeMessages) request(t *testing.T) any {
	t.Helper()
	b, err := json.Marshal(f.params)
	require.NoError(t, err)
	var v any
	require.NoError(t, json.Unmarshal(b, &v))
	return v
}

func get(t *testing.T, path string, v any) any {
	t.Helper()
	got, err := jsonpath.Get(path, v)
	require.NoError(t, err, path)
	return got
}

var addExpense = agent.ToolSpec{
	Name:        "addExpense",
	Description: "Record an expense.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":   map[string]any{"type": "string"},
			"amount": map[string]any{"type": "number"},
		},
		"required": []string{"name", "amount"},
	},
}

func TestGateway_Encode(t *testing.T) {
	msgs := &fakeMessages{resp: `{"role":"assistant","content":[{"type":"text","text":"Done."}]}`}
	g, err := New(msgs, "claude-sonnet-4-5", 0)
	require.NoError(t, err)

	a := agent.ToolCall{ID: "toolu_a", Name: "addExpense", Arguments: `{"name":"rent","amount":3000}`}
	b := agent.ToolCall{ID: "toolu_b", Name: "addExpense", Arguments: `{"name":"rent","amount":"x"}`}
	history := []agent.Message{
		agent.SystemMessage("you are"),
		agent.UserMessage("rent 3000"),
		agent.AssistantMessage("On it.", a, b),
		agent.ToolMessage(a, "Added."),
		agent.ToolMessage(b, "error: invalid arguments for addExpense"),
		agent.UserMessage("and?"),
	}
	resp, err := g.Complete(context.Background(), history, []agent.ToolSpec{addExpense})
	require.NoError(t, err)
	assert.Equal(t, agent.FinalAnswer("Done."), resp)

	req := msgs.request(t)
	assert.Equal(t, "claude-sonnet-4-5", get(t, "$.model", req))
	assert.Equal(t, float64(DefaultMaxTokens), get(t, "$.max_tokens", req))
	assert.Equal(t, "you are", get(t, "$.system[0].text", req))
	assert.Equal(t, []any{"user", "assistant", "user"}, get(t, "$.messages[*].role", req))
	assert.Equal(t, []any{"text", "tool_use", "tool_use"}, get(t, "$.messages[1].content[*].type", req))
	assert.Equal(t, float64(3000), get(t, "$.messages[1].content[1].input.amount", req))
	assert.Equal(t, []any{"tool_result", "tool_result", "text"}, get(t, "$.messages[2].content[*].type", req))
	assert.Equal(t, "toolu_b", get(t, "$.messages[2].content[1].tool_use_id", req))
	assert.Equal(t, true, get(t, "$.messages[2].content[1].is_error", req))
	assert.Equal(t, "invalid arguments for addExpense", get(t, "$.messages[2].content[1].content[0].text", req))
	assert.Equal(t, "addExpense", get(t, "$.tools[0].name", req))
	assert.Equal(t, "object", get(t, "$.tools[0].input_schema.type", req))
	assert.Equal(t, []any{"name", "amount"}, get(t, "$.tools[0].input_schema.required", req))
}

func TestGateway_ToolUse(t *testing.T) {
	msgs := &fakeMessages{resp: `{"role":"assistant","content":[
		{"type":"text","text":"Let me check."},
		{"type":"tool_use","id":"toolu_1","name":"getMoneyBalance","input":{}},
		{"type":"tool_use","id":"toolu_2","name":"addIncome","input":{"name":"salary","amount":10}}
	]}`}
	g, err := New(msgs, "m", 512)
	require.NoError(t, err)

	resp, err := g.Complete(context.Background(), []agent.Message{agent.UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Let me check.", resp.Content)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, agent.ToolCall{ID: "toolu_1", Name: "getMoneyBalance", Arguments: "{}"}, resp.ToolCalls[0])
	assert.Equal(t, "toolu_2", resp.ToolCalls[1].ID)
	assert.JSONEq(t, `{"name":"salary","amount":10}`, resp.ToolCalls[1].Arguments)
}

func TestGateway_EmptyContent(t *testing.T) {
	g, err := New(&fakeMessages{resp: `{"role":"assistant","content":[]}`}, "m", 0)
	require.NoError(t, err)

	resp, err := g.Complete(context.Background(), []agent.Message{agent.UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, agent.FinalAnswer(""), resp)
}

func TestGateway_Errors(t *testing.T) {
	apiError := func(status int) error {
		return &sdk.Error{
			StatusCode: status,
			Request:    httptest.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil),
			Response:   &http.Response{StatusCode: status},
		}
	}
	testCases := []struct {
		name          string
		err           error
		wantTransient bool
	}{
		{"overloaded", apiError(529), true},
		{"rate limited", apiError(http.StatusTooManyRequests), true},
		{"bad request", apiError(http.StatusBadRequest), false},
		{"network", errors.New("connection reset by peer"), true},
		{"canceled", context.Canceled, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(&fakeMessages{err: tc.err}, "m", 0)
			require.NoError(t, err)

			_, err = g.Complete(context.Background(), []agent.Message{agent.UserMessage("hi")}, nil)
			var be *agent.BackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, "anthropic", be.Backend)
			assert.Equal(t, tc.wantTransient, be.Transient)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, "m", 0)
	assert.Error(t, err)
	_, err = New(&fakeMessages{}, "", 0)
	assert.Error(t, err)
	_, err = NewFromAPIKey("", "m", 0)
	assert.Error(t, err)
}
