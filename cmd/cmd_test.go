package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/fintalk"
	"github.com/etnz/fintalk/agent"
	"github.com/etnz/fintalk/agent/mock"
	"github.com/etnz/fintalk/agent/openai"
	"github.com/etnz/fintalk/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/clue/log"
)

func TestWriteTools(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, writeTools(&b))

	var v any
	require.NoError(t, json.Unmarshal(b.Bytes(), &v))
	names, err := jsonpath.Get("$[*].name", v)
	require.NoError(t, err)
	assert.Equal(t, []any{"getTotalExpense", "addExpense", "addIncome", "getMoneyBalance"}, names)

	required, err := jsonpath.Get(`$[?(@.name == "addExpense")].parameters.required[*]`, v)
	require.NoError(t, err)
	assert.Equal(t, []any{"name", "amount"}, required)
}

func mockConfig() *config.Config {
	return &config.Config{
		Backend:       "mock",
		Model:         "mock",
		Currency:      "EUR",
		MaxRoundTrips: 4,
		Retry:         config.Retry{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Second},
	}
}

func TestNewGateway(t *testing.T) {
	ctx := context.Background()

	gw, err := newGateway(ctx, mockConfig())
	require.NoError(t, err)
	assert.IsType(t, &mock.Gateway{}, gw)

	cfg := mockConfig()
	cfg.Backend, cfg.APIKey, cfg.BaseURL, cfg.Model = "groq", "gsk_test", openai.GroqBaseURL, "llama-3.3-70b-versatile"
	gw, err = newGateway(ctx, cfg)
	require.NoError(t, err)
	assert.NotNil(t, gw)

	cfg.Backend, cfg.Model = "anthropic", "claude-sonnet-4-5"
	_, err = newGateway(ctx, cfg)
	require.NoError(t, err)

	cfg.APIKey = ""
	_, err = newGateway(ctx, cfg)
	assert.ErrorContains(t, err, "anthropic backend")

	cfg.Backend = "eliza"
	_, err = newGateway(ctx, cfg)
	assert.ErrorContains(t, err, "unsupported backend")
}

func TestPolicy(t *testing.T) {
	cfg := mockConfig()
	cfg.Timeout = 5 * time.Second
	cfg.RateLimit = 2
	assert.Equal(t, agent.Policy{
		Timeout:     5 * time.Second,
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Second,
		Jitter:      agent.DefaultPolicy.Jitter,
		RateLimit:   2,
	}, policy(cfg))
}

func TestChat_NewAgent(t *testing.T) {
	c := &chatCmd{}
	a, closer, err := c.newAgent(context.Background(), mockConfig(), "s1")
	require.NoError(t, err)
	defer closer()

	// the mock backend echoes the tool results, there are none here
	answer, err := a.Turn(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "mock response", answer)

	msgs := a.Transcript().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, agent.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "EUR")
}

func TestWriteTranscript(t *testing.T) {
	tr := agent.NewTranscript("system")
	tr.Append(agent.UserMessage("hi"), agent.AssistantMessage("hello"))
	name := filepath.Join(t.TempDir(), "transcript.json")

	require.NoError(t, writeTranscript(name, tr))
	b, err := os.ReadFile(name)
	require.NoError(t, err)
	var msgs []agent.Message
	require.NoError(t, json.Unmarshal(b, &msgs))
	assert.Equal(t, tr.Messages(), msgs)
}

func TestRenderMarkdown(t *testing.T) {
	out, err := renderMarkdown("Balance: **" + fintalk.M(7000, "INR").String() + "**")
	require.NoError(t, err)
	assert.Contains(t, out, "7000")
}

func TestTopics(t *testing.T) {
	md, err := topics()
	require.NoError(t, err)
	assert.Contains(t, md, "# fin documentation")

	md, err = topics("dates", "config")
	require.NoError(t, err)
	assert.Contains(t, md, "FIN_")

	_, err = topics("nope")
	assert.ErrorContains(t, err, "available topics: config, dates, system, tools")
}

func TestSessionContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.Context(context.Background(), log.WithOutput(&buf), log.WithFormat(log.FormatJSON))

	ctx, session := sessionContext(ctx)
	require.NotEmpty(t, session)
	log.Print(ctx, log.KV{K: "msg", V: "turn"})
	assert.Contains(t, buf.String(), "session")
	assert.Contains(t, buf.String(), session)

	_, other := sessionContext(context.Background())
	assert.NotEqual(t, session, other)
}
