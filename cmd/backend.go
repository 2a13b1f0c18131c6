package cmd

import (
	"context"
	"fmt"

	"github.com/etnz/fintalk/agent"
	"github.com/etnz/fintalk/agent/anthropic"
	"github.com/etnz/fintalk/agent/gemini"
	"github.com/etnz/fintalk/agent/mock"
	"github.com/etnz/fintalk/agent/openai"
	"github.com/etnz/fintalk/config"
)

// newGateway returns the gateway of the configured backend, wrapped with
// the retry, timeout and rate limit policy.
func newGateway(ctx context.Context, cfg *config.Config) (agent.Gateway, error) {
	var (
		gw  agent.Gateway
		err error
	)
	switch cfg.Backend {
	case "groq", "openai":
		var g *openai.Gateway
		g, err = openai.NewFromAPIKey(cfg.APIKey, cfg.BaseURL, cfg.Model, int64(cfg.MaxTokens))
		gw = g
	case "gemini":
		var g *gemini.Gateway
		g, err = gemini.NewFromAPIKey(ctx, cfg.APIKey, cfg.Model, int32(cfg.MaxTokens))
		gw = g
	case "anthropic":
		var g *anthropic.Gateway
		g, err = anthropic.NewFromAPIKey(cfg.APIKey, cfg.Model, int64(cfg.MaxTokens))
		gw = g
	case "mock":
		// no script: answers echo the tool results, if any
		return mock.NewGateway(), nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s backend: %w", cfg.Backend, err)
	}
	return agent.Resilient(gw, policy(cfg)), nil
}

func policy(cfg *config.Config) agent.Policy {
	return agent.Policy{
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Jitter:      agent.DefaultPolicy.Jitter,
		RateLimit:   cfg.RateLimit,
	}
}
