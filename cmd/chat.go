package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etnz/fintalk"
	"github.com/etnz/fintalk/agent"
	"github.com/etnz/fintalk/config"
	"github.com/etnz/fintalk/docs"
	"github.com/etnz/fintalk/events/kafka"
	"github.com/google/subcommands"
	"github.com/google/uuid"
	"goa.design/clue/log"
)

type chatCmd struct {
	markdown   bool
	transcript string
}

func (*chatCmd) Name() string     { return "chat" }
func (*chatCmd) Synopsis() string { return "start an interactive session with the finance assistant" }
func (*chatCmd) Usage() string {
	return `fin chat [-markdown] [-transcript <file>] [<first message>...]

  Start an interactive session with the finance assistant. Tell it what you
  spend and earn, ask for your balance or your expenses over a period.
  Words given on the command line are sent as the first message.
  Type 'bye' or an empty line to exit.

  The backend, model and credentials come from the configuration, see
  'fin topic config'.
`
}

func (c *chatCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.markdown, "markdown", false, "Render the assistant answers as markdown")
	f.StringVar(&c.transcript, "transcript", "", "Write the session transcript as JSON to this file on exit")
}

func (c *chatCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading configuration:", err)
		return subcommands.ExitFailure
	}
	ctx, session := sessionContext(ctx)
	a, closer, err := c.newAgent(ctx, cfg, session)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error starting the assistant:", err)
		return subcommands.ExitFailure
	}
	defer closer()

	var prompts []string
	if f.NArg() > 0 {
		prompts = append(prompts, strings.Join(f.Args(), " "))
	}
	runErr := a.Run(ctx, prompts...)

	if c.transcript != "" {
		if err := writeTranscript(c.transcript, a.Transcript()); err != nil {
			fmt.Fprintln(os.Stderr, "Error writing transcript:", err)
			return subcommands.ExitFailure
		}
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, "Assistant failed:", runErr)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// sessionContext returns a new session id and ctx carrying it, so that every
// log of the session, tool dispatches included, is tagged with it.
func sessionContext(ctx context.Context) (context.Context, string) {
	session := uuid.NewString()
	return log.With(ctx, log.KV{K: "session", V: session}), session
}

// newAgent wires the ledger, its tools and the configured backend. The
// returned func releases the event publisher, if any.
func (c *chatCmd) newAgent(ctx context.Context, cfg *config.Config, session string) (*agent.Agent, func(), error) {
	closer := func() {}
	gw, err := newGateway(ctx, cfg)
	if err != nil {
		return nil, closer, err
	}

	ledger := fintalk.NewLedger(cfg.Currency, fintalk.WithNegativePolicy(cfg.NegativeAmounts))
	toolOpts := []agent.ToolOption{agent.WithSession(session)}
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := kafka.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, closer, err
		}
		closer = func() {
			if err := pub.Close(); err != nil {
				log.Error(ctx, err, log.KV{K: "msg", V: "closing event publisher"})
			}
		}
		toolOpts = append(toolOpts, agent.WithPublisher(pub))
	}
	lib, err := agent.NewLedgerLibrary(ledger, toolOpts...)
	if err != nil {
		return nil, closer, err
	}

	system, err := docs.SystemPrompt(time.Now(), cfg.Currency)
	if err != nil {
		return nil, closer, err
	}
	opts := []agent.Option{
		agent.WithSystemPrompt(system),
		agent.WithMaxRoundTrips(cfg.MaxRoundTrips),
		agent.WithIO(os.Stdout, os.Stdin),
	}
	if c.markdown {
		opts = append(opts, agent.WithFormatter(renderMarkdown))
	}
	log.Debug(ctx, log.KV{K: "backend", V: cfg.Backend}, log.KV{K: "model", V: cfg.Model}, log.KV{K: "currency", V: cfg.Currency}, log.KV{K: "negative_amounts", V: ledger.Policy().String()})
	return agent.New(gw, lib, opts...), closer, nil
}

func writeTranscript(name string, t *agent.Transcript) error {
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(name, append(b, '\n'), 0o644)
}
