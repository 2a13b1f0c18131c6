package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/fintalk/docs"
	"github.com/google/subcommands"
)

// topicCmd prints embedded documentation.
type topicCmd struct{ raw bool }

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "show documentation" }
func (*topicCmd) Usage() string {
	return `fin topic [-raw] [<topic>...]

  Print the documentation topics, or the index of topics when none is given.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "Print the markdown source instead of rendering it")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	md, err := topics(f.Args()...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if c.raw {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}

// topics concatenates the named topics, readme by default.
func topics(names ...string) (string, error) {
	if len(names) == 0 {
		names = []string{"readme"}
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		doc, err := docs.GetTopic(name)
		if err != nil {
			all, _ := docs.GetAllTopics()
			return "", fmt.Errorf("%w, available topics: %s", err, strings.Join(all, ", "))
		}
		parts = append(parts, doc)
	}
	return strings.Join(parts, "\n\n"), nil
}
