// Package cmd implements the subcommands of the fin assistant.
package cmd

import (
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/fintalk/config"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&chatCmd{}, "assistant")
	c.Register(&toolsCmd{}, "assistant")
	c.Register(&topicCmd{}, "documentation")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "", "Path to an optional configuration file (yaml, json or toml)")

// Debug enables debug log entries, every tool dispatch included.
var Debug = flag.Bool("debug", false, "Log debug entries to stderr")

func loadConfig() (*config.Config, error) { return config.Load(*configFile) }

// renderMarkdown renders md for the terminal.
func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return "", err
	}
	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// printMarkdown prints md rendered, or raw if rendering fails.
func printMarkdown(md string) {
	out, err := renderMarkdown(md)
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Println(out)
}
