package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/fintalk"
	"github.com/etnz/fintalk/agent"
	"github.com/google/subcommands"
)

type toolsCmd struct{}

func (*toolsCmd) Name() string     { return "tools" }
func (*toolsCmd) Synopsis() string { return "print the tool declarations sent to the model" }
func (*toolsCmd) Usage() string {
	return `fin tools

  Print, as JSON, the name, description and parameter schema of every tool
  the assistant advertises to the model.
`
}

func (*toolsCmd) SetFlags(_ *flag.FlagSet) {}

func (*toolsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := writeTools(os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error listing tools:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// writeTools writes the declarations of the ledger tools. They do not depend
// on the ledger currency.
func writeTools(w io.Writer) error {
	lib, err := agent.NewLedgerLibrary(fintalk.NewLedger("INR"))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(lib.Specs())
}
