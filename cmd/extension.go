package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"goa.design/clue/log"
)

// Environment passed to extensions, on top of the caller's one.
const (
	EnvConfigFile = "FIN_CONFIG_FILE"
	EnvDebug      = "FIN_DEBUG"
)

// RunExtension attempts to find and execute an external fin-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
func RunExtension(ctx context.Context, subcommand string, args []string) (bool, int) {
	return runExtension(ctx, subcommand, args, os.Stdin, os.Stdout, os.Stderr)
}

func runExtension(ctx context.Context, subcommand string, args []string, stdin io.Reader, stdout, stderr io.Writer) (bool, int) {
	name := "fin-" + subcommand
	lp, err := exec.LookPath(name)
	if err != nil {
		log.Debug(ctx, log.KV{K: "msg", V: "no extension"}, log.KV{K: "name", V: name}, log.KV{K: "err", V: err})
		return false, 0
	}

	cmd := exec.CommandContext(ctx, lp, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = append(os.Environ(),
		EnvConfigFile+"="+*configFile,
		EnvDebug+"="+strconv.FormatBool(*Debug),
	)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return true, exitErr.ExitCode()
		}
		fmt.Fprintf(stderr, "Error executing external command %q: %v\n", name, err)
		return true, 1
	}
	return true, 0
}
