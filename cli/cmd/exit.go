package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Exit codes of a slave process.
const (
	exitSuccess = 0
	exitUsage   = 1
	exitFatal   = 2
)

// ExitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func ExitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(exitCode(err))
}

// exitCode prints err when it carries a message and returns the process
// exit code for it.
func exitCode(err error) int {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"; skip those.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		return code
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitUsage
}
