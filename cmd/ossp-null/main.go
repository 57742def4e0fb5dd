// Package main provides the ossp-null slave entrypoint.
//
// Usage:
//
//	ossp-null -c <cmd fd> -n <notify fd> [-l level] [-t] [--config path]
//
// Exit codes:
//   - 0: controller closed the command channel
//   - 1: usage or setup error
//   - 2: fatal channel error
package main

import (
	"os"

	"github.com/pithecene-io/ossp/backend/null"
	"github.com/pithecene-io/ossp/cli/cmd"
)

func main() {
	if err := cmd.SlaveApp(null.Spec()).Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}
