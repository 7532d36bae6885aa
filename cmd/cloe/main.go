// Command cloe runs a fixed-step co-simulation described by one or more
// stackfiles. See `cloe --help` for the subcommand surface.
package main

import (
	"os"

	"github.com/cloe-sim/cloe-go/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
