// Command mlsp is a multiplexing façade over one or more Language Server
// Protocol subprocesses, exposing a stable stdio tool surface to a
// controlling agent.
package main

import (
	"os"

	"github.com/lspfacade/mlsp/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
