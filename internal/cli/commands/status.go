package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lspfacade/mlsp/internal/cli/config"
	"github.com/lspfacade/mlsp/internal/cli/ui"
	"github.com/lspfacade/mlsp/internal/lsperrors"
	"github.com/lspfacade/mlsp/internal/serverconfig"
)

// NewStatusCommand creates the status command: a one-shot snapshot of the
// configured server table, optionally filtered to one server id. A running
// mlsp serve process holds its own in-memory connection pool, which this
// short-lived process cannot see, so this reports the configured table
// rather than live instances.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [server-id]",
		Short: "Show the configured language server table",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), nil, false))
		return err
	}

	servers := cfg.ResolvedServers()

	if len(args) == 1 {
		id := args[0]
		s, ok := serverconfig.FindByID(servers, id)
		if !ok {
			suggestions := ui.FindSimilar(id, serverconfig.IDs(servers), nil)
			fmt.Fprint(cmd.ErrOrStderr(), ui.ServerNotFoundError(id, suggestions, false))
			return lsperrors.New(lsperrors.ServerNotFound, fmt.Sprintf("no configured server with id %q", id))
		}
		servers = []serverconfig.Config{s}
	}

	table := ui.NewTable(cmd.OutOrStdout(), []string{"ID", "COMMAND", "EXTENSIONS", "ROOT MARKERS"}, nil)
	for _, s := range servers {
		table.AddRow(s.ID, s.Command, fmt.Sprint(s.Extensions), fmt.Sprint(s.RootMarkers))
	}
	table.Render()

	fmt.Fprintln(cmd.OutOrStdout())
	kv := ui.NewKeyValueTable(cmd.OutOrStdout(), false)
	kv.AddRow("requestTimeout", cfg.RequestTimeout.String())
	kv.AddRow("idleTimeout", cfg.IdleTimeout.String())
	kv.AddRow("logLevel", cfg.LogLevel)
	kv.AddRow("autoStart", strconv.FormatBool(cfg.AutoStart))
	kv.Render()

	return nil
}
