package toolshell

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lspfacade/mlsp/internal/cli/ui"
	"github.com/lspfacade/mlsp/internal/connmanager"
	"github.com/lspfacade/mlsp/internal/lsperrors"
	"github.com/lspfacade/mlsp/internal/rootresolver"
	"github.com/lspfacade/mlsp/internal/serverconfig"
)

// handleServerStatus implements "server-status": lists every pooled
// connection's key, pid, and initialization state.
func (tc *ToolContext) handleServerStatus(_ context.Context, _ rawParams) (interface{}, error) {
	instances := tc.Conns.Listing()
	out := make([]map[string]interface{}, 0, len(instances))
	for _, inst := range instances {
		out = append(out, map[string]interface{}{
			"id":          inst.Key.ID,
			"root":        inst.Key.Root,
			"pid":         inst.PID,
			"initialized": inst.Initialized,
		})
	}
	return map[string]interface{}{"servers": out}, nil
}

type serverStartParams struct {
	ID   string `json:"id"`
	Root string `json:"root"`
}

// handleServerStart implements "server-start": explicitly spawns (or
// reuses) the connection for (id, root), surfacing a fuzzy "did you
// mean" suggestion against configured ids when id is unrecognized.
func (tc *ToolContext) handleServerStart(ctx context.Context, raw rawParams) (interface{}, error) {
	var p serverStartParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	cfg, ok := serverconfig.FindByID(tc.Servers, p.ID)
	if !ok {
		return nil, unknownServerError(tc.Servers, p.ID)
	}
	root := p.Root
	if root == "" {
		root = rootresolver.Resolve(".", cfg.RootMarkers)
	}
	c, err := tc.Conns.Get(ctx, cfg, root)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"id": cfg.ID, "root": root, "pid": c.PID()}, nil
}

type serverStopParams struct {
	ID   string `json:"id"`
	Root string `json:"root"`
}

// handleServerStop implements "server-stop".
func (tc *ToolContext) handleServerStop(ctx context.Context, raw rawParams) (interface{}, error) {
	var p serverStopParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if _, ok := serverconfig.FindByID(tc.Servers, p.ID); !ok {
		return nil, unknownServerError(tc.Servers, p.ID)
	}
	key := connmanager.ServerKey{ID: p.ID, Root: p.Root}
	if err := tc.Conns.Stop(ctx, key); err != nil {
		return nil, err
	}
	return map[string]interface{}{"stopped": true}, nil
}

// unknownServerError builds a server-not-found error with a fuzzy "did you
// mean" suggestion against the configured server ids.
func unknownServerError(servers []serverconfig.Config, id string) error {
	err := lsperrors.New(lsperrors.ServerNotFound, fmt.Sprintf("no configured server with id %q", id))
	if matches := ui.FindSimilar(id, serverconfig.IDs(servers), nil); len(matches) > 0 {
		err = err.WithSuggestion(fmt.Sprintf("did you mean: %s?", matches[0]))
	}
	return err
}
