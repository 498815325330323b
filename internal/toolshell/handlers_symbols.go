package toolshell

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/lspfacade/mlsp/internal/serverconfig"
	"github.com/lspfacade/mlsp/internal/uricodec"
)

type documentSymbolParams struct {
	Path string `json:"path"`
}

type wireDocSymbol struct {
	Name     string          `json:"name"`
	Kind     int             `json:"kind"`
	Range    wireRange       `json:"range"`
	Children []wireDocSymbol `json:"children,omitempty"`
}

func toWireDocSymbol(text string, s protocol.DocumentSymbol) wireDocSymbol {
	children := make([]wireDocSymbol, 0, len(s.Children))
	for _, c := range s.Children {
		children = append(children, toWireDocSymbol(text, c))
	}
	return wireDocSymbol{
		Name:     s.Name,
		Kind:     int(s.Kind),
		Range:    fromLSPRange(text, s.Range),
		Children: children,
	}
}

// handleDocumentSymbol implements "document-symbols".
func (tc *ToolContext) handleDocumentSymbol(ctx context.Context, raw rawParams) (interface{}, error) {
	var p documentSymbolParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	syms, err := r.client.DocumentSymbol(ctx, r.uri)
	if err != nil {
		return nil, err
	}
	out := make([]wireDocSymbol, 0, len(syms))
	for _, s := range syms {
		out = append(out, toWireDocSymbol(r.text, s))
	}
	return map[string]interface{}{"symbols": out}, nil
}

type workspaceSymbolParams struct {
	Query string `json:"query"`
	Kind  int    `json:"kind"`
	Limit int    `json:"limit"`
}

type wireWorkspaceSymbol struct {
	Name     string    `json:"name"`
	Kind     int       `json:"kind"`
	Path     string    `json:"path"`
	Range    wireRange `json:"range"`
	Server   string    `json:"server"`
}

// handleWorkspaceSymbol implements "workspace-symbols": it fans out to
// every running client (one per configured language currently pooled with
// an open root), then merges the replies. The merge drops duplicate
// (path, line, name) triples and ranks exact-case name matches before
// prefix matches before the rest.
func (tc *ToolContext) handleWorkspaceSymbol(ctx context.Context, raw rawParams) (interface{}, error) {
	var p workspaceSymbolParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	type rawHit struct {
		name   string
		kind   int
		path   string
		rng    protocol.Range
		server string
	}
	var hits []rawHit
	textCache := make(map[string]string)

	for _, inst := range tc.Conns.Listing() {
		cfg, ok := serverconfig.FindByID(tc.Servers, inst.Key.ID)
		if !ok {
			continue
		}
		c, err := tc.Conns.Get(ctx, cfg, inst.Key.Root)
		if err != nil {
			continue
		}
		syms, err := c.WorkspaceSymbol(ctx, p.Query)
		if err != nil {
			continue
		}
		for _, s := range syms {
			if p.Kind != 0 && int(s.Kind) != p.Kind {
				continue
			}
			path := uricodec.ToPath(string(s.Location.URI))
			hits = append(hits, rawHit{name: s.Name, kind: int(s.Kind), path: path, rng: s.Location.Range, server: cfg.ID})
		}
	}

	all := make([]wireWorkspaceSymbol, 0, len(hits))
	for _, h := range hits {
		text, cached := textCache[h.path]
		if !cached {
			text, _ = uricodec.ReadForOpen(h.path)
			textCache[h.path] = text
		}
		all = append(all, wireWorkspaceSymbol{
			Name:   h.name,
			Kind:   h.kind,
			Path:   h.path,
			Range:  fromLSPRange(text, h.rng),
			Server: h.server,
		})
	}

	merged := mergeWorkspaceSymbols(all, p.Query)
	if p.Limit > 0 && p.Limit < len(merged) {
		merged = merged[:p.Limit]
	}
	return map[string]interface{}{"symbols": merged}, nil
}

type dedupKey struct {
	path string
	line int
	name string
}

// mergeWorkspaceSymbols dedupes by (path, line, name) and ranks exact-case
// name matches first, then prefix matches, then everything else, each
// group stable-sorted by name.
func mergeWorkspaceSymbols(symbols []wireWorkspaceSymbol, query string) []wireWorkspaceSymbol {
	seen := make(map[dedupKey]bool, len(symbols))
	unique := make([]wireWorkspaceSymbol, 0, len(symbols))
	for _, s := range symbols {
		k := dedupKey{path: s.Path, line: s.Range.Start.Line, name: s.Name}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, s)
	}

	rank := func(name string) int {
		if name == query {
			return 0
		}
		if strings.HasPrefix(name, query) {
			return 1
		}
		return 2
	}

	sort.SliceStable(unique, func(i, j int) bool {
		ri, rj := rank(unique[i].Name), rank(unique[j].Name)
		if ri != rj {
			return ri < rj
		}
		return unique[i].Name < unique[j].Name
	})

	return unique
}
