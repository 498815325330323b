// Package toolshell is the outer tool-dispatch shell: it reads one JSON
// tool call per line from stdin, dispatches it to the operation named by
// its "op" field, and writes one JSON reply per line to stdout. It is the
// only place go.lsp.dev/protocol types are translated into the stable,
// agent-facing JSON shape the rest of mlsp's callers see.
package toolshell

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lspfacade/mlsp/internal/client"
	"github.com/lspfacade/mlsp/internal/connmanager"
	"github.com/lspfacade/mlsp/internal/diagnostics"
	"github.com/lspfacade/mlsp/internal/docmanager"
	"github.com/lspfacade/mlsp/internal/lsperrors"
	"github.com/lspfacade/mlsp/internal/rootresolver"
	"github.com/lspfacade/mlsp/internal/serverconfig"
	"github.com/lspfacade/mlsp/internal/uricodec"
)

// ToolContext bundles everything a tool handler needs. It is constructed
// once in main and passed explicitly into every handler call — never held
// as a package-level singleton.
type ToolContext struct {
	Conns   *connmanager.Manager
	Docs    *docmanager.Manager
	Servers []serverconfig.Config
	Log     *zap.Logger
}

// resolved bundles the client and uri a file-scoped operation needs, after
// server lookup, root resolution, connection start, and document open.
type resolved struct {
	client *client.Client
	uri    string
	text   string
}

// resolveFile maps an absolute file path to a running, initialized client
// with the file open: extension lookup, root resolution, pool Get
// (spawns/reuses the subprocess), then ensure-open.
func (tc *ToolContext) resolveFile(ctx context.Context, path string) (*resolved, error) {
	ext := filepath.Ext(path)
	cfg, ok := serverconfig.Find(tc.Servers, ext)
	if !ok {
		return nil, lsperrors.New(lsperrors.UnsupportedLanguage,
			fmt.Sprintf("no configured server handles extension %q", ext)).
			WithSuggestion("check the configured server table with 'mlsp status'")
	}

	norm, err := uricodec.NormalizePath(path)
	if err != nil {
		return nil, lsperrors.Wrap(lsperrors.FileNotFound, "cannot resolve path", err)
	}

	root := rootresolver.Resolve(norm, cfg.RootMarkers)
	c, err := tc.Conns.Get(ctx, cfg, root)
	if err != nil {
		return nil, err
	}

	uri := uricodec.ToURI(norm)
	langID := cfg.LanguageIDFor(ext)
	if err := tc.Docs.Open(ctx, uri, openerFor(c, langID)); err != nil {
		return nil, err
	}
	text, _ := tc.Docs.Text(uri)

	return &resolved{client: c, uri: uri, text: text}, nil
}

// openerFor adapts a *client.Client plus its fixed language id into the
// docmanager.Opener shape, since DidOpen needs a language id the manager
// itself does not track.
type boundOpener struct {
	*client.Client
	languageID string
}

func (b boundOpener) DidOpen(ctx context.Context, uri, _ string, version int, text string) error {
	return b.Client.DidOpen(ctx, uri, b.languageID, version, text)
}

func openerFor(c *client.Client, languageID string) docmanager.Opener {
	return boundOpener{Client: c, languageID: languageID}
}

// diagnosticsFor returns the diagnostics cache of the client currently
// handling uri's extension and root. It resolves the file the same way as
// every other file-scoped operation, so a file not yet open is opened
// (didOpen) as a side effect.
func (tc *ToolContext) diagnosticsFor(ctx context.Context, path string) (*diagnostics.Cache, string, error) {
	r, err := tc.resolveFile(ctx, path)
	if err != nil {
		return nil, "", err
	}
	return r.client.Diagnostics(), r.uri, nil
}
