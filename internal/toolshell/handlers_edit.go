package toolshell

import (
	"context"
	"encoding/json"

	"go.lsp.dev/protocol"

	"github.com/lspfacade/mlsp/internal/lsperrors"
	"github.com/lspfacade/mlsp/internal/position"
	"github.com/lspfacade/mlsp/internal/uricodec"
)

type completionParams struct {
	Path  string       `json:"path"`
	Pos   wirePosition `json:"position"`
	Limit int          `json:"limit"`
}

// handleCompletion implements "completions".
func (tc *ToolContext) handleCompletion(ctx context.Context, raw rawParams) (interface{}, error) {
	var p completionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	line, char := lineChar(r.text, p.Pos)
	list, err := r.client.Completion(ctx, r.uri, line, char)
	if err != nil {
		return nil, err
	}
	items := list.Items
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]interface{}{
			"label":  it.Label,
			"kind":   int(it.Kind),
			"detail": it.Detail,
		})
	}
	return map[string]interface{}{"items": out, "isIncomplete": list.IsIncomplete}, nil
}

type renameParams struct {
	Path    string       `json:"path"`
	Pos     wirePosition `json:"position"`
	NewName string       `json:"newName"`
	Apply   bool         `json:"apply"`
	DryRun  bool         `json:"dryRun"`
}

type wireTextEdit struct {
	Range   wireRange `json:"range"`
	NewText string    `json:"newText"`
}

type wireFileEdit struct {
	Path  string         `json:"path"`
	Edits []wireTextEdit `json:"edits"`
}

// handleRename implements "rename": pre-checks the position with
// prepareRename (via client.PrepareRename, which covers servers that
// advertise rename but not prepare), then either returns the proposed
// edits (dry-run, the default) or applies them to disk when Apply is set.
func (tc *ToolContext) handleRename(ctx context.Context, raw rawParams) (interface{}, error) {
	var p renameParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	line, char := lineChar(r.text, p.Pos)

	if !position.Validate(r.text, position.Position{Line: p.Pos.Line, Column: p.Pos.Column}) {
		return nil, lsperrors.New(lsperrors.InvalidPosition, "position is outside the document")
	}

	prep, err := r.client.PrepareRename(ctx, r.uri, line, char)
	if err != nil {
		return nil, err
	}
	if !prep.Allowed {
		return nil, lsperrors.New(lsperrors.RenameNotAllowed, "prepareRename rejected this position")
	}

	edit, err := r.client.Rename(ctx, r.uri, line, char, p.NewName)
	if err != nil {
		return nil, err
	}

	fileEdits := workspaceEditToWire(r.text, edit)

	if p.Apply && !p.DryRun {
		root := r.client.WorkspaceRoot()
		for _, fe := range fileEdits {
			if !uricodec.WithinRoot(fe.Path, root) {
				return nil, lsperrors.New(lsperrors.InvalidResponse,
					"refusing to write outside the workspace root: "+fe.Path)
			}
		}
		if err := applyFileEdits(fileEdits); err != nil {
			return nil, err
		}
	}

	return map[string]interface{}{"edits": fileEdits, "applied": p.Apply && !p.DryRun}, nil
}

// workspaceEditToWire flattens a protocol.WorkspaceEdit's per-document
// changes into the agent-facing shape. Every document's positions are
// converted against its own on-disk content; primaryText is used only when
// that file cannot be read.
func workspaceEditToWire(primaryText string, edit *protocol.WorkspaceEdit) []wireFileEdit {
	if edit == nil {
		return nil
	}
	out := make([]wireFileEdit, 0, len(edit.Changes))
	for uri, edits := range edit.Changes {
		path := uricodec.ToPath(string(uri))
		text := primaryText
		if disk, err := uricodec.ReadForOpen(path); err == nil {
			text = disk
		}
		wireEdits := make([]wireTextEdit, 0, len(edits))
		for _, e := range edits {
			wireEdits = append(wireEdits, wireTextEdit{
				Range:   fromLSPRange(text, e.Range),
				NewText: e.NewText,
			})
		}
		out = append(out, wireFileEdit{Path: path, Edits: wireEdits})
	}
	return out
}

type codeActionParams struct {
	Path  string    `json:"path"`
	Range wireRange `json:"range"`
	Only  []string  `json:"only"`
}

// handleCodeAction implements "code-actions".
func (tc *ToolContext) handleCodeAction(ctx context.Context, raw rawParams) (interface{}, error) {
	var p codeActionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	rng := protocol.Range{
		Start: toLSPPosition(r.text, p.Range.Start),
		End:   toLSPPosition(r.text, p.Range.End),
	}
	actions, err := r.client.CodeAction(ctx, r.uri, rng, p.Only)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(actions))
	for _, a := range actions {
		out = append(out, map[string]interface{}{
			"title": a.Title,
			"kind":  string(a.Kind),
		})
	}
	return map[string]interface{}{"actions": out}, nil
}

type formattingParams struct {
	Path         string `json:"path"`
	TabSize      int    `json:"tabSize"`
	InsertSpaces bool   `json:"insertSpaces"`
	Apply        bool   `json:"apply"`
	Range        *wireRange `json:"range,omitempty"`
}

// handleFormatting implements "formatting", covering both whole-document
// and range formatting depending on whether Range is present.
func (tc *ToolContext) handleFormatting(ctx context.Context, raw rawParams) (interface{}, error) {
	var p formattingParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.TabSize <= 0 {
		p.TabSize = 4
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}

	var edits []protocol.TextEdit
	if p.Range != nil {
		rng := protocol.Range{
			Start: toLSPPosition(r.text, p.Range.Start),
			End:   toLSPPosition(r.text, p.Range.End),
		}
		edits, err = r.client.RangeFormatting(ctx, r.uri, rng, p.TabSize, p.InsertSpaces)
	} else {
		edits, err = r.client.Formatting(ctx, r.uri, p.TabSize, p.InsertSpaces)
	}
	if err != nil {
		return nil, err
	}

	wireEdits := make([]wireTextEdit, 0, len(edits))
	for _, e := range edits {
		wireEdits = append(wireEdits, wireTextEdit{Range: fromLSPRange(r.text, e.Range), NewText: e.NewText})
	}

	applied := false
	if p.Apply {
		fe := wireFileEdit{Path: p.Path, Edits: wireEdits}
		if err := applyFileEdits([]wireFileEdit{fe}); err != nil {
			return nil, err
		}
		applied = true
	}

	return map[string]interface{}{"edits": wireEdits, "applied": applied}, nil
}
