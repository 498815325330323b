package toolshell

import (
	"context"
	"encoding/json"

	"go.lsp.dev/protocol"

	"github.com/lspfacade/mlsp/internal/uricodec"
)

type filePositionParams struct {
	Path string       `json:"path"`
	Pos  wirePosition `json:"position"`
}

func locationsToWire(text string, locs []protocol.Location) []wireLocation {
	out := make([]wireLocation, 0, len(locs))
	for _, l := range locs {
		out = append(out, wireLocation{
			Path:  uricodec.ToPath(string(l.URI)),
			Range: fromLSPRange(text, l.Range),
		})
	}
	return out
}

func lineChar(text string, p wirePosition) (int, int) {
	lsp := toLSPPosition(text, p)
	return int(lsp.Line), int(lsp.Character)
}

// handleDefinition implements "definition": navigate to the symbol's
// declaration site.
func (tc *ToolContext) handleDefinition(ctx context.Context, raw rawParams) (interface{}, error) {
	var p filePositionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	line, char := lineChar(r.text, p.Pos)
	locs, err := r.client.Definition(ctx, r.uri, line, char)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"locations": locationsToWire(r.text, locs)}, nil
}

// handleTypeDefinition implements "type-definition".
func (tc *ToolContext) handleTypeDefinition(ctx context.Context, raw rawParams) (interface{}, error) {
	var p filePositionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	line, char := lineChar(r.text, p.Pos)
	locs, err := r.client.TypeDefinition(ctx, r.uri, line, char)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"locations": locationsToWire(r.text, locs)}, nil
}

type referencesParams struct {
	Path               string       `json:"path"`
	Pos                wirePosition `json:"position"`
	IncludeDeclaration bool         `json:"includeDeclaration"`
	Limit              int          `json:"limit"`
	Offset             int          `json:"offset"`
}

// handleReferences implements "references" with limit/offset paging over
// the server's reply, applied after translation (the wire contract does
// not promise the server itself supports paging).
func (tc *ToolContext) handleReferences(ctx context.Context, raw rawParams) (interface{}, error) {
	var p referencesParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	line, char := lineChar(r.text, p.Pos)
	locs, err := r.client.References(ctx, r.uri, line, char, p.IncludeDeclaration)
	if err != nil {
		return nil, err
	}
	wire := locationsToWire(r.text, locs)
	wire = page(wire, p.Offset, p.Limit)
	return map[string]interface{}{"locations": wire}, nil
}

func page(locs []wireLocation, offset, limit int) []wireLocation {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(locs) {
		return []wireLocation{}
	}
	locs = locs[offset:]
	if limit > 0 && limit < len(locs) {
		locs = locs[:limit]
	}
	return locs
}

type implementationsParams struct {
	Path  string       `json:"path"`
	Pos   wirePosition `json:"position"`
	Limit int          `json:"limit"`
}

// handleImplementations implements "implementations".
func (tc *ToolContext) handleImplementations(ctx context.Context, raw rawParams) (interface{}, error) {
	var p implementationsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	line, char := lineChar(r.text, p.Pos)
	locs, err := r.client.Implementation(ctx, r.uri, line, char)
	if err != nil {
		return nil, err
	}
	wire := locationsToWire(r.text, locs)
	if p.Limit > 0 && p.Limit < len(wire) {
		wire = wire[:p.Limit]
	}
	return map[string]interface{}{"locations": wire}, nil
}

// handleHover implements "hover".
func (tc *ToolContext) handleHover(ctx context.Context, raw rawParams) (interface{}, error) {
	var p filePositionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	line, char := lineChar(r.text, p.Pos)
	hover, err := r.client.Hover(ctx, r.uri, line, char)
	if err != nil {
		return nil, err
	}
	result := map[string]interface{}{"contents": hover.Contents.Value}
	if hover.Range != nil {
		result["range"] = fromLSPRange(r.text, *hover.Range)
	}
	return result, nil
}

// handleSignatureHelp implements "signature-help".
func (tc *ToolContext) handleSignatureHelp(ctx context.Context, raw rawParams) (interface{}, error) {
	var p filePositionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	line, char := lineChar(r.text, p.Pos)
	help, err := r.client.SignatureHelp(ctx, r.uri, line, char)
	if err != nil {
		return nil, err
	}
	sigs := make([]map[string]interface{}, 0, len(help.Signatures))
	for _, s := range help.Signatures {
		sigs = append(sigs, map[string]interface{}{
			"label":         s.Label,
			"documentation": s.Documentation,
		})
	}
	return map[string]interface{}{
		"signatures":      sigs,
		"activeSignature": help.ActiveSignature,
		"activeParameter": help.ActiveParameter,
	}, nil
}
