package client

import (
	"context"

	"go.lsp.dev/protocol"

	"github.com/lspfacade/mlsp/internal/lsperrors"
)

func capabilityError(feature string) error {
	return lsperrors.New(lsperrors.CapabilityNotSupported, feature+" is not supported by this server")
}

func (c *Client) gate(f Feature, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return lsperrors.New(lsperrors.ServerNotReady, "client is not initialized")
	}
	if !c.caps.supports(f) {
		return capabilityError(name)
	}
	return nil
}

// DidOpen sends textDocument/didOpen. Called only by the document manager,
// which owns version sequencing.
func (c *Client) DidOpen(ctx context.Context, uri, languageID string, version int, text string) error {
	params := &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(uri),
			LanguageID: protocol.LanguageIdentifier(languageID),
			Version:    int32(version),
			Text:       text,
		},
	}
	return c.notify(ctx, protocol.MethodTextDocumentDidOpen, params)
}

// DidChange sends textDocument/didChange with a single full-text content
// change; incremental sync is not implemented.
func (c *Client) DidChange(ctx context.Context, uri string, version int, text string) error {
	params := &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Version:                int32(version),
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{
			{Text: text},
		},
	}
	return c.notify(ctx, protocol.MethodTextDocumentDidChange, params)
}

// DidClose sends textDocument/didClose.
func (c *Client) DidClose(ctx context.Context, uri string) error {
	params := &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	}
	return c.notify(ctx, protocol.MethodTextDocumentDidClose, params)
}

func toProtocolPosition(line, character int) protocol.Position {
	return protocol.Position{Line: uint32(line), Character: uint32(character)}
}

// Definition issues textDocument/definition.
func (c *Client) Definition(ctx context.Context, uri string, line, character int) ([]protocol.Location, error) {
	if err := c.gate(FeatureDefinition, "definition"); err != nil {
		return nil, err
	}
	params := &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Position:     toProtocolPosition(line, character),
		},
	}
	var locs []protocol.Location
	if err := c.request(ctx, protocol.MethodTextDocumentDefinition, params, &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// TypeDefinition issues textDocument/typeDefinition.
func (c *Client) TypeDefinition(ctx context.Context, uri string, line, character int) ([]protocol.Location, error) {
	if err := c.gate(FeatureTypeDefinition, "type definition"); err != nil {
		return nil, err
	}
	params := map[string]any{
		"textDocument": map[string]string{"uri": uri},
		"position":     toProtocolPosition(line, character),
	}
	var locs []protocol.Location
	if err := c.request(ctx, "textDocument/typeDefinition", params, &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// References issues textDocument/references.
func (c *Client) References(ctx context.Context, uri string, line, character int, includeDeclaration bool) ([]protocol.Location, error) {
	if err := c.gate(FeatureReferences, "references"); err != nil {
		return nil, err
	}
	params := &protocol.ReferenceParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Position:     toProtocolPosition(line, character),
		},
		Context: protocol.ReferenceContext{IncludeDeclaration: includeDeclaration},
	}
	var locs []protocol.Location
	if err := c.request(ctx, protocol.MethodTextDocumentReferences, params, &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// Implementation issues textDocument/implementation.
func (c *Client) Implementation(ctx context.Context, uri string, line, character int) ([]protocol.Location, error) {
	if err := c.gate(FeatureImplementation, "implementation"); err != nil {
		return nil, err
	}
	params := map[string]any{
		"textDocument": map[string]string{"uri": uri},
		"position":     toProtocolPosition(line, character),
	}
	var locs []protocol.Location
	if err := c.request(ctx, "textDocument/implementation", params, &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// Hover issues textDocument/hover.
func (c *Client) Hover(ctx context.Context, uri string, line, character int) (*protocol.Hover, error) {
	if err := c.gate(FeatureHover, "hover"); err != nil {
		return nil, err
	}
	params := &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Position:     toProtocolPosition(line, character),
		},
	}
	var hover protocol.Hover
	if err := c.request(ctx, protocol.MethodTextDocumentHover, params, &hover); err != nil {
		return nil, err
	}
	return &hover, nil
}

// SignatureHelp issues textDocument/signatureHelp.
func (c *Client) SignatureHelp(ctx context.Context, uri string, line, character int) (*protocol.SignatureHelp, error) {
	if err := c.gate(FeatureSignatureHelp, "signature help"); err != nil {
		return nil, err
	}
	params := map[string]any{
		"textDocument": map[string]string{"uri": uri},
		"position":     toProtocolPosition(line, character),
	}
	var help protocol.SignatureHelp
	if err := c.request(ctx, "textDocument/signatureHelp", params, &help); err != nil {
		return nil, err
	}
	return &help, nil
}

// DocumentSymbol issues textDocument/documentSymbol.
func (c *Client) DocumentSymbol(ctx context.Context, uri string) ([]protocol.DocumentSymbol, error) {
	if err := c.gate(FeatureDocumentSymbol, "document symbols"); err != nil {
		return nil, err
	}
	params := &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	}
	var syms []protocol.DocumentSymbol
	if err := c.request(ctx, protocol.MethodTextDocumentDocumentSymbol, params, &syms); err != nil {
		return nil, err
	}
	return syms, nil
}

// WorkspaceSymbol issues workspace/symbol.
func (c *Client) WorkspaceSymbol(ctx context.Context, query string) ([]protocol.SymbolInformation, error) {
	if err := c.gate(FeatureWorkspaceSymbol, "workspace symbols"); err != nil {
		return nil, err
	}
	params := &protocol.WorkspaceSymbolParams{Query: query}
	var syms []protocol.SymbolInformation
	if err := c.request(ctx, protocol.MethodWorkspaceSymbol, params, &syms); err != nil {
		return nil, err
	}
	return syms, nil
}

// Completion issues textDocument/completion.
func (c *Client) Completion(ctx context.Context, uri string, line, character int) (*protocol.CompletionList, error) {
	if err := c.gate(FeatureCompletion, "completion"); err != nil {
		return nil, err
	}
	params := &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Position:     toProtocolPosition(line, character),
		},
	}
	var list protocol.CompletionList
	if err := c.request(ctx, protocol.MethodTextDocumentCompletion, params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// PrepareRenameResult reports whether the position supports rename, and the
// range to highlight when it does.
type PrepareRenameResult struct {
	Allowed bool
	Range   *protocol.Range
}

// PrepareRename issues textDocument/prepareRename. When the server
// advertises rename but not prepare, this returns an "always allowed, no
// range" result instead of a capability error, so the caller can proceed
// directly to Rename.
func (c *Client) PrepareRename(ctx context.Context, uri string, line, character int) (*PrepareRenameResult, error) {
	if err := c.gate(FeatureRename, "rename"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	hasPrepare := c.caps.Rename.PrepareProvider
	c.mu.Unlock()
	if !hasPrepare {
		return &PrepareRenameResult{Allowed: true}, nil
	}

	params := map[string]any{
		"textDocument": map[string]string{"uri": uri},
		"position":     toProtocolPosition(line, character),
	}
	var rng *protocol.Range
	if err := c.request(ctx, "textDocument/prepareRename", params, &rng); err != nil {
		return nil, err
	}
	if rng == nil {
		return &PrepareRenameResult{Allowed: false}, nil
	}
	return &PrepareRenameResult{Allowed: true, Range: rng}, nil
}

// Rename issues textDocument/rename.
func (c *Client) Rename(ctx context.Context, uri string, line, character int, newName string) (*protocol.WorkspaceEdit, error) {
	if err := c.gate(FeatureRename, "rename"); err != nil {
		return nil, err
	}
	params := &protocol.RenameParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Position:     toProtocolPosition(line, character),
		},
		NewName: newName,
	}
	var edit protocol.WorkspaceEdit
	if err := c.request(ctx, protocol.MethodTextDocumentRename, params, &edit); err != nil {
		return nil, err
	}
	return &edit, nil
}

// CodeAction issues textDocument/codeAction.
func (c *Client) CodeAction(ctx context.Context, uri string, rng protocol.Range, only []string) ([]protocol.CodeAction, error) {
	if err := c.gate(FeatureCodeAction, "code actions"); err != nil {
		return nil, err
	}
	params := &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Range:        rng,
		Context:      protocol.CodeActionContext{Only: only},
	}
	var actions []protocol.CodeAction
	if err := c.request(ctx, protocol.MethodTextDocumentCodeAction, params, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

// Formatting issues textDocument/formatting.
func (c *Client) Formatting(ctx context.Context, uri string, tabSize int, insertSpaces bool) ([]protocol.TextEdit, error) {
	if err := c.gate(FeatureFormatting, "formatting"); err != nil {
		return nil, err
	}
	params := &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Options: protocol.FormattingOptions{
			TabSize:      float64(tabSize),
			InsertSpaces: insertSpaces,
		},
	}
	var edits []protocol.TextEdit
	if err := c.request(ctx, protocol.MethodTextDocumentFormatting, params, &edits); err != nil {
		return nil, err
	}
	return edits, nil
}

// RangeFormatting issues textDocument/rangeFormatting.
func (c *Client) RangeFormatting(ctx context.Context, uri string, rng protocol.Range, tabSize int, insertSpaces bool) ([]protocol.TextEdit, error) {
	if err := c.gate(FeatureRangeFormatting, "range formatting"); err != nil {
		return nil, err
	}
	params := &protocol.DocumentRangeFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Range:        rng,
		Options: protocol.FormattingOptions{
			TabSize:      float64(tabSize),
			InsertSpaces: insertSpaces,
		},
	}
	var edits []protocol.TextEdit
	if err := c.request(ctx, protocol.MethodTextDocumentRangeFormatting, params, &edits); err != nil {
		return nil, err
	}
	return edits, nil
}

// CallHierarchyItem mirrors the minimal shape of the LSP 3.16 call
// hierarchy item; go.lsp.dev/protocol v0.12.0 predates this method, so its
// wire shape is modeled locally rather than through the library's types.
type CallHierarchyItem struct {
	Name           string          `json:"name"`
	Kind           int             `json:"kind"`
	URI            string          `json:"uri"`
	Range          protocol.Range  `json:"range"`
	SelectionRange protocol.Range  `json:"selectionRange"`
}

// CallHierarchyCall pairs a call hierarchy item with the ranges of the
// calls connecting it to the item PrepareCallHierarchy was issued for.
type CallHierarchyCall struct {
	Item      CallHierarchyItem `json:"from,omitempty"`
	ItemOut   CallHierarchyItem `json:"to,omitempty"`
	FromRange []protocol.Range  `json:"fromRanges"`
}

// PrepareCallHierarchy issues textDocument/prepareCallHierarchy.
func (c *Client) PrepareCallHierarchy(ctx context.Context, uri string, line, character int) ([]CallHierarchyItem, error) {
	if err := c.gate(FeatureCallHierarchy, "call hierarchy"); err != nil {
		return nil, err
	}
	params := map[string]any{
		"textDocument": map[string]string{"uri": uri},
		"position":     toProtocolPosition(line, character),
	}
	var items []CallHierarchyItem
	if err := c.request(ctx, "textDocument/prepareCallHierarchy", params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// IncomingCalls issues callHierarchy/incomingCalls.
func (c *Client) IncomingCalls(ctx context.Context, item CallHierarchyItem) ([]CallHierarchyCall, error) {
	if err := c.gate(FeatureCallHierarchy, "call hierarchy"); err != nil {
		return nil, err
	}
	params := map[string]any{"item": item}
	var calls []CallHierarchyCall
	if err := c.request(ctx, "callHierarchy/incomingCalls", params, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

// OutgoingCalls issues callHierarchy/outgoingCalls.
func (c *Client) OutgoingCalls(ctx context.Context, item CallHierarchyItem) ([]CallHierarchyCall, error) {
	if err := c.gate(FeatureCallHierarchy, "call hierarchy"); err != nil {
		return nil, err
	}
	params := map[string]any{"item": item}
	var calls []CallHierarchyCall
	if err := c.request(ctx, "callHierarchy/outgoingCalls", params, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

// TypeHierarchyItem mirrors the LSP 3.17 type hierarchy item; modeled
// locally for the same reason as CallHierarchyItem.
type TypeHierarchyItem struct {
	Name           string         `json:"name"`
	Kind           int            `json:"kind"`
	URI            string         `json:"uri"`
	Range          protocol.Range `json:"range"`
	SelectionRange protocol.Range `json:"selectionRange"`
}

// PrepareTypeHierarchy issues textDocument/prepareTypeHierarchy.
func (c *Client) PrepareTypeHierarchy(ctx context.Context, uri string, line, character int) ([]TypeHierarchyItem, error) {
	if err := c.gate(FeatureTypeHierarchy, "type hierarchy"); err != nil {
		return nil, err
	}
	params := map[string]any{
		"textDocument": map[string]string{"uri": uri},
		"position":     toProtocolPosition(line, character),
	}
	var items []TypeHierarchyItem
	if err := c.request(ctx, "textDocument/prepareTypeHierarchy", params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Supertypes issues typeHierarchy/supertypes.
func (c *Client) Supertypes(ctx context.Context, item TypeHierarchyItem) ([]TypeHierarchyItem, error) {
	if err := c.gate(FeatureTypeHierarchy, "type hierarchy"); err != nil {
		return nil, err
	}
	params := map[string]any{"item": item}
	var items []TypeHierarchyItem
	if err := c.request(ctx, "typeHierarchy/supertypes", params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Subtypes issues typeHierarchy/subtypes.
func (c *Client) Subtypes(ctx context.Context, item TypeHierarchyItem) ([]TypeHierarchyItem, error) {
	if err := c.gate(FeatureTypeHierarchy, "type hierarchy"); err != nil {
		return nil, err
	}
	params := map[string]any{"item": item}
	var items []TypeHierarchyItem
	if err := c.request(ctx, "typeHierarchy/subtypes", params, &items); err != nil {
		return nil, err
	}
	return items, nil
}
