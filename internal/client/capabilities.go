package client

import "encoding/json"

// flexBool decodes either a bare JSON boolean or a JSON object (any LSP
// "boolean | FooOptions" union) into "present" — the object form always
// means the feature is supported with some set of options we don't need
// for the capability gate itself.
type flexBool struct {
	present bool
	raw     json.RawMessage
}

func (f *flexBool) UnmarshalJSON(data []byte) error {
	f.raw = append(json.RawMessage(nil), data...)
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		f.present = b
		return nil
	}
	// Anything that isn't `null` and isn't a bool is an options object,
	// which per LSP union semantics means the capability is supported.
	f.present = string(data) != "null"
	return nil
}

// renameCapability captures the rename|RenameOptions union, including the
// optional prepareProvider flag nested in the object form.
type renameCapability struct {
	flexBool
	PrepareProvider bool `json:"-"`
}

func (r *renameCapability) UnmarshalJSON(data []byte) error {
	if err := r.flexBool.UnmarshalJSON(data); err != nil {
		return err
	}
	var obj struct {
		PrepareProvider bool `json:"prepareProvider"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		r.PrepareProvider = obj.PrepareProvider
	}
	return nil
}

// capabilitySet is our own minimal, defensively-decoded view of the
// server's advertised capabilities, used only to gate requests before they
// are issued. It is decoded directly from the initialize reply's raw
// capabilities object rather than through protocol.ServerCapabilities's
// exact union-typed fields, which keeps the capability gate independent of
// the library's precise encoding of "bool | FooOptions" fields.
type capabilitySet struct {
	Hover                    flexBool         `json:"hoverProvider"`
	Definition               flexBool         `json:"definitionProvider"`
	TypeDefinition           flexBool         `json:"typeDefinitionProvider"`
	References               flexBool         `json:"referencesProvider"`
	Implementation           flexBool         `json:"implementationProvider"`
	DocumentSymbol           flexBool         `json:"documentSymbolProvider"`
	WorkspaceSymbol          flexBool         `json:"workspaceSymbolProvider"`
	Completion               flexBool         `json:"completionProvider"`
	SignatureHelp            flexBool         `json:"signatureHelpProvider"`
	Rename                   renameCapability `json:"renameProvider"`
	CodeAction               flexBool         `json:"codeActionProvider"`
	DocumentFormatting       flexBool         `json:"documentFormattingProvider"`
	DocumentRangeFormatting  flexBool         `json:"documentRangeFormattingProvider"`
	CallHierarchy            flexBool         `json:"callHierarchyProvider"`
	TypeHierarchy            flexBool         `json:"typeHierarchyProvider"`
}

// Feature names the capability gate for one client operation.
type Feature int

const (
	FeatureDefinition Feature = iota
	FeatureTypeDefinition
	FeatureReferences
	FeatureImplementation
	FeatureHover
	FeatureSignatureHelp
	FeatureDocumentSymbol
	FeatureWorkspaceSymbol
	FeatureCompletion
	FeatureRename
	FeaturePrepareRename
	FeatureCodeAction
	FeatureFormatting
	FeatureRangeFormatting
	FeatureCallHierarchy
	FeatureTypeHierarchy
)

func (s capabilitySet) supports(f Feature) bool {
	switch f {
	case FeatureDefinition:
		return s.Definition.present
	case FeatureTypeDefinition:
		return s.TypeDefinition.present
	case FeatureReferences:
		return s.References.present
	case FeatureImplementation:
		return s.Implementation.present
	case FeatureHover:
		return s.Hover.present
	case FeatureSignatureHelp:
		return s.SignatureHelp.present
	case FeatureDocumentSymbol:
		return s.DocumentSymbol.present
	case FeatureWorkspaceSymbol:
		return s.WorkspaceSymbol.present
	case FeatureCompletion:
		return s.Completion.present
	case FeatureRename:
		return s.Rename.present
	case FeaturePrepareRename:
		return s.Rename.present && s.Rename.PrepareProvider
	case FeatureCodeAction:
		return s.CodeAction.present
	case FeatureFormatting:
		return s.DocumentFormatting.present
	case FeatureRangeFormatting:
		return s.DocumentRangeFormatting.present
	case FeatureCallHierarchy:
		return s.CallHierarchy.present
	case FeatureTypeHierarchy:
		return s.TypeHierarchy.present
	default:
		return false
	}
}
