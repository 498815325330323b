package toolshell

import (
	"encoding/json"

	"go.lsp.dev/protocol"

	"github.com/lspfacade/mlsp/internal/diagnostics"
	"github.com/lspfacade/mlsp/internal/lsperrors"
	"github.com/lspfacade/mlsp/internal/position"
)

// envelope is decoded once per line to read the dispatch key before the
// operation-specific struct is decoded from the same bytes.
type envelope struct {
	ID string `json:"id"`
	Op string `json:"op"`
}

// reply is the stable shape written back for every operation: exactly one
// of Result or Error is set.
type reply struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *wireError  `json:"error,omitempty"`
}

type wireError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

func errorReply(id string, err error) reply {
	if lerr, ok := err.(*lsperrors.Error); ok {
		return reply{ID: id, Error: &wireError{
			Code:       string(lerr.Code),
			Message:    lerr.Message,
			Suggestion: lerr.Suggestion,
		}}
	}
	return reply{ID: id, Error: &wireError{Code: string(lsperrors.InvalidResponse), Message: err.Error()}}
}

func okReply(id string, result interface{}) reply {
	return reply{ID: id, Result: result}
}

// wirePosition is the agent-facing 1-based, code-point position.
type wirePosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// wireRange is the agent-facing 1-based range.
type wireRange struct {
	Start wirePosition `json:"start"`
	End   wirePosition `json:"end"`
}

func fromLSPRange(text string, r protocol.Range) wireRange {
	start := position.FromLSP(text, position.LSPPosition{Line: int(r.Start.Line), Character: int(r.Start.Character)})
	end := position.FromLSP(text, position.LSPPosition{Line: int(r.End.Line), Character: int(r.End.Character)})
	return wireRange{
		Start: wirePosition{Line: start.Line, Column: start.Column},
		End:   wirePosition{Line: end.Line, Column: end.Column},
	}
}

func toLSPPosition(text string, p wirePosition) protocol.Position {
	lsp := position.ToLSP(text, position.Position{Line: p.Line, Column: p.Column})
	return protocol.Position{Line: uint32(lsp.Line), Character: uint32(lsp.Character)}
}

// wireLocation is the agent-facing shape for a protocol.Location, with its
// uri resolved back to a plain filesystem path.
type wireLocation struct {
	Path  string   `json:"path"`
	Range wireRange `json:"range"`
}

// wireDiagnostic mirrors diagnostics.Diagnostic with a lowercase severity
// string instead of the internal int enum.
type wireDiagnostic struct {
	Range    wireRange `json:"range"`
	Severity string    `json:"severity"`
	Code     string    `json:"code,omitempty"`
	Source   string    `json:"source,omitempty"`
	Message  string    `json:"message"`
}

// toWireDiagnostic shifts the cached 0-based range to 1-based. Columns are
// the server's UTF-16 offsets plus one; they are not converted to code
// points, so on lines with characters outside the BMP they differ from the
// code-point columns other operations report.
func toWireDiagnostic(d diagnostics.Diagnostic) wireDiagnostic {
	return wireDiagnostic{
		Range: wireRange{
			Start: wirePosition{Line: d.Range.StartLine + 1, Column: d.Range.StartChar + 1},
			End:   wirePosition{Line: d.Range.EndLine + 1, Column: d.Range.EndChar + 1},
		},
		Severity: d.Severity.String(),
		Code:     d.Code,
		Source:   d.Source,
		Message:  d.Message,
	}
}

// rawParams lets a handler defer decoding its operation-specific fields
// until after the envelope's op has selected which struct to decode into.
type rawParams = json.RawMessage
