package toolshell

import (
	"context"
	"encoding/json"

	"github.com/lspfacade/mlsp/internal/diagnostics"
)

type diagnosticsParams struct {
	Path     string `json:"path"`
	Severity string `json:"severity"`
}

func parseSeverity(s string) diagnostics.Severity {
	switch s {
	case "error":
		return diagnostics.SeverityError
	case "warning":
		return diagnostics.SeverityWarning
	case "info":
		return diagnostics.SeverityInfo
	case "hint":
		return diagnostics.SeverityHint
	default:
		return 0 // all
	}
}

// handleDiagnostics implements "diagnostics": a read-only, passive query
// of the most recent publishDiagnostics for one uri. The cache may be
// stale between the last push and the next notification; the reply says
// so explicitly.
func (tc *ToolContext) handleDiagnostics(ctx context.Context, raw rawParams) (interface{}, error) {
	var p diagnosticsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	cache, uri, err := tc.diagnosticsFor(ctx, p.Path)
	if err != nil {
		return nil, err
	}

	diags := cache.Get(uri, parseSeverity(p.Severity))
	wire := make([]wireDiagnostic, 0, len(diags))
	for _, d := range diags {
		wire = append(wire, toWireDiagnostic(d))
	}
	return map[string]interface{}{
		"diagnostics": wire,
		"stale":       "reflects the last publishDiagnostics notification, which may predate this call",
	}, nil
}
