package client

import (
	"context"
	"encoding/json"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"

	"github.com/lspfacade/mlsp/internal/diagnostics"
)

// handler returns the JSON-RPC handler for everything the server sends us
// unsolicited: publishDiagnostics updates the local mirror; every other
// notification is logged at debug and dropped; workspace/configuration and
// client/(un)registerCapability requests get a permissive empty reply so
// servers that require one don't stall; any other incoming request gets a
// method-not-found error reply.
func (c *Client) handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case "textDocument/publishDiagnostics":
			c.handlePublishDiagnostics(req.Params())
			return nil
		case "window/logMessage", "window/showMessage", "$/progress", "telemetry/event":
			c.log.Debug("notification", zap.String("method", req.Method()))
			return nil
		case "workspace/configuration":
			return reply(ctx, []any{}, nil)
		case "client/registerCapability", "client/unregisterCapability":
			return reply(ctx, nil, nil)
		default:
			c.log.Debug("unhandled message", zap.String("method", req.Method()))
			return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
		}
	}
}

type publishDiagnosticsParams struct {
	URI         string              `json:"uri"`
	Diagnostics []wireDiagnostic    `json:"diagnostics"`
}

type wireRange struct {
	Start struct {
		Line      int `json:"line"`
		Character int `json:"character"`
	} `json:"start"`
	End struct {
		Line      int `json:"line"`
		Character int `json:"character"`
	} `json:"end"`
}

type wireRelated struct {
	Location struct {
		URI   string    `json:"uri"`
		Range wireRange `json:"range"`
	} `json:"location"`
	Message string `json:"message"`
}

type wireDiagnostic struct {
	Range              wireRange     `json:"range"`
	Severity           int           `json:"severity"`
	Code               any           `json:"code"`
	Source             string        `json:"source"`
	Message            string        `json:"message"`
	RelatedInformation []wireRelated `json:"relatedInformation"`
}

func (c *Client) handlePublishDiagnostics(raw json.RawMessage) {
	var params publishDiagnosticsParams
	if err := json.Unmarshal(raw, &params); err != nil {
		c.log.Warn("malformed publishDiagnostics", zap.Error(err))
		return
	}

	converted := make([]diagnostics.Diagnostic, 0, len(params.Diagnostics))
	for _, d := range params.Diagnostics {
		related := make([]diagnostics.RelatedInfo, 0, len(d.RelatedInformation))
		for _, r := range d.RelatedInformation {
			related = append(related, diagnostics.RelatedInfo{
				URI: r.Location.URI,
				Range: diagnostics.Range{
					StartLine: r.Location.Range.Start.Line,
					StartChar: r.Location.Range.Start.Character,
					EndLine:   r.Location.Range.End.Line,
					EndChar:   r.Location.Range.End.Character,
				},
				Message: r.Message,
			})
		}

		code := ""
		if d.Code != nil {
			if b, err := json.Marshal(d.Code); err == nil {
				code = string(b)
			}
		}

		severity := diagnostics.Severity(d.Severity)
		if severity == 0 {
			severity = diagnostics.SeverityError
		}

		converted = append(converted, diagnostics.Diagnostic{
			Range: diagnostics.Range{
				StartLine: d.Range.Start.Line,
				StartChar: d.Range.Start.Character,
				EndLine:   d.Range.End.Line,
				EndChar:   d.Range.End.Character,
			},
			Severity: severity,
			Code:     code,
			Source:   d.Source,
			Message:  d.Message,
			Related:  related,
		})
	}

	c.diagnostics.Update(params.URI, converted)
}
