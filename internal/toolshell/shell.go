package toolshell

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/lspfacade/mlsp/internal/lsperrors"
)

func unknownOpError(op string) error {
	return lsperrors.New(lsperrors.InvalidResponse, fmt.Sprintf("unknown operation %q", op))
}

type handlerFunc func(ctx context.Context, raw rawParams) (interface{}, error)

func (tc *ToolContext) dispatchTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		"definition":        tc.handleDefinition,
		"type-definition":   tc.handleTypeDefinition,
		"references":        tc.handleReferences,
		"implementations":   tc.handleImplementations,
		"hover":             tc.handleHover,
		"signature-help":    tc.handleSignatureHelp,
		"document-symbols":  tc.handleDocumentSymbol,
		"workspace-symbols": tc.handleWorkspaceSymbol,
		"diagnostics":       tc.handleDiagnostics,
		"completions":       tc.handleCompletion,
		"rename":            tc.handleRename,
		"code-actions":      tc.handleCodeAction,
		"formatting":        tc.handleFormatting,
		"call-hierarchy":    tc.handleCallHierarchy,
		"type-hierarchy":    tc.handleTypeHierarchy,
		"server-status":     tc.handleServerStatus,
		"server-start":      tc.handleServerStart,
		"server-stop":       tc.handleServerStop,
		"smart-search":      tc.handleSmartSearch,
	}
}

// Run drives the stdio tool shell: one newline-delimited JSON object read
// per line from r, one newline-delimited JSON reply written per line to w.
// It blocks until r is exhausted or ctx is cancelled. ctx is checked only
// after each line is read: a read blocked on r is not interrupted, so a
// cancellation takes effect when the next line arrives or r is closed.
func (tc *ToolContext) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	table := tc.dispatchTable()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var env envelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			_ = enc.Encode(reply{Error: &wireError{Code: "invalid-response", Message: "malformed request: " + err.Error()}})
			continue
		}

		handler, ok := table[env.Op]
		if !ok {
			_ = enc.Encode(errorReply(env.ID, unknownOpError(env.Op)))
			continue
		}

		result, err := handler(ctx, rawParams(line))
		if err != nil {
			tc.Log.Debug("tool call failed", zap.String("op", env.Op), zap.String("id", env.ID), zap.Error(err))
			_ = enc.Encode(errorReply(env.ID, err))
			continue
		}
		_ = enc.Encode(okReply(env.ID, result))
	}
	return scanner.Err()
}
