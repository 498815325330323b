package toolshell

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestDispatchTableHasEveryDocumentedOp(t *testing.T) {
	tc := &ToolContext{Log: zap.NewNop()}
	table := tc.dispatchTable()

	want := []string{
		"definition", "type-definition", "references", "implementations",
		"hover", "signature-help", "document-symbols", "workspace-symbols",
		"diagnostics", "completions", "rename", "code-actions", "formatting",
		"call-hierarchy", "type-hierarchy", "server-status", "server-start",
		"server-stop", "smart-search",
	}
	if len(table) != len(want) {
		t.Errorf("expected %d ops, got %d", len(want), len(table))
	}
	for _, op := range want {
		if table[op] == nil {
			t.Errorf("missing handler for op %q", op)
		}
	}
}

func TestRunMalformedJSONLineRepliesInvalidResponse(t *testing.T) {
	tc := &ToolContext{Log: zap.NewNop()}
	in := strings.NewReader("not json\n")
	var out bytes.Buffer

	if err := tc.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var r reply
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &r); err != nil {
		t.Fatalf("reply was not valid JSON: %v", err)
	}
	if r.Error == nil || r.Error.Code != "invalid-response" {
		t.Errorf("expected invalid-response error, got %+v", r.Error)
	}
}

func TestRunUnknownOpRepliesWithError(t *testing.T) {
	tc := &ToolContext{Log: zap.NewNop()}
	in := strings.NewReader(`{"id":"1","op":"nonexistent"}` + "\n")
	var out bytes.Buffer

	if err := tc.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var r reply
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &r); err != nil {
		t.Fatalf("reply was not valid JSON: %v", err)
	}
	if r.ID != "1" {
		t.Errorf("expected id to round-trip, got %q", r.ID)
	}
	if r.Error == nil {
		t.Fatal("expected an error for an unknown op")
	}
}

func TestRunSkipsBlankLines(t *testing.T) {
	tc := &ToolContext{Log: zap.NewNop()}
	in := strings.NewReader("\n   \n")
	var out bytes.Buffer

	if err := tc.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no replies for blank input, got %q", out.String())
	}
}
