package toolshell

import (
	"context"
	"encoding/json"

	"github.com/lspfacade/mlsp/internal/client"
	"github.com/lspfacade/mlsp/internal/uricodec"
)

type hierarchyParams struct {
	Path      string       `json:"path"`
	Pos       wirePosition `json:"position"`
	Direction string       `json:"direction"` // "incoming" | "outgoing" | "both"
}

func wireCallItem(text string, item client.CallHierarchyItem) map[string]interface{} {
	return map[string]interface{}{
		"name":  item.Name,
		"kind":  item.Kind,
		"path":  uricodec.ToPath(item.URI),
		"range": fromLSPRange(text, item.Range),
	}
}

// handleCallHierarchy implements "call-hierarchy" (incoming/outgoing/both).
func (tc *ToolContext) handleCallHierarchy(ctx context.Context, raw rawParams) (interface{}, error) {
	var p hierarchyParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	line, char := lineChar(r.text, p.Pos)

	items, err := r.client.PrepareCallHierarchy(ctx, r.uri, line, char)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return map[string]interface{}{"incoming": []interface{}{}, "outgoing": []interface{}{}}, nil
	}
	root := items[0]

	result := map[string]interface{}{}
	if p.Direction == "incoming" || p.Direction == "both" || p.Direction == "" {
		calls, err := r.client.IncomingCalls(ctx, root)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]interface{}, 0, len(calls))
		for _, c := range calls {
			out = append(out, wireCallItem(r.text, c.Item))
		}
		result["incoming"] = out
	}
	if p.Direction == "outgoing" || p.Direction == "both" {
		calls, err := r.client.OutgoingCalls(ctx, root)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]interface{}, 0, len(calls))
		for _, c := range calls {
			out = append(out, wireCallItem(r.text, c.ItemOut))
		}
		result["outgoing"] = out
	}
	return result, nil
}

func wireTypeItem(text string, item client.TypeHierarchyItem) map[string]interface{} {
	return map[string]interface{}{
		"name":  item.Name,
		"kind":  item.Kind,
		"path":  uricodec.ToPath(item.URI),
		"range": fromLSPRange(text, item.Range),
	}
}

// handleTypeHierarchy implements "type-hierarchy" (super/sub/both).
func (tc *ToolContext) handleTypeHierarchy(ctx context.Context, raw rawParams) (interface{}, error) {
	var p hierarchyParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	line, char := lineChar(r.text, p.Pos)

	items, err := r.client.PrepareTypeHierarchy(ctx, r.uri, line, char)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return map[string]interface{}{"supertypes": []interface{}{}, "subtypes": []interface{}{}}, nil
	}
	root := items[0]

	result := map[string]interface{}{}
	if p.Direction == "super" || p.Direction == "both" || p.Direction == "" {
		supers, err := r.client.Supertypes(ctx, root)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]interface{}, 0, len(supers))
		for _, s := range supers {
			out = append(out, wireTypeItem(r.text, s))
		}
		result["supertypes"] = out
	}
	if p.Direction == "sub" || p.Direction == "both" {
		subs, err := r.client.Subtypes(ctx, root)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]interface{}, 0, len(subs))
		for _, s := range subs {
			out = append(out, wireTypeItem(r.text, s))
		}
		result["subtypes"] = out
	}
	return result, nil
}
