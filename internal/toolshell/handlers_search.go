package toolshell

import (
	"context"
	"encoding/json"
	"sync"
)

type searchParams struct {
	Path       string       `json:"path"`
	Pos        wirePosition `json:"position"`
	Include    []string     `json:"include"` // subset of "definition", "hover", "references"
}

// handleSmartSearch implements "smart-search": it fans out to definition,
// hover, and references concurrently for one (file, position) pair and
// merges the replies into a single object, grounded in the pack's pattern
// of multiplexing several language clients per query. Include restricts
// which of the three run; an empty Include runs all three.
func (tc *ToolContext) handleSmartSearch(ctx context.Context, raw rawParams) (interface{}, error) {
	var p searchParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	want := map[string]bool{"definition": true, "hover": true, "references": true}
	if len(p.Include) > 0 {
		want = make(map[string]bool, len(p.Include))
		for _, w := range p.Include {
			want[w] = true
		}
	}

	r, err := tc.resolveFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}
	line, char := lineChar(r.text, p.Pos)

	var wg sync.WaitGroup
	result := make(map[string]interface{})
	var mu sync.Mutex
	set := func(key string, val interface{}) {
		mu.Lock()
		result[key] = val
		mu.Unlock()
	}

	if want["definition"] {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locs, err := r.client.Definition(ctx, r.uri, line, char)
			if err != nil {
				set("definitionError", err.Error())
				return
			}
			set("definition", locationsToWire(r.text, locs))
		}()
	}
	if want["hover"] {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hover, err := r.client.Hover(ctx, r.uri, line, char)
			if err != nil {
				set("hoverError", err.Error())
				return
			}
			set("hover", hover.Contents.Value)
		}()
	}
	if want["references"] {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locs, err := r.client.References(ctx, r.uri, line, char, false)
			if err != nil {
				set("referencesError", err.Error())
				return
			}
			set("references", locationsToWire(r.text, locs))
		}()
	}
	wg.Wait()

	return result, nil
}
