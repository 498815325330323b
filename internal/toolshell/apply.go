package toolshell

import (
	"os"
	"sort"
	"strings"

	"github.com/lspfacade/mlsp/internal/lsperrors"
)

// applyFileEdits writes every file's edits to disk. Within a file, edits
// are applied from the end of the document toward the start so earlier
// offsets are unaffected by edits made later in the same pass.
func applyFileEdits(files []wireFileEdit) error {
	for _, fe := range files {
		content, err := os.ReadFile(fe.Path)
		if err != nil {
			return lsperrors.Wrap(lsperrors.FileNotReadable, "cannot read "+fe.Path+" for edit", err)
		}

		edits := make([]wireTextEdit, len(fe.Edits))
		copy(edits, fe.Edits)
		sort.Slice(edits, func(i, j int) bool {
			if edits[i].Range.Start.Line != edits[j].Range.Start.Line {
				return edits[i].Range.Start.Line > edits[j].Range.Start.Line
			}
			return edits[i].Range.Start.Column > edits[j].Range.Start.Column
		})

		lines := strings.Split(string(content), "\n")
		for _, e := range edits {
			lines = applyOneEdit(lines, e)
		}

		out := strings.Join(lines, "\n")
		if err := os.WriteFile(fe.Path, []byte(out), 0644); err != nil {
			return lsperrors.Wrap(lsperrors.FileNotReadable, "cannot write "+fe.Path, err)
		}
	}
	return nil
}

// applyOneEdit rewrites the span [start, end) of a 1-based, code-point
// wireRange against lines (already split on "\n") with e.NewText.
func applyOneEdit(lines []string, e wireTextEdit) []string {
	startLine := e.Range.Start.Line - 1
	endLine := e.Range.End.Line - 1
	if startLine < 0 || startLine >= len(lines) || endLine < 0 || endLine >= len(lines) {
		return lines
	}

	startCol := e.Range.Start.Column - 1
	endCol := e.Range.End.Column - 1

	before := []rune(lines[startLine])
	after := []rune(lines[endLine])
	if startCol > len(before) {
		startCol = len(before)
	}
	if endCol > len(after) {
		endCol = len(after)
	}

	prefix := string(before[:startCol])
	suffix := string(after[endCol:])
	replaced := prefix + e.NewText + suffix

	newLines := strings.Split(replaced, "\n")
	out := make([]string, 0, len(lines)-(endLine-startLine)+len(newLines))
	out = append(out, lines[:startLine]...)
	out = append(out, newLines...)
	out = append(out, lines[endLine+1:]...)
	return out
}
