// Package position converts between the agent-facing position
// representation (1-based line and column, counted in Unicode code points)
// and the LSP wire representation (0-based line and character, counted in
// UTF-16 code units).
package position

import (
	"unicode/utf16"
)

// Position is the agent-facing, 1-based, code-point position.
type Position struct {
	Line   int // 1-based
	Column int // 1-based, code points
}

// LSPPosition is the 0-based, UTF-16 position LSP servers expect.
type LSPPosition struct {
	Line      int // 0-based
	Character int // 0-based, UTF-16 code units
}

// lineOffsets returns the byte offset of the start of each line in text.
func lineOffsets(text string) []int {
	offsets := []int{0}
	for i, r := range text {
		if r == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func lineText(text string, offsets []int, lineIdx int) string {
	start := offsets[lineIdx]
	var end int
	if lineIdx+1 < len(offsets) {
		end = offsets[lineIdx+1]
		// strip the trailing newline (and a preceding \r, for CRLF content)
		if end > start && text[end-1] == '\n' {
			end--
		}
		if end > start && text[end-1] == '\r' {
			end--
		}
	} else {
		end = len(text)
	}
	return text[start:end]
}

// ToLSP converts a 1-based code-point position into a 0-based UTF-16
// position against the given document text. Out-of-bounds line/column
// values are clamped to the nearest valid position, since read-only
// navigation queries should degrade gracefully rather than fail outright.
func ToLSP(text string, pos Position) LSPPosition {
	offsets := lineOffsets(text)
	lineIdx := pos.Line - 1
	if lineIdx < 0 {
		lineIdx = 0
	}
	if lineIdx >= len(offsets) {
		lineIdx = len(offsets) - 1
	}
	line := lineText(text, offsets, lineIdx)

	codePoints := []rune(line)
	colIdx := pos.Column - 1
	if colIdx < 0 {
		colIdx = 0
	}
	if colIdx > len(codePoints) {
		colIdx = len(codePoints)
	}

	units := 0
	for _, r := range codePoints[:colIdx] {
		units += utf16Width(r)
	}

	return LSPPosition{Line: lineIdx, Character: units}
}

// FromLSP converts a 0-based UTF-16 position back into a 1-based code-point
// position against the given document text. Out-of-bounds values are
// clamped the same way ToLSP clamps them.
func FromLSP(text string, pos LSPPosition) Position {
	offsets := lineOffsets(text)
	lineIdx := pos.Line
	if lineIdx < 0 {
		lineIdx = 0
	}
	if lineIdx >= len(offsets) {
		lineIdx = len(offsets) - 1
	}
	line := lineText(text, offsets, lineIdx)

	codePoints := []rune(line)
	units := pos.Character
	if units < 0 {
		units = 0
	}

	col := 0
	consumedUnits := 0
	for _, r := range codePoints {
		if consumedUnits >= units {
			break
		}
		consumedUnits += utf16Width(r)
		col++
	}

	return Position{Line: lineIdx + 1, Column: col + 1}
}

// Validate rejects a position that falls outside the document, for use by
// mutating operations (rename, formatting) that must not silently clamp an
// out-of-range position to something else.
func Validate(text string, pos Position) bool {
	offsets := lineOffsets(text)
	lineIdx := pos.Line - 1
	if lineIdx < 0 || lineIdx >= len(offsets) {
		return false
	}
	line := lineText(text, offsets, lineIdx)
	codePoints := []rune(line)
	colIdx := pos.Column - 1
	return colIdx >= 0 && colIdx <= len(codePoints)
}

// utf16Width returns how many UTF-16 code units r occupies: 2 for
// characters outside the basic multilingual plane (encoded as a surrogate
// pair), 1 otherwise.
func utf16Width(r rune) int {
	if utf16.IsSurrogate(r) {
		return 1
	}
	if r > 0xFFFF {
		return 2
	}
	return 1
}
