package position

import "testing"

func TestToLSPBasicASCII(t *testing.T) {
	text := "package main\nfunc main() {}\n"
	got := ToLSP(text, Position{Line: 2, Column: 6})
	want := LSPPosition{Line: 1, Character: 5}
	if got != want {
		t.Errorf("ToLSP() = %+v, want %+v", got, want)
	}
}

func TestFromLSPBasicASCII(t *testing.T) {
	text := "package main\nfunc main() {}\n"
	got := FromLSP(text, LSPPosition{Line: 1, Character: 5})
	want := Position{Line: 2, Column: 6}
	if got != want {
		t.Errorf("FromLSP() = %+v, want %+v", got, want)
	}
}

func TestRoundTripAllLines(t *testing.T) {
	text := "one\ntwo three\nfour"
	for line := 1; line <= 3; line++ {
		for col := 1; col <= 6; col++ {
			p := Position{Line: line, Column: col}
			lsp := ToLSP(text, p)
			back := FromLSP(text, lsp)
			reLSP := ToLSP(text, back)
			if reLSP != lsp {
				t.Errorf("round trip unstable at %+v: first %+v, second %+v", p, lsp, reLSP)
			}
		}
	}
}

func TestToLSPSurrogatePair(t *testing.T) {
	// U+1F600 (grinning face) requires a UTF-16 surrogate pair (2 units).
	text := "x\U0001F600y"
	got := ToLSP(text, Position{Line: 1, Column: 3})
	want := LSPPosition{Line: 0, Character: 3} // 1 unit for 'x' + 2 units for the emoji
	if got != want {
		t.Errorf("ToLSP() = %+v, want %+v", got, want)
	}
}

func TestFromLSPSurrogatePair(t *testing.T) {
	text := "x\U0001F600y"
	got := FromLSP(text, LSPPosition{Line: 0, Character: 3})
	want := Position{Line: 1, Column: 3}
	if got != want {
		t.Errorf("FromLSP() = %+v, want %+v", got, want)
	}
}

func TestToLSPClampsOutOfRangeLine(t *testing.T) {
	text := "one\ntwo\n"
	got := ToLSP(text, Position{Line: 99, Column: 1})
	if got.Line != 2 {
		t.Errorf("expected clamp to last line (2), got line %d", got.Line)
	}
}

func TestToLSPClampsOutOfRangeColumn(t *testing.T) {
	text := "abc\n"
	got := ToLSP(text, Position{Line: 1, Column: 99})
	want := LSPPosition{Line: 0, Character: 3}
	if got != want {
		t.Errorf("ToLSP() = %+v, want %+v", got, want)
	}
}

func TestValidateAcceptsInRangePosition(t *testing.T) {
	text := "abc\ndef\n"
	if !Validate(text, Position{Line: 1, Column: 4}) {
		t.Error("expected end-of-line column to validate")
	}
	if !Validate(text, Position{Line: 2, Column: 1}) {
		t.Error("expected start-of-line column to validate")
	}
}

func TestValidateRejectsOutOfRangePosition(t *testing.T) {
	text := "abc\ndef\n"
	if Validate(text, Position{Line: 99, Column: 1}) {
		t.Error("expected out-of-range line to be rejected")
	}
	if Validate(text, Position{Line: 1, Column: 99}) {
		t.Error("expected out-of-range column to be rejected")
	}
	if Validate(text, Position{Line: 0, Column: 1}) {
		t.Error("expected line 0 (below 1-based minimum) to be rejected")
	}
}
