package serverconfig

import "testing"

func TestExtensionMatch(t *testing.T) {
	c := Config{Extensions: []string{".go"}}
	if !c.ExtensionMatch(".go") {
		t.Error("expected .go to match")
	}
	if c.ExtensionMatch(".py") {
		t.Error("expected .py not to match")
	}
}

func TestLanguageIDFor(t *testing.T) {
	c := Config{
		Extensions:  []string{".ts", ".tsx"},
		LanguageIDs: []string{"typescript", "typescriptreact"},
	}
	if got := c.LanguageIDFor(".tsx"); got != "typescriptreact" {
		t.Errorf("expected typescriptreact, got %s", got)
	}
	if got := c.LanguageIDFor(".unknown"); got != "typescript" {
		t.Errorf("expected fallback to first languageId, got %s", got)
	}

	empty := Config{}
	if got := empty.LanguageIDFor(".go"); got != "plaintext" {
		t.Errorf("expected plaintext fallback, got %s", got)
	}
}

func TestBuiltinsAllHaveIDsAndMarkers(t *testing.T) {
	for _, c := range Builtins() {
		if c.ID == "" {
			t.Error("builtin server missing ID")
		}
		if len(c.Extensions) == 0 {
			t.Errorf("builtin %s has no extensions", c.ID)
		}
		if c.Command == "" {
			t.Errorf("builtin %s has no command", c.ID)
		}
		if len(c.RootMarkers) == 0 {
			t.Errorf("builtin %s has no root markers", c.ID)
		}
	}
}

func TestMergeOverridesByID(t *testing.T) {
	builtins := []Config{
		{ID: "go", Command: "gopls", Extensions: []string{".go"}},
		{ID: "python", Command: "pyright-langserver", Extensions: []string{".py"}},
	}
	user := []Config{
		{ID: "go", Command: "my-custom-gopls", Extensions: []string{".go"}},
		{ID: "zig", Command: "zls", Extensions: []string{".zig"}},
	}

	merged := Merge(builtins, user)
	if len(merged) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(merged))
	}

	goCfg, ok := FindByID(merged, "go")
	if !ok || goCfg.Command != "my-custom-gopls" {
		t.Errorf("expected go override to win, got %+v", goCfg)
	}

	pyCfg, ok := FindByID(merged, "python")
	if !ok || pyCfg.Command != "pyright-langserver" {
		t.Errorf("expected python to survive unchanged, got %+v", pyCfg)
	}

	zigCfg, ok := FindByID(merged, "zig")
	if !ok || zigCfg.Command != "zls" {
		t.Errorf("expected zig to be appended, got %+v", zigCfg)
	}
}

func TestFind(t *testing.T) {
	configs := Builtins()
	c, ok := Find(configs, ".go")
	if !ok || c.ID != "go" {
		t.Errorf("expected to find go config, got %+v, ok=%v", c, ok)
	}
	_, ok = Find(configs, ".zig")
	if ok {
		t.Error("expected no match for .zig")
	}
}

func TestIDs(t *testing.T) {
	configs := []Config{{ID: "go"}, {ID: "python"}}
	ids := IDs(configs)
	if len(ids) != 2 || ids[0] != "go" || ids[1] != "python" {
		t.Errorf("unexpected ids: %v", ids)
	}
}
