package rootresolver

import (
	"os"
	"path/filepath"
	"testing"
)

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveLanguageSpecificReturnsInnermost(t *testing.T) {
	root := t.TempDir()
	outer := filepath.Join(root, "monorepo")
	inner := filepath.Join(outer, "services", "api")
	mustMkdirAll(t, inner)
	touch(t, filepath.Join(outer, "go.mod"))
	touch(t, filepath.Join(inner, "go.mod"))

	file := filepath.Join(inner, "main.go")
	got := Resolve(file, []string{"go.mod"})
	if got != inner {
		t.Errorf("expected innermost root %s, got %s", inner, got)
	}
}

func TestResolveDefaultMarkersReturnsOutermost(t *testing.T) {
	root := t.TempDir()
	outer := filepath.Join(root, "monorepo")
	inner := filepath.Join(outer, "services", "api")
	mustMkdirAll(t, inner)
	mustMkdirAll(t, filepath.Join(outer, ".git"))
	mustMkdirAll(t, filepath.Join(inner, ".git"))

	file := filepath.Join(inner, "main.go")
	got := Resolve(file, nil)
	if got != outer {
		t.Errorf("expected outermost root %s, got %s", outer, got)
	}
}

func TestResolveFallsBackToFileDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "no-markers-here")
	mustMkdirAll(t, dir)

	file := filepath.Join(dir, "main.go")
	got := Resolve(file, []string{"go.mod"})
	if got != dir {
		t.Errorf("expected fallback to containing directory %s, got %s", dir, got)
	}
}

func TestResolveGlobMarker(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "setup.cfg"))

	file := filepath.Join(root, "pkg", "mod.py")
	mustMkdirAll(t, filepath.Join(root, "pkg"))
	got := Resolve(file, []string{"*.cfg"})
	if got != root {
		t.Errorf("expected glob marker match at %s, got %s", root, got)
	}
}

func TestResolveEnvOverride(t *testing.T) {
	override := t.TempDir()
	t.Setenv(EnvOverride, override)

	got := Resolve(filepath.Join(t.TempDir(), "x.go"), []string{"go.mod"})
	if got != override {
		t.Errorf("expected env override %s, got %s", override, got)
	}
}
