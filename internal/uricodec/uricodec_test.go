package uricodec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lspfacade/mlsp/internal/lsperrors"
)

func TestToURIAndBack(t *testing.T) {
	path := "/tmp/example/main.go"
	uri := ToURI(path)
	if !strings.HasPrefix(uri, "file://") {
		t.Errorf("expected file:// prefix, got %s", uri)
	}
	if got := ToPath(uri); got != path {
		t.Errorf("round trip mismatch: got %s, want %s", got, path)
	}
}

func TestIsBinaryExtension(t *testing.T) {
	if !IsBinaryExtension(".png") {
		t.Error("expected .png to be binary")
	}
	if !IsBinaryExtension(".PNG") {
		t.Error("expected extension match to be case-insensitive")
	}
	if IsBinaryExtension(".go") {
		t.Error("expected .go not to be binary")
	}
}

func TestReadForOpenSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	if err := os.WriteFile(path, []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}

	content, err := ReadForOpen(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "package main\n" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestReadForOpenMissingFile(t *testing.T) {
	_, err := ReadForOpen(filepath.Join(t.TempDir(), "missing.go"))
	if !lsperrors.Is(err, lsperrors.FileNotFound) {
		t.Errorf("expected file-not-found, got %v", err)
	}
}

func TestReadForOpenDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadForOpen(dir)
	if !lsperrors.Is(err, lsperrors.FileNotFound) {
		t.Errorf("expected file-not-found for a directory, got %v", err)
	}
}

func TestReadForOpenBinaryExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.png")
	if err := os.WriteFile(path, []byte("not really a png"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadForOpen(path)
	if !lsperrors.Is(err, lsperrors.FileNotReadable) {
		t.Errorf("expected file-not-readable, got %v", err)
	}
}

func TestReadForOpenNullByteSniff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weird.txt")
	if err := os.WriteFile(path, []byte("hello\x00world"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadForOpen(path)
	if !lsperrors.Is(err, lsperrors.FileNotReadable) {
		t.Errorf("expected file-not-readable for null byte content, got %v", err)
	}
}

func TestReadForOpenExceedsSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huge.txt")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(MaxFileSize + 1); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = ReadForOpen(path)
	if !lsperrors.Is(err, lsperrors.FileNotReadable) {
		t.Errorf("expected file-not-readable for oversized file, got %v", err)
	}
}

func TestWithinRoot(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "pkg", "main.go")
	if err := os.MkdirAll(filepath.Dir(inside), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(inside, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	if !WithinRoot(inside, root) {
		t.Error("expected inside path to be within root")
	}

	outside := filepath.Join(t.TempDir(), "other.go")
	if WithinRoot(outside, root) {
		t.Error("expected outside path not to be within root")
	}
}

func TestWithinRootAcceptsRootItself(t *testing.T) {
	root := t.TempDir()
	if !WithinRoot(root, root) {
		t.Error("expected root to be within itself (rel == \".\")")
	}
}
