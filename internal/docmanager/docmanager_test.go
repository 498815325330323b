package docmanager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type fakeOpener struct {
	id string

	mu      sync.Mutex
	opens   []string
	changes []string
	closes  []string
}

func (f *fakeOpener) ClientID() string { return f.id }

func (f *fakeOpener) DidOpen(ctx context.Context, uri, languageID string, version int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens = append(f.opens, uri)
	return nil
}

func (f *fakeOpener) DidChange(ctx context.Context, uri string, version int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, uri)
	return nil
}

func (f *fakeOpener) DidClose(ctx context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes = append(f.closes, uri)
	return nil
}

func (f *fakeOpener) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opens)
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return "file://" + path
}

func TestOpenSendsDidOpenOnce(t *testing.T) {
	uri := writeTempFile(t, "package main\n")
	m := New(nil)
	c := &fakeOpener{id: "client-1"}

	if err := m.Open(context.Background(), uri, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.IsOpen(uri, c) {
		t.Error("expected uri to be open")
	}
	if c.openCount() != 1 {
		t.Errorf("expected exactly 1 didOpen, got %d", c.openCount())
	}

	// Opening again with the same client must not send a second didOpen.
	if err := m.Open(context.Background(), uri, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.openCount() != 1 {
		t.Errorf("expected still 1 didOpen after repeat Open, got %d", c.openCount())
	}
}

func TestOpenConcurrentCallersCoalesce(t *testing.T) {
	uri := writeTempFile(t, "package main\n")
	m := New(nil)
	c := &fakeOpener{id: "client-1"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Open(context.Background(), uri, c); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if c.openCount() != 1 {
		t.Errorf("expected exactly 1 didOpen across concurrent opens, got %d", c.openCount())
	}
}

func TestOpenTwoClientsShareVersionCounter(t *testing.T) {
	uri := writeTempFile(t, "package main\n")
	m := New(nil)
	a := &fakeOpener{id: "a"}
	b := &fakeOpener{id: "b"}

	if err := m.Open(context.Background(), uri, a); err != nil {
		t.Fatal(err)
	}
	if err := m.Open(context.Background(), uri, b); err != nil {
		t.Fatal(err)
	}

	if !m.IsOpen(uri, a) || !m.IsOpen(uri, b) {
		t.Error("expected uri open for both clients")
	}
	if v := m.Version(uri); v != 2 {
		t.Errorf("expected shared version 2 after two opens, got %d", v)
	}
}

func TestUpdateOpensIfNeededThenBumpsVersion(t *testing.T) {
	uri := writeTempFile(t, "package main\n")
	m := New(nil)
	c := &fakeOpener{id: "client-1"}

	v0 := m.Version(uri)
	if err := m.Update(context.Background(), uri, "package main\n\nfunc f() {}\n", c); err != nil {
		t.Fatal(err)
	}
	if m.Version(uri) <= v0 {
		t.Errorf("expected version to advance past %d, got %d", v0, m.Version(uri))
	}
	text, ok := m.Text(uri)
	if !ok || text != "package main\n\nfunc f() {}\n" {
		t.Errorf("unexpected stored text: %q, ok=%v", text, ok)
	}
	if c.openCount() != 1 {
		t.Errorf("expected Update to have opened first, got %d opens", c.openCount())
	}
}

func TestCloseLastHolderSendsDidClose(t *testing.T) {
	uri := writeTempFile(t, "package main\n")
	m := New(nil)
	c := &fakeOpener{id: "client-1"}

	if err := m.Open(context.Background(), uri, c); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(context.Background(), uri, c); err != nil {
		t.Fatal(err)
	}

	c.mu.Lock()
	closes := len(c.closes)
	c.mu.Unlock()
	if closes != 1 {
		t.Errorf("expected 1 didClose, got %d", closes)
	}
	if m.IsOpen(uri, c) {
		t.Error("expected uri to no longer be open")
	}
	if _, ok := m.Text(uri); ok {
		t.Error("expected text to be forgotten after last holder closes")
	}
}

func TestCloseNotLastHolderKeepsDocOpen(t *testing.T) {
	uri := writeTempFile(t, "package main\n")
	m := New(nil)
	a := &fakeOpener{id: "a"}
	b := &fakeOpener{id: "b"}

	m.Open(context.Background(), uri, a)
	m.Open(context.Background(), uri, b)

	if err := m.Close(context.Background(), uri, a); err != nil {
		t.Fatal(err)
	}

	a.mu.Lock()
	aCloses := len(a.closes)
	a.mu.Unlock()
	if aCloses != 0 {
		t.Errorf("expected no didClose sent through a (version tracking is shared, not per-client), got %d", aCloses)
	}
	if !m.IsOpen(uri, b) {
		t.Error("expected uri to remain open for b")
	}
	if m.IsOpen(uri, a) {
		t.Error("expected a to no longer hold the uri")
	}
}

func TestCloseUnknownHolderIsNoop(t *testing.T) {
	uri := writeTempFile(t, "package main\n")
	m := New(nil)
	c := &fakeOpener{id: "client-1"}

	if err := m.Close(context.Background(), uri, c); err != nil {
		t.Errorf("expected no error closing an unopened doc, got %v", err)
	}
}

func TestLanguageIDFallback(t *testing.T) {
	m := New(nil)
	if got := m.languageID("file:///x.rs"); got != "plaintext" {
		t.Errorf("expected default plaintext fallback, got %s", got)
	}
}
