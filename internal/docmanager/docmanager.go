// Package docmanager enforces the LSP synchronization contract: per (uri,
// client) open/close ordering, a per-uri monotonically increasing version
// counter shared across every client that opens that uri, and idempotent,
// single-flight opens under concurrency.
package docmanager

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lspfacade/mlsp/internal/uricodec"
)

// LanguageIDFunc derives the LSP language id for a uri, with a fallback of
// "plaintext" left to the caller's implementation.
type LanguageIDFunc func(uri string) string

// Opener is the subset of client.Client the document manager drives.
type Opener interface {
	ClientID() string
	DidOpen(ctx context.Context, uri, languageID string, version int, text string) error
	DidChange(ctx context.Context, uri string, version int, text string) error
	DidClose(ctx context.Context, uri string) error
}

type docKey struct {
	uri      string
	clientID string
}

func (k docKey) String() string { return k.uri + "\x00" + k.clientID }

type docState struct {
	holders map[string]bool
}

// Manager owns every DocumentState, keyed by uri for the shared version
// counter and by (uri, client-id) for open/close bookkeeping.
type Manager struct {
	mu       sync.Mutex
	docs     map[string]*docState // by uri
	versions map[string]int       // by uri, shared across all clients
	texts    map[string]string    // by uri, last known content (for update-content)
	opens    singleflight.Group

	languageID LanguageIDFunc
}

// New constructs an empty document manager.
func New(languageID LanguageIDFunc) *Manager {
	if languageID == nil {
		languageID = func(string) string { return "plaintext" }
	}
	return &Manager{
		docs:       make(map[string]*docState),
		versions:   make(map[string]int),
		texts:      make(map[string]string),
		languageID: languageID,
	}
}

// IsOpen reports whether uri is currently open with client.
func (m *Manager) IsOpen(uri string, c Opener) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.docs[uri]
	if !ok {
		return false
	}
	return st.holders[c.ClientID()]
}

// Open ensures uri is open with c, reading it from disk and allocating the
// next version for this uri if it is not already open with c. Concurrent
// opens for the same (uri, client) are coalesced: the second caller shares
// the first's in-flight didOpen rather than sending a duplicate.
func (m *Manager) Open(ctx context.Context, uri string, c Opener) error {
	m.mu.Lock()
	if st, ok := m.docs[uri]; ok && st.holders[c.ClientID()] {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	k := docKey{uri: uri, clientID: c.ClientID()}
	_, err, _ := m.opens.Do(k.String(), func() (interface{}, error) {
		return nil, m.doOpen(ctx, uri, c)
	})
	return err
}

func (m *Manager) doOpen(ctx context.Context, uri string, c Opener) error {
	text, err := uricodec.ReadForOpen(uricodec.ToPath(uri))
	if err != nil {
		return err
	}

	m.mu.Lock()
	version := m.versions[uri] + 1
	m.mu.Unlock()

	langID := m.languageID(uri)
	if sendErr := c.DidOpen(ctx, uri, langID, version, text); sendErr != nil {
		// roll back: no holder was ever recorded, so nothing to remove;
		// the next Open attempt will retry cleanly from version 0.
		return sendErr
	}

	m.mu.Lock()
	m.versions[uri] = version
	m.texts[uri] = text
	st, ok := m.docs[uri]
	if !ok {
		st = &docState{holders: make(map[string]bool)}
		m.docs[uri] = st
	}
	st.holders[c.ClientID()] = true
	m.mu.Unlock()
	return nil
}

// Close removes c as a holder of uri; when it was the last holder, sends
// didClose and drops both the DocumentState and the version counter.
func (m *Manager) Close(ctx context.Context, uri string, c Opener) error {
	m.mu.Lock()
	st, ok := m.docs[uri]
	if !ok || !st.holders[c.ClientID()] {
		m.mu.Unlock()
		return nil
	}
	delete(st.holders, c.ClientID())
	last := len(st.holders) == 0
	if last {
		delete(m.docs, uri)
		delete(m.versions, uri)
		delete(m.texts, uri)
	}
	m.mu.Unlock()

	if last {
		return c.DidClose(ctx, uri)
	}
	return nil
}

// Update opens uri first if needed (using disk content), then allocates the
// next version and sends didChange with text as a full-document
// replacement. Callers that want to feed unsaved text must Open then
// Update.
func (m *Manager) Update(ctx context.Context, uri, text string, c Opener) error {
	if !m.IsOpen(uri, c) {
		if err := m.Open(ctx, uri, c); err != nil {
			return err
		}
	}

	m.mu.Lock()
	version := m.versions[uri] + 1
	m.mu.Unlock()

	if err := c.DidChange(ctx, uri, version, text); err != nil {
		return err
	}

	m.mu.Lock()
	m.versions[uri] = version
	m.texts[uri] = text
	m.mu.Unlock()
	return nil
}

// Text returns the last known content of uri, and whether it is tracked.
func (m *Manager) Text(uri string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.texts[uri]
	return t, ok
}

// Version returns the current version counter for uri (0 if untracked).
func (m *Manager) Version(uri string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[uri]
}
