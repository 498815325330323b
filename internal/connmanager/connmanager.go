// Package connmanager pools LSP client connections keyed by (server id,
// workspace root), starting new server subprocesses on demand, restarting
// crashed ones under a sliding-window backoff budget, and evicting idle
// connections after a period of disuse.
package connmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/lspfacade/mlsp/internal/client"
	"github.com/lspfacade/mlsp/internal/lsperrors"
	"github.com/lspfacade/mlsp/internal/serverconfig"
)

// ServerKey identifies one pooled connection.
type ServerKey struct {
	ID   string
	Root string
}

func (k ServerKey) String() string { return k.ID + "@" + k.Root }

// Restart policy constants: within a sliding window of restartWindow, at
// most restartBudget restarts are allowed before the instance is given up
// on; each restart backs off exponentially from restartBase.
const (
	restartWindow = 5 * time.Minute
	restartBudget = 3
	restartBase   = time.Second
)

// DefaultIdleTimeout is how long an unused connection is kept alive before
// eviction, absent an explicit override.
const DefaultIdleTimeout = 30 * time.Minute

// Options configures the Manager.
type Options struct {
	RequestTimeout time.Duration
	IdleTimeout    time.Duration
	Logger         *zap.Logger
}

type entry struct {
	key ServerKey
	cfg serverconfig.Config

	mu        sync.Mutex
	client    *client.Client
	lastUse   time.Time
	restarts  []time.Time
	idleTimer *time.Timer
	evicted   bool
}

// Manager owns every pooled client, keyed by ServerKey.
type Manager struct {
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	entries map[ServerKey]*entry
	starts  singleflight.Group
}

// New constructs an empty connection manager.
func New(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	return &Manager{
		opts:    opts,
		log:     opts.Logger,
		entries: make(map[ServerKey]*entry),
	}
}

// Get returns the running client for (cfg.ID, root), starting a new
// subprocess and performing the initialize handshake if none exists yet.
// Concurrent callers for the same key share one in-flight start (see
// ensure), so only one subprocess is ever spawned per key.
func (m *Manager) Get(ctx context.Context, cfg serverconfig.Config, root string) (*client.Client, error) {
	key := ServerKey{ID: cfg.ID, Root: root}

	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{key: key, cfg: cfg}
		m.entries[key] = e
	}
	m.mu.Unlock()

	return m.ensure(ctx, e)
}

// ensure returns e's running client, starting one if needed. Concurrent
// callers for the same key share a single in-flight start via the
// Manager's singleflight group, so only one subprocess is ever spawned
// per key even under a thundering herd of first requests.
func (m *Manager) ensure(ctx context.Context, e *entry) (*client.Client, error) {
	e.mu.Lock()
	if e.evicted {
		e.mu.Unlock()
		return nil, lsperrors.New(lsperrors.ServerNotFound, "connection was evicted")
	}
	if e.client != nil && e.client.Initialized() {
		e.lastUse = time.Now()
		c := e.client
		e.mu.Unlock()
		m.resetIdleTimer(e)
		return c, nil
	}
	e.mu.Unlock()

	v, err, _ := m.starts.Do(e.key.String(), func() (interface{}, error) {
		e.mu.Lock()
		if e.evicted {
			e.mu.Unlock()
			return nil, lsperrors.New(lsperrors.ServerNotFound, "connection was evicted")
		}
		if e.client != nil && e.client.Initialized() {
			c := e.client
			e.mu.Unlock()
			return c, nil
		}
		e.mu.Unlock()
		return m.start(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	c := v.(*client.Client)
	e.mu.Lock()
	e.client = c
	e.lastUse = time.Now()
	e.mu.Unlock()
	m.resetIdleTimer(e)
	return c, nil
}

func (m *Manager) start(ctx context.Context, e *entry) (*client.Client, error) {
	c, err := client.New(e.cfg, client.Options{
		WorkspaceRoot:  e.key.Root,
		RequestTimeout: m.opts.RequestTimeout,
		Logger:         m.opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	if err := c.Initialize(ctx); err != nil {
		c.Dispose()
		return nil, err
	}

	c.OnExit(func(code int) {
		e.mu.Lock()
		current := e.client == c
		e.mu.Unlock()
		if !current {
			// detached before shutdown (idle eviction) or already replaced
			return
		}
		m.log.Warn("server exited", zap.String("key", e.key.String()), zap.Int("code", code))
		m.handleExit(e)
	})

	return c, nil
}

// handleExit runs the restart policy when a pooled client's subprocess
// exits on its own (crash, killed externally). If the sliding-window
// restart budget is exhausted, the entry is left empty so the next Get
// returns a fresh start attempt at the caller's discretion rather than
// looping forever here.
func (m *Manager) handleExit(e *entry) {
	e.mu.Lock()
	if e.evicted {
		e.mu.Unlock()
		return
	}
	e.client = nil
	now := time.Now()
	cutoff := now.Add(-restartWindow)
	kept := e.restarts[:0]
	for _, t := range e.restarts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.restarts = kept
	if len(e.restarts) >= restartBudget {
		m.log.Error("restart budget exhausted, leaving connection down",
			zap.String("key", e.key.String()))
		e.mu.Unlock()
		return
	}
	attempt := len(e.restarts)
	e.restarts = append(e.restarts, now)
	e.mu.Unlock()

	backoff := restartBase * time.Duration(1<<uint(attempt))
	m.log.Info("restarting server after backoff",
		zap.String("key", e.key.String()), zap.Duration("backoff", backoff))

	go func() {
		time.Sleep(backoff)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := m.ensure(ctx, e); err != nil {
			m.log.Error("restart failed", zap.String("key", e.key.String()), zap.Error(err))
		}
	}()
}

func (m *Manager) resetIdleTimer(e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.idleTimer = time.AfterFunc(m.opts.IdleTimeout, func() {
		m.evictIdle(e)
	})
}

func (m *Manager) evictIdle(e *entry) {
	e.mu.Lock()
	if e.evicted || e.client == nil {
		e.mu.Unlock()
		return
	}
	if time.Since(e.lastUse) < m.opts.IdleTimeout {
		e.mu.Unlock()
		return
	}
	c := e.client
	e.client = nil
	e.mu.Unlock()

	m.log.Info("evicting idle connection", zap.String("key", e.key.String()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Shutdown(shutdownCtx)
}

// Stop shuts down and removes the connection for key, if any.
func (m *Manager) Stop(ctx context.Context, key ServerKey) error {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	if !ok {
		return lsperrors.New(lsperrors.ServerNotFound, fmt.Sprintf("no connection for %s", key))
	}

	e.mu.Lock()
	e.evicted = true
	c := e.client
	e.client = nil
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Shutdown(ctx)
}

// StopAll shuts down every pooled connection, used for graceful process
// exit (SIGINT/SIGTERM).
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	keys := make([]ServerKey, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func(k ServerKey) {
			defer wg.Done()
			if err := m.Stop(ctx, k); err != nil {
				m.log.Debug("stop during shutdown", zap.String("key", k.String()), zap.Error(err))
			}
		}(k)
	}
	wg.Wait()
}

// Instance describes one pooled connection for status reporting.
type Instance struct {
	Key         ServerKey
	PID         int
	Initialized bool
}

// Listing returns every live connection for status reporting.
func (m *Manager) Listing() []Instance {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	out := make([]Instance, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		c := e.client
		evicted := e.evicted
		e.mu.Unlock()
		if c == nil || evicted {
			continue
		}
		out = append(out, Instance{Key: e.key, PID: c.PID(), Initialized: c.Initialized()})
	}
	return out
}
