// Package client implements the LSP client: it drives one language server
// subprocess over a framed JSON-RPC transport, performs the initialize
// handshake, gates feature requests on advertised capabilities, and
// tracks outstanding requests for cancellation and timeout.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.lsp.dev/jsonrpc2"
	lspuri "go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/lspfacade/mlsp/internal/diagnostics"
	"github.com/lspfacade/mlsp/internal/lsperrors"
	"github.com/lspfacade/mlsp/internal/serverconfig"
)

// Options configures a Client beyond its ServerConfig.
type Options struct {
	WorkspaceRoot  string
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// ExitObserver is invoked once, after the subprocess exits, with its exit
// code (or -1 if it could not be determined).
type ExitObserver func(code int)

// Client owns one server subprocess's transport and JSON-RPC connection.
type Client struct {
	id   string
	cfg  serverconfig.Config
	opts Options
	log  *zap.Logger

	cmd    *exec.Cmd
	conn   jsonrpc2.Conn
	stderr io.ReadCloser

	mu            sync.Mutex
	caps          capabilitySet
	initialized   bool
	nextRequestID uint64
	pending       map[uint64]context.CancelFunc

	diagnostics *diagnostics.Cache

	exitObservers []ExitObserver
	exitOnce      sync.Once
}

// New spawns the configured command and constructs its JSON-RPC
// connection, but does not perform the initialize handshake (see
// Initialize).
func New(cfg serverconfig.Config, opts Options) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = opts.WorkspaceRoot
	if len(cfg.Env) > 0 {
		env := os.Environ()
		for k, v := range cfg.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, lsperrors.Wrap(lsperrors.ServerStartFailed, "stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, lsperrors.Wrap(lsperrors.ServerStartFailed, "stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, lsperrors.Wrap(lsperrors.ServerStartFailed, "stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, lsperrors.Wrap(lsperrors.ServerStartFailed, fmt.Sprintf("spawn %s", cfg.Command), err)
	}

	c := &Client{
		id:          uuid.NewString(),
		cfg:         cfg,
		opts:        opts,
		log:         opts.Logger.With(zap.String("server", cfg.ID)),
		cmd:         cmd,
		stderr:      stderr,
		pending:     make(map[uint64]context.CancelFunc),
		diagnostics: diagnostics.New(),
	}

	stream := jsonrpc2.NewStream(rwc{stdout, stdin})
	c.conn = jsonrpc2.NewConn(stream)
	c.conn.Go(context.Background(), c.handler())

	go c.drainStderr()
	go c.watchExit()

	return c, nil
}

// rwc adapts a separate reader and writer into an io.ReadWriteCloser over a
// subprocess's stdout/stdin pipes.
type rwc struct {
	io.ReadCloser
	w io.WriteCloser
}

func (r rwc) Write(p []byte) (int, error) { return r.w.Write(p) }
func (r rwc) Close() error {
	werr := r.w.Close()
	rerr := r.ReadCloser.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

func (c *Client) drainStderr() {
	buf := make([]byte, 4096)
	for {
		n, err := c.stderr.Read(buf)
		if n > 0 {
			c.log.Debug("stderr", zap.ByteString("data", buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) watchExit() {
	err := c.cmd.Wait()
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	c.mu.Lock()
	c.initialized = false
	pending := c.pending
	c.pending = make(map[uint64]context.CancelFunc)
	c.mu.Unlock()
	for _, cancel := range pending {
		cancel()
	}

	c.exitOnce.Do(func() {
		c.mu.Lock()
		observers := append([]ExitObserver(nil), c.exitObservers...)
		c.mu.Unlock()
		for _, obs := range observers {
			obs(code)
		}
	})
}

// OnExit registers a callback invoked once the subprocess exits.
func (c *Client) OnExit(obs ExitObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exitObservers = append(c.exitObservers, obs)
}

// PID returns the subprocess's process id.
func (c *Client) PID() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// ServerID returns the identifier of the ServerConfig this client drives.
func (c *Client) ServerID() string { return c.cfg.ID }

// ClientID returns the unique identifier minted for this client instance,
// used by the document manager to key per-(uri,client) holder state.
func (c *Client) ClientID() string { return c.id }

// WorkspaceRoot returns the workspace root this client was started for.
func (c *Client) WorkspaceRoot() string { return c.opts.WorkspaceRoot }

// Diagnostics returns this client's local diagnostics mirror.
func (c *Client) Diagnostics() *diagnostics.Cache { return c.diagnostics }

// Initialized reports whether the initialize handshake completed.
func (c *Client) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// nextID mints the client's own monotonically increasing request
// identifier (starting at 1), used for the pending-request registry and
// logging — distinct from, and in addition to, the JSON-RPC wire id the
// transport manages internally.
func (c *Client) nextID() uint64 {
	return atomic.AddUint64(&c.nextRequestID, 1)
}

// request issues one JSON-RPC call under the client's configured timeout,
// registering a cancellation handle so Cancel(id) or the shared timeout can
// abort it. On timeout or cancellation the call is abandoned and a
// $/cancelRequest notification carrying its wire id is sent to the server.
func (c *Client) request(ctx context.Context, method string, params, result interface{}) error {
	id := c.nextID()
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	c.mu.Lock()
	c.pending[id] = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	wireID, err := c.conn.Call(reqCtx, method, params, result)
	if err != nil {
		if reqCtx.Err() != nil {
			_ = c.conn.Notify(context.Background(), "$/cancelRequest", map[string]interface{}{"id": &wireID})
		}
		if reqCtx.Err() == context.DeadlineExceeded {
			return lsperrors.Wrap(lsperrors.ServerTimeout, method+" timed out", err)
		}
		if reqCtx.Err() == context.Canceled {
			return lsperrors.Wrap(lsperrors.RequestCancelled, method+" cancelled", err)
		}
		return lsperrors.Wrap(lsperrors.InvalidResponse, method+" failed", err)
	}
	return nil
}

// Cancel aborts the outstanding request with the given client-local id, if
// still pending.
func (c *Client) Cancel(id uint64) bool {
	c.mu.Lock()
	cancel, ok := c.pending[id]
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (c *Client) notify(ctx context.Context, method string, params interface{}) error {
	return c.conn.Notify(ctx, method, params)
}

// Initialize performs the initialize/initialized handshake.
func (c *Client) Initialize(ctx context.Context) error {
	params := buildInitializeParams(c.PID(), c.opts.WorkspaceRoot, c.cfg.InitOptions)

	var raw json.RawMessage
	initCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	if _, err := c.conn.Call(initCtx, "initialize", params, &raw); err != nil {
		return lsperrors.Wrap(lsperrors.ServerStartFailed, "initialize failed", err)
	}

	var result struct {
		Capabilities json.RawMessage `json:"capabilities"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return lsperrors.Wrap(lsperrors.InvalidResponse, "malformed initialize result", err)
	}
	var caps capabilitySet
	if err := json.Unmarshal(result.Capabilities, &caps); err != nil {
		return lsperrors.Wrap(lsperrors.InvalidResponse, "malformed server capabilities", err)
	}

	if err := c.notify(ctx, "initialized", struct{}{}); err != nil {
		return lsperrors.Wrap(lsperrors.ServerStartFailed, "initialized notification failed", err)
	}

	c.mu.Lock()
	c.caps = caps
	c.initialized = true
	c.mu.Unlock()
	return nil
}

func buildInitializeParams(pid int, root string, initOptions map[string]any) map[string]any {
	rootURI := ""
	if root != "" {
		rootURI = string(lspuri.File(root))
	}
	return map[string]any{
		"processId":             pid,
		"rootUri":                rootURI,
		"initializationOptions": initOptions,
		"workspaceFolders": []map[string]string{
			{"uri": rootURI, "name": root},
		},
		"capabilities": clientCapabilities(),
	}
}

// clientCapabilities is the static descriptor declared to every server:
// synchronization (full-text didOpen/didChange/didClose), definition, type
// definition, references, implementation, hover (markdown or plain),
// signature help (markdown or plain), document symbols (hierarchical),
// workspace symbols, completion (snippets + documentation), rename (with
// prepare), publishDiagnostics (with related info), call hierarchy, type
// hierarchy, code actions, formatting.
func clientCapabilities() map[string]any {
	markupKinds := []string{"markdown", "plaintext"}
	return map[string]any{
		"textDocument": map[string]any{
			"synchronization": map[string]any{
				"dynamicRegistration": false,
				"didSave":             true,
			},
			"definition":         map[string]any{"linkSupport": false},
			"typeDefinition":     map[string]any{"linkSupport": false},
			"references":         map[string]any{},
			"implementation":     map[string]any{"linkSupport": false},
			"hover":              map[string]any{"contentFormat": markupKinds},
			"signatureHelp":      map[string]any{"signatureInformation": map[string]any{"documentationFormat": markupKinds}},
			"documentSymbol":     map[string]any{"hierarchicalDocumentSymbolSupport": true},
			"completion": map[string]any{
				"completionItem": map[string]any{
					"snippetSupport":          true,
					"documentationFormat":     markupKinds,
				},
			},
			"rename": map[string]any{"prepareSupport": true},
			"publishDiagnostics": map[string]any{
				"relatedInformation": true,
			},
			"callHierarchy": map[string]any{},
			"typeHierarchy": map[string]any{},
			"codeAction":    map[string]any{},
			"formatting":    map[string]any{},
		},
		"workspace": map[string]any{
			"symbol":           map[string]any{},
			"workspaceFolders": true,
		},
	}
}

// Shutdown performs the shutdown/exit sequence: send shutdown (request),
// then exit (notification), then close streams. If the server does not
// reply within the timeout, force-kill the subprocess. Every still
// outstanding request is cancelled with request-cancelled.
func (c *Client) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	_, shutdownErr := c.conn.Call(shutdownCtx, "shutdown", nil, nil)
	if shutdownErr != nil {
		c.log.Warn("shutdown request failed, force killing", zap.Error(shutdownErr))
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
	} else {
		_ = c.notify(ctx, "exit", nil)
	}

	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[uint64]context.CancelFunc)
	c.mu.Unlock()
	for _, cfn := range pending {
		cfn()
	}

	return c.conn.Close()
}

// Dispose force-kills the subprocess without attempting a graceful
// shutdown sequence, used by the connection manager's best-effort disposal
// path during restarts.
func (c *Client) Dispose() {
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	_ = c.conn.Close()
}
