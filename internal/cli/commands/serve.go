package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lspfacade/mlsp/internal/cli/config"
	"github.com/lspfacade/mlsp/internal/cli/ui"
	"github.com/lspfacade/mlsp/internal/connmanager"
	"github.com/lspfacade/mlsp/internal/docmanager"
	"github.com/lspfacade/mlsp/internal/rootresolver"
	"github.com/lspfacade/mlsp/internal/serverconfig"
	"github.com/lspfacade/mlsp/internal/toolshell"
	"github.com/lspfacade/mlsp/internal/uricodec"
)

// NewServeCommand creates the serve command: the stdio tool shell a
// controlling agent drives.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the mlsp tool shell over stdio",
		Long: `Start mlsp's stdio tool shell.

This reads one newline-delimited JSON tool call per line from stdin and
writes one newline-delimited JSON reply per line to stdout: navigate to
definition, find references, hover, diagnostics, rename, and the rest of
the operations in the tool surface. Each call transparently starts,
reuses, or restarts the language server subprocess its file's extension
and workspace root resolve to.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)
	defer log.Sync()

	servers := cfg.ResolvedServers()

	conns := connmanager.New(connmanager.Options{
		RequestTimeout: cfg.RequestTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		Logger:         log,
	})
	docs := docmanager.New(languageIDFor(servers))

	tc := &toolshell.ToolContext{
		Conns:   conns,
		Docs:    docs,
		Servers: servers,
		Log:     log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AutoStart {
		if err := autoStartServers(ctx, conns, servers, cmd.ErrOrStderr()); err != nil {
			log.Warn("autostart did not complete for every configured server", zap.Error(err))
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("signal received, shutting down")
		cancel()
	}()

	runErr := tc.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	conns.StopAll(stopCtx)

	return runErr
}

// autoStartServers eagerly spawns and initializes every configured server
// against the current working directory's resolved root, so the first real
// tool call doesn't pay the subprocess-start latency. Servers start
// concurrently; one failing to start does not block the others.
func autoStartServers(ctx context.Context, conns *connmanager.Manager, servers []serverconfig.Config, stderr io.Writer) error {
	if len(servers) == 0 {
		return nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	return ui.WithSpinner(stderr, fmt.Sprintf("Starting %d configured server(s)", len(servers)), false, func() error {
		var g errgroup.Group
		for _, s := range servers {
			s := s
			g.Go(func() error {
				// Resolve walks up from a file's directory, so hand it a
				// path inside cwd for cwd itself to be searched first.
				root := rootresolver.Resolve(filepath.Join(cwd, "_"), s.RootMarkers)
				_, startErr := conns.Get(ctx, s, root)
				return startErr
			})
		}
		return g.Wait()
	})
}

func languageIDFor(servers []serverconfig.Config) docmanager.LanguageIDFunc {
	return func(uri string) string {
		path := uricodec.ToPath(uri)
		ext := extOf(path)
		if cfg, ok := serverconfig.Find(servers, ext); ok {
			return cfg.LanguageIDFor(ext)
		}
		return "plaintext"
	}
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}

func newLogger(level string) *zap.Logger {
	var cfg zap.Config
	switch level {
	case "debug":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = zapLevel

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
