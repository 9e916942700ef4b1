// Package app wires configuration into the stores shared by the HTTP and
// MCP front ends.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/JamesPrial/mindful-journal/internal/config"
	"github.com/JamesPrial/mindful-journal/internal/dataroot"
	"github.com/JamesPrial/mindful-journal/internal/httpapi"
	"github.com/JamesPrial/mindful-journal/internal/journal"
	"github.com/JamesPrial/mindful-journal/internal/lists"
	"github.com/JamesPrial/mindful-journal/internal/mcpserver"
	"github.com/JamesPrial/mindful-journal/internal/metrics"
	"github.com/JamesPrial/mindful-journal/internal/storage"
)

// App holds the opened stores. Metrics is nil when disabled in config.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Root    *dataroot.Root
	Journal *journal.Store
	Lists   *lists.Service
	Metrics *metrics.Collector

	backend storage.ListBackend
}

// Open prepares the data folder and opens the configured list backend.
// Call Close when done.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	root, err := dataroot.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if err := root.Ensure(); err != nil {
		return nil, fmt.Errorf("failed to prepare data folder %s: %w", root.Path(), err)
	}

	backend, err := storage.NewListBackend(ctx, root.Path(), cfg.StorageOptions(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Root:    root,
		Journal: journal.NewStore(root, logger),
		backend: backend,
	}

	var listOpts []lists.Option
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.NewCollector()
		listOpts = append(listOpts, lists.WithObserver(a.Metrics.ListObserver()))
	}
	a.Lists = lists.NewService(backend, logger, listOpts...)

	logger.Debug("opened data folder",
		zap.String("path", root.Path()),
		zap.String("backend", cfg.Storage.Backend),
		zap.Bool("metrics", a.Metrics != nil),
	)
	return a, nil
}

// HTTPServer builds the API server. staticDir overrides the configured one
// when non-empty.
func (a *App) HTTPServer(staticDir string) *httpapi.Server {
	if staticDir == "" {
		staticDir = a.Config.Server.StaticDir
	}
	var opts []httpapi.Option
	if staticDir != "" {
		opts = append(opts, httpapi.WithStaticDir(staticDir))
	}
	if a.Metrics != nil {
		opts = append(opts, httpapi.WithMetrics(a.Metrics, a.Config.Metrics.Path))
	}
	return httpapi.NewServer(a.Root, a.Journal, a.Lists, a.Logger, opts...)
}

// MCPServer builds the MCP tool server over the same stores.
func (a *App) MCPServer() (*server.MCPServer, error) {
	return mcpserver.NewServer(mcpserver.Deps{
		Root:    a.Root,
		Journal: a.Journal,
		Lists:   a.Lists,
		Logger:  a.Logger,
	})
}

// Close releases the list backend.
func (a *App) Close() error {
	if c, ok := a.backend.(storage.Closer); ok {
		return c.Close()
	}
	return nil
}
