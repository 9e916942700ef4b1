// Package main implements the stdio MCP server for mindful-journal.
//
// It exposes the journal, goals and tasks stores as MCP tools over stdio
// JSON-RPC (Model Context Protocol). Configuration comes from the file named
// by MINDFUL_CONFIG, when set, and from MINDFUL_* environment variables.
// Logs go to stderr so stdout stays reserved for the protocol.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/JamesPrial/mindful-journal/internal/app"
	"github.com/JamesPrial/mindful-journal/internal/config"
	"github.com/JamesPrial/mindful-journal/internal/logging"
)

// envConfigPath names an optional YAML config file.
const envConfigPath = "MINDFUL_CONFIG"

func run(ctx context.Context) int {
	cfg, err := config.Load(os.Getenv(envConfigPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "[mcp-server] Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[mcp-server] Failed to create logger: %v\n", err)
		return 1
	}
	logger = logger.Named("mcp-server")
	defer func() { _ = logger.Sync() }()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open data folder", zap.Error(err))
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()

	srv, err := a.MCPServer()
	if err != nil {
		logger.Error("failed to create MCP server", zap.Error(err))
		return 1
	}

	if err := server.ServeStdio(srv, server.WithErrorLogger(zap.NewStdLog(logger))); err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(context.Background()))
}
