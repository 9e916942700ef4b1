package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JamesPrial/mindful-journal/internal/pathutil"
)

// Backend names accepted by NewListBackend.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// DefaultSQLiteFile is the database file name used when no SQLite path is set.
const DefaultSQLiteFile = "mindful.db"

// Options selects and configures a list backend.
type Options struct {
	// Backend is "json" (default), "sqlite" or "postgres".
	Backend string

	// SQLitePath is resolved inside dataDir. Empty means <dataDir>/mindful.db.
	SQLitePath string

	// PostgresURL is required for the postgres backend.
	PostgresURL string
}

// NewListBackend builds the backend named by opts for the data folder dataDir.
//
// Returns an error for unknown backend names, for a SQLite path escaping
// dataDir, and for a postgres backend without a connection string.
func NewListBackend(ctx context.Context, dataDir string, opts Options, logger *zap.Logger) (ListBackend, error) {
	backendType := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backendType == "" {
		backendType = BackendJSON
	}

	switch backendType {
	case BackendJSON:
		return NewJSONBackend(dataDir, logger), nil

	case BackendSQLite:
		path, err := sqlitePath(dataDir, opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to determine SQLite database path: %w", err)
		}
		return NewSQLiteBackend(path)

	case BackendPostgres:
		if strings.TrimSpace(opts.PostgresURL) == "" {
			return nil, fmt.Errorf("postgres backend requires a connection string")
		}
		return NewPostgresBackend(ctx, opts.PostgresURL)

	default:
		return nil, fmt.Errorf("unknown storage backend: %q. Expected 'json', 'sqlite' or 'postgres'", backendType)
	}
}

func sqlitePath(dataDir, custom string) (string, error) {
	custom = strings.TrimSpace(custom)
	if custom == "" {
		return filepath.Join(dataDir, DefaultSQLiteFile), nil
	}
	safePath, err := pathutil.ResolveSafePath(dataDir, custom)
	if err != nil {
		return "", fmt.Errorf("invalid SQLite path: %w", err)
	}
	return safePath, nil
}
