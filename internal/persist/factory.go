package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/frontline/warsim/internal/config"
)

// Open creates the slot store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (SlotStore, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "file", "":
		return NewFileStore(cfg.Path)
	case "sqlite":
		path := cfg.Path
		if path != "" && filepath.Ext(path) == "" {
			path = filepath.Join(path, "warsim.db")
		}
		if path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		return NewSQLiteStore(path)
	case "postgres":
		db, err := NewDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(ctx, db.Pool, log); err != nil {
			db.Close()
			return nil, err
		}
		return NewPostgresStore(db), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
