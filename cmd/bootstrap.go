package cmd

import (
	"context"
	"errors"
	"fmt"

	"mlwh-sync/core/config"
	"mlwh-sync/core/database"
	"mlwh-sync/core/logger"
	"mlwh-sync/core/storage"
	"mlwh-sync/core/target"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errArchiveDisabled = errors.New("report archive is disabled (set STORAGE_ENABLED=true)")

// conns holds the connections a command opened.
type conns struct {
	cfg       *config.Config
	log       *zap.Logger
	warehouse *gorm.DB
	target    *target.Target
	archive   *storage.Archive
}

// needs selects what bootstrap opens.
type needs struct {
	warehouse bool
	target    bool
	archive   bool
}

// bootstrap loads configuration and opens the requested connections. The
// archive is only opened when storage is enabled.
func bootstrap(ctx context.Context, n needs) (*conns, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	rt := &conns{cfg: cfg, log: l}

	if n.warehouse {
		db, err := database.Connect(cfg.Warehouse)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
		}
		rt.warehouse = db
		l.Info("Connected to warehouse", zap.String("host", cfg.Warehouse.Host), zap.String("name", cfg.Warehouse.Name))
	}

	if n.target {
		t, err := target.Open(ctx, cfg.Target)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to open target store: %w", err)
		}
		rt.target = t
		l.Info("Opened target store", zap.String("driver", string(t.Driver)))
	}

	if n.archive && cfg.Storage.Enabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		rt.archive = storage.NewArchive(client, cfg.Storage.Bucket, cfg.Storage.Prefix)
	}
	return rt, nil
}

// Close releases every connection and flushes the logger.
func (rt *conns) Close() {
	if rt.target != nil {
		if err := rt.target.Close(); err != nil {
			rt.log.Warn("Closing target store failed", zap.Error(err))
		}
	}
	if err := database.Close(rt.warehouse); err != nil {
		rt.log.Warn("Closing warehouse failed", zap.Error(err))
	}
	_ = rt.log.Sync()
}
