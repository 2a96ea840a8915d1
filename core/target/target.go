package target

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mlwh-sync/core/database"
	"mlwh-sync/core/pgstore"
	"mlwh-sync/core/qcstore"
	"mlwh-sync/core/reconcile"
	"mlwh-sync/core/tolqc"
)

// ErrNoStudies is returned when study discovery finds nothing to sync.
var ErrNoStudies = errors.New("no studies flagged for auto sync")

// StudySource lists studies flagged for automatic sync.
type StudySource interface {
	AutoSyncStudies(ctx context.Context) ([]string, error)
}

// Target is an opened target store.
type Target struct {
	Driver Driver
	Store  reconcile.Store
	// Studies is set when the backend can discover studies itself.
	Studies StudySource
	closer  func() error
}

// Close releases the backend's connections.
func (t *Target) Close() error {
	if t == nil || t.closer == nil {
		return nil
	}
	return t.closer()
}

// Open connects to the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (*Target, error) {
	switch Driver(strings.ToLower(cfg.Driver)) {
	case DriverAPI, "":
		if cfg.API.URL == "" {
			return nil, fmt.Errorf("target api: url is required")
		}
		c := tolqc.New(cfg.API)
		return &Target{Driver: DriverAPI, Store: c, Studies: c}, nil
	case DriverSQL:
		db, err := database.Connect(cfg.SQL)
		if err != nil {
			return nil, fmt.Errorf("target sql: %w", err)
		}
		s := qcstore.New(db)
		if err := s.Migrate(ctx); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("target sql: %w", err)
		}
		return &Target{Driver: DriverSQL, Store: s, closer: func() error { return database.Close(db) }}, nil
	case DriverPostgres:
		s, err := pgstore.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("target postgres: %w", err)
		}
		return &Target{Driver: DriverPostgres, Store: s, closer: func() error { s.Close(); return nil }}, nil
	case DriverMemory:
		return &Target{Driver: DriverMemory, Store: qcstore.NewMemory()}, nil
	default:
		return nil, fmt.Errorf("unknown target driver %q", cfg.Driver)
	}
}

// ResolveStudies returns configured when it is non-empty. Otherwise it asks
// the backend for auto-sync studies, if it can list them. Backends that
// cannot list studies return configured unchanged, and an empty slice means
// every study.
func (t *Target) ResolveStudies(ctx context.Context, configured []string) ([]string, error) {
	if len(configured) > 0 || t.Studies == nil {
		return configured, nil
	}
	studies, err := t.Studies.AutoSyncStudies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list auto-sync studies: %w", err)
	}
	if len(studies) == 0 {
		return nil, ErrNoStudies
	}
	return studies, nil
}
