package integrity

import (
	"context"
	"errors"
	"fmt"

	"mlwh-sync/core/database"
	"mlwh-sync/core/reconcile"
	"mlwh-sync/core/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotConfigured is returned by a check whose dependency is not wired.
var ErrNotConfigured = errors.New("not configured")

// Check statuses.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// pingKey is looked up to prove the target store answers queries.
var pingKey = reconcile.Key{Platform: reconcile.PlatformShortRead, NameRoot: "mlwh-sync-ping#0"}

// WarehouseReport is the result of the warehouse schema check.
type WarehouseReport struct {
	Matched bool                   `json:"matched" yaml:"matched"`
	Tables  []database.TableReport `json:"tables" yaml:"tables"`
}

// ArchiveReport is the result of the archive bucket check.
type ArchiveReport struct {
	Bucket  string `json:"bucket" yaml:"bucket"`
	Exists  bool   `json:"exists" yaml:"exists"`
	Created bool   `json:"created,omitempty" yaml:"created,omitempty"`
}

// Result is the outcome of one check.
type Result struct {
	Status string `json:"status" yaml:"status"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
	Detail any    `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Report combines every check.
type Report struct {
	Warehouse Result `json:"warehouse" yaml:"warehouse"`
	Target    Result `json:"target" yaml:"target"`
	Archive   Result `json:"archive" yaml:"archive"`
}

// OK reports whether no check failed. Skipped checks do not count.
func (r Report) OK() bool {
	return r.Warehouse.Status != StatusError && r.Target.Status != StatusError && r.Archive.Status != StatusError
}

// Service checks that the sync's dependencies are reachable and shaped as
// the extraction queries expect.
type Service struct {
	warehouse *gorm.DB
	tables    []database.TableSpec
	store     reconcile.Store
	archive   *storage.Archive
	logger    *zap.Logger
}

// NewService creates a new integrity service. Any dependency may be nil, in
// which case its check reports ErrNotConfigured.
func NewService(warehouse *gorm.DB, tables []database.TableSpec, store reconcile.Store, archive *storage.Archive, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		warehouse: warehouse,
		tables:    tables,
		store:     store,
		archive:   archive,
		logger:    logger,
	}
}

// CheckWarehouse compares the warehouse schema with the tables and columns
// the platform queries read.
func (s *Service) CheckWarehouse() (*WarehouseReport, error) {
	if s.warehouse == nil {
		return nil, fmt.Errorf("warehouse: %w", ErrNotConfigured)
	}
	report := &WarehouseReport{Matched: true, Tables: database.CheckTables(s.warehouse, s.tables)}
	for _, t := range report.Tables {
		if !t.OK() {
			report.Matched = false
		}
	}
	return report, nil
}

// CheckTarget looks up a key that never exists to prove the target store
// answers.
func (s *Service) CheckTarget(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("target: %w", ErrNotConfigured)
	}
	if _, err := s.store.Lookup(ctx, []reconcile.Key{pingKey}); err != nil {
		return fmt.Errorf("target lookup: %w", err)
	}
	return nil
}

// CheckArchive verifies the report bucket exists, creating it when fix is
// set.
func (s *Service) CheckArchive(ctx context.Context, fix bool) (*ArchiveReport, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("archive: %w", ErrNotConfigured)
	}
	report := &ArchiveReport{Bucket: s.archive.Bucket()}
	exists, err := s.archive.BucketExists(ctx)
	if err != nil {
		return nil, err
	}
	report.Exists = exists
	if !exists && fix {
		s.logger.Info("Creating report bucket", zap.String("bucket", report.Bucket))
		if err := s.archive.EnsureBucket(ctx); err != nil {
			return report, err
		}
		report.Exists, report.Created = true, true
	}
	return report, nil
}

// CheckAll runs every check. Unconfigured dependencies are skipped.
func (s *Service) CheckAll(ctx context.Context) Report {
	var r Report

	wh, err := s.CheckWarehouse()
	r.Warehouse = result(wh, err)
	if err == nil && !wh.Matched {
		r.Warehouse.Status = StatusError
		r.Warehouse.Error = "warehouse schema does not match"
	}

	r.Target = result(nil, s.CheckTarget(ctx))

	ar, err := s.CheckArchive(ctx, false)
	r.Archive = result(ar, err)
	if err == nil && !ar.Exists {
		r.Archive.Status = StatusError
		r.Archive.Error = "bucket does not exist"
	}
	return r
}

func result(detail any, err error) Result {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return Result{Status: StatusSkipped}
	case err != nil:
		return Result{Status: StatusError, Error: err.Error()}
	}
	if detail == nil {
		return Result{Status: StatusOK}
	}
	return Result{Status: StatusOK, Detail: detail}
}
