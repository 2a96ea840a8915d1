package qcstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"mlwh-sync/core/reconcile"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when an update targets a key that is not stored.
var ErrNotFound = errors.New("seq data record not found")

// Store is the SQL target store backed by GORM.
type Store struct {
	db *gorm.DB
	// batchSize bounds rows per INSERT statement.
	batchSize int
}

// New wraps db. Call Migrate before first use on an empty database.
func New(db *gorm.DB) *Store {
	return &Store{db: db, batchSize: 100}
}

// Migrate creates or updates the seq_data table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&SeqData{}); err != nil {
		return fmt.Errorf("migrate seq_data: %w", err)
	}
	return nil
}

// Lookup returns the stored records for keys, grouped into one query per
// platform.
func (s *Store) Lookup(ctx context.Context, keys []reconcile.Key) (map[reconcile.Key]reconcile.Record, error) {
	byPlatform := make(map[reconcile.Platform][]string)
	for _, k := range keys {
		byPlatform[k.Platform] = append(byPlatform[k.Platform], k.NameRoot)
	}

	out := make(map[reconcile.Key]reconcile.Record, len(keys))
	for platform, names := range byPlatform {
		var rows []SeqData
		err := s.db.WithContext(ctx).
			Where("platform_type = ? AND name_root IN ?", string(platform), names).
			Find(&rows).Error
		if err != nil {
			return nil, classify(fmt.Errorf("lookup %s: %w", platform, err))
		}
		for _, row := range rows {
			rec := row.Record()
			out[rec.Key()] = rec
		}
	}
	return out, nil
}

// Create inserts rec unless its key already exists.
func (s *Store) Create(ctx context.Context, rec reconcile.Record) error {
	row := fromRecord(rec)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return classify(fmt.Errorf("create %s: %w", rec.Key(), err))
	}
	return nil
}

// Update writes only the patched columns.
func (s *Store) Update(ctx context.Context, p reconcile.Patch) error {
	return s.update(s.db.WithContext(ctx), p)
}

func (s *Store) update(tx *gorm.DB, p reconcile.Patch) error {
	res := tx.Model(&SeqData{}).
		Where("platform_type = ? AND name_root = ?", string(p.Key.Platform), p.Key.NameRoot).
		Updates(p.Attributes())
	if res.Error != nil {
		return classify(fmt.Errorf("update %s: %w", p.Key, res.Error))
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL reports changed rows, so an update that rewrites identical
	// values affects nothing. Only a missing row is an error.
	var n int64
	err := tx.Model(&SeqData{}).
		Where("platform_type = ? AND name_root = ?", string(p.Key.Platform), p.Key.NameRoot).
		Count(&n).Error
	if err != nil {
		return classify(fmt.Errorf("update %s: %w", p.Key, err))
	}
	if n == 0 {
		return fmt.Errorf("update %s: %w", p.Key, ErrNotFound)
	}
	return nil
}

// CreateBatch inserts recs in multi-row statements, skipping existing keys.
func (s *Store) CreateBatch(ctx context.Context, recs []reconcile.Record) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([]SeqData, len(recs))
	for i, r := range recs {
		rows[i] = fromRecord(r)
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, s.batchSize).Error
	if err != nil {
		return classify(fmt.Errorf("create batch of %d: %w", len(recs), err))
	}
	return nil
}

// UpdateBatch applies every patch in one transaction.
func (s *Store) UpdateBatch(ctx context.Context, patches []reconcile.Patch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range patches {
			if err := s.update(tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&SeqData{}).Count(&n).Error
	return n, err
}

// classify marks connection-level failures as transient.
func classify(err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return reconcile.Transient(err)
	}
	return err
}
