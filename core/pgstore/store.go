package pgstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"mlwh-sync/core/pgstore/migrations"
	"mlwh-sync/core/reconcile"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// ErrNotFound is returned when an update targets a key that is not stored.
var ErrNotFound = errors.New("seq data record not found")

// recordColumns is the select and insert column order.
var recordColumns = []string{
	"platform_type", "name_root", "study_id", "sample_name", "specimen_id",
	"taxon_id", "biosample_accession", "biospecimen_accession",
	"instrument_model", "pipeline_id", "run_id", "lims_qc", "qc_date",
	"tag1_id", "tag2_id", "library_id", "run_complete", "data_root", "data_path",
}

var (
	selectSQL = "SELECT " + strings.Join(recordColumns, ", ") +
		" FROM seq_data WHERE platform_type = $1 AND name_root = ANY($2)"
	insertSQL = buildInsertSQL()
)

// Store is the Postgres target store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and, when cfg.Migrate is set, applies pending
// migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{pool: pool}
	if cfg.Migrate {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// Migrate applies the embedded goose migrations.
func (s *Store) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("pgstore: set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("pgstore: run migrations: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Lookup returns the stored records for keys with one query per platform.
func (s *Store) Lookup(ctx context.Context, keys []reconcile.Key) (map[reconcile.Key]reconcile.Record, error) {
	byPlatform := make(map[reconcile.Platform][]string)
	for _, k := range keys {
		byPlatform[k.Platform] = append(byPlatform[k.Platform], k.NameRoot)
	}

	out := make(map[reconcile.Key]reconcile.Record, len(keys))
	for platform, names := range byPlatform {
		rows, err := s.pool.Query(ctx, selectSQL, string(platform), names)
		if err != nil {
			return nil, classify(fmt.Errorf("lookup %s: %w", platform, err))
		}
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("lookup %s: scan: %w", platform, err)
			}
			out[rec.Key()] = rec
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, classify(fmt.Errorf("lookup %s: %w", platform, err))
		}
	}
	return out, nil
}

// Create inserts rec unless its key already exists.
func (s *Store) Create(ctx context.Context, rec reconcile.Record) error {
	if _, err := s.pool.Exec(ctx, insertSQL, insertArgs(rec)...); err != nil {
		return classify(fmt.Errorf("create %s: %w", rec.Key(), err))
	}
	return nil
}

// Update writes only the patched columns.
func (s *Store) Update(ctx context.Context, p reconcile.Patch) error {
	query, args := updateSQL(p)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return classify(fmt.Errorf("update %s: %w", p.Key, err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s: %w", p.Key, ErrNotFound)
	}
	return nil
}

// CreateBatch queues every insert in one round trip.
func (s *Store) CreateBatch(ctx context.Context, recs []reconcile.Record) error {
	if len(recs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range recs {
		batch.Queue(insertSQL, insertArgs(r)...)
	}
	br := s.pool.SendBatch(ctx, batch)
	for _, r := range recs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return classify(fmt.Errorf("create %s: %w", r.Key(), err))
		}
	}
	if err := br.Close(); err != nil {
		return classify(fmt.Errorf("create batch of %d: %w", len(recs), err))
	}
	return nil
}

// UpdateBatch applies every patch in one transaction.
func (s *Store) UpdateBatch(ctx context.Context, patches []reconcile.Patch) error {
	if len(patches) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range patches {
			query, args := updateSQL(p)
			batch.Queue(query, args...)
		}
		br := tx.SendBatch(ctx, batch)
		for _, p := range patches {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return classify(fmt.Errorf("update %s: %w", p.Key, err))
			}
			if tag.RowsAffected() == 0 {
				_ = br.Close()
				return fmt.Errorf("update %s: %w", p.Key, ErrNotFound)
			}
		}
		return br.Close()
	})
}

func buildInsertSQL() string {
	ph := make([]string, len(recordColumns))
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return "INSERT INTO seq_data (" + strings.Join(recordColumns, ", ") + ") VALUES (" +
		strings.Join(ph, ", ") + ") ON CONFLICT (platform_type, name_root) DO NOTHING"
}

func insertArgs(r reconcile.Record) []any {
	var root, path *string
	if r.DataLocation != nil {
		root, path = &r.DataLocation.Root, &r.DataLocation.Path
	}
	return []any{
		string(r.Platform), r.NameRoot, r.StudyID, r.SampleName, r.SpecimenID,
		r.TaxonID, r.BiosampleAccession, r.BiospecimenAccession,
		r.InstrumentModel, r.PipelineID, r.RunID, string(r.LimsQC), r.QCDate,
		r.Tag1ID, r.Tag2ID, r.LibraryID, r.RunComplete, root, path,
	}
}

// updateSQL renders p as a single UPDATE with columns in name order. Only
// known columns are emitted.
func updateSQL(p reconcile.Patch) (string, []any) {
	attrs := p.Attributes()
	cols := make([]string, 0, len(attrs))
	for col := range attrs {
		if writable[col] {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)

	args := []any{string(p.Key.Platform), p.Key.NameRoot}
	sets := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		args = append(args, attrs[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	sets = append(sets, "updated_at = now()")
	return "UPDATE seq_data SET " + strings.Join(sets, ", ") +
		" WHERE platform_type = $1 AND name_root = $2", args
}

var writable = func() map[string]bool {
	m := make(map[string]bool, len(recordColumns))
	for _, c := range recordColumns[2:] {
		m[c] = true
	}
	return m
}()

func scanRecord(rows pgx.Rows) (reconcile.Record, error) {
	var (
		r          reconcile.Record
		platform   string
		qc         string
		qcDate     *time.Time
		root, path *string
	)
	err := rows.Scan(
		&platform, &r.NameRoot, &r.StudyID, &r.SampleName, &r.SpecimenID,
		&r.TaxonID, &r.BiosampleAccession, &r.BiospecimenAccession,
		&r.InstrumentModel, &r.PipelineID, &r.RunID, &qc, &qcDate,
		&r.Tag1ID, &r.Tag2ID, &r.LibraryID, &r.RunComplete, &root, &path,
	)
	if err != nil {
		return r, err
	}
	r.Platform = reconcile.Platform(platform)
	r.LimsQC = reconcile.QC(qc)
	r.RunComplete = r.RunComplete.UTC()
	if qcDate != nil {
		t := qcDate.UTC()
		r.QCDate = &t
	}
	if root != nil || path != nil {
		loc := reconcile.Location{}
		if root != nil {
			loc.Root = *root
		}
		if path != nil {
			loc.Path = *path
		}
		r.DataLocation = &loc
	}
	return r, nil
}

// classify marks connection loss, timeouts and retryable server states as
// transient.
func classify(err error) error {
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return reconcile.Transient(err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"),
			pgErr.Code == "40001", pgErr.Code == "40P01",
			pgErr.Code == "53300", pgErr.Code == "57P01":
			return reconcile.Transient(err)
		}
	}
	return err
}
