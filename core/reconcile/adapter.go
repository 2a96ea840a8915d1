package reconcile

import (
	"context"
	"iter"
	"sync/atomic"

	"gorm.io/gorm"
)

// Adapter defines the platform-specific half of a sync run.
// Each adapter knows how to query the warehouse for its platform, when a row
// is complete enough to sync, and how its columns map onto a Record.
type Adapter interface {
	// Platform returns the platform this adapter extracts.
	Platform() Platform

	// Extract runs the platform's snapshot query. An empty studies slice
	// selects every study. The sequence is lazy and may be consumed once;
	// a second iteration yields ErrNotRestartable. Query failures are
	// yielded as *ExtractionError.
	Extract(ctx context.Context, db *gorm.DB, studies []string) iter.Seq2[RawRow, error]

	// Mapping returns the declarative column mapping for the platform.
	Mapping() *Mapping

	// Complete reports whether a raw row is eligible for sync. When it is
	// not, reason explains which precondition failed.
	Complete(row RawRow) (reason string, ok bool)
}

// ScanRows runs a read-only query and yields each row keyed by column alias.
// Values are left exactly as the driver returned them.
func ScanRows(ctx context.Context, db *gorm.DB, platform Platform, query string, args ...any) iter.Seq2[RawRow, error] {
	var consumed atomic.Bool
	return func(yield func(RawRow, error) bool) {
		if consumed.Swap(true) {
			yield(nil, ErrNotRestartable)
			return
		}

		rows, err := db.WithContext(ctx).Raw(query, args...).Rows()
		if err != nil {
			yield(nil, &ExtractionError{Platform: platform, Err: err})
			return
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			yield(nil, &ExtractionError{Platform: platform, Err: err})
			return
		}

		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				yield(nil, &ExtractionError{Platform: platform, Err: err})
				return
			}
			row := make(RawRow, len(cols))
			for i, c := range cols {
				row[c] = vals[i]
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, &ExtractionError{Platform: platform, Err: err})
		}
	}
}

// Collect drains an extraction sequence. The first error aborts collection
// and is returned as is.
func Collect(seq iter.Seq2[RawRow, error]) ([]RawRow, error) {
	var rows []RawRow
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
