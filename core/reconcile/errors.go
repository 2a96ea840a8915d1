package reconcile

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotRestartable is yielded when an extraction sequence is iterated twice.
	ErrNotRestartable = errors.New("extraction sequence already consumed")

	// ErrNoAdapters is returned when a run is started without any platform adapter.
	ErrNoAdapters = errors.New("no platform adapters configured")

	// ErrUnknownPlatform is wrapped by ParsePlatform for unrecognised names.
	ErrUnknownPlatform = errors.New("unknown platform")
)

// ExtractionError reports that a platform's warehouse query could not run.
// It is fatal for that platform only.
type ExtractionError struct {
	Platform Platform
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Platform, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// MappingError reports a raw row that could not be canonicalized.
type MappingError struct {
	Platform Platform  `json:"platform" yaml:"platform"`
	Field    string    `json:"field" yaml:"field"`
	Class    DropClass `json:"class" yaml:"class"`
	Reason   string    `json:"reason" yaml:"reason"`
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s mapping: field %s: %s", e.Platform, e.Field, e.Reason)
}

// IdentityCollision describes a record discarded in favour of another with
// the same identity key.
type IdentityCollision struct {
	Key     Key    `json:"key" yaml:"key"`
	Kept    int    `json:"kept_seq" yaml:"kept_seq"`
	Dropped int    `json:"dropped_seq" yaml:"dropped_seq"`
	Reason  string `json:"reason" yaml:"reason"`
}

func (e *IdentityCollision) Error() string {
	return fmt.Sprintf("identity collision on %s: kept row %d, dropped row %d (%s)", e.Key, e.Kept, e.Dropped, e.Reason)
}

// RegressionConflict describes an incoming record whose QC timestamp is older
// than the one already stored while its QC-dependent fields differ.
type RegressionConflict struct {
	Key            Key       `json:"key" yaml:"key"`
	StoredQCDate   time.Time `json:"stored_qc_date" yaml:"stored_qc_date"`
	IncomingQCDate time.Time `json:"incoming_qc_date" yaml:"incoming_qc_date"`
	Fields         []Field   `json:"fields" yaml:"fields"`
	Forced         bool      `json:"forced,omitempty" yaml:"forced,omitempty"`
}

func (e *RegressionConflict) Error() string {
	return fmt.Sprintf("regression on %s: incoming qc_date %s older than stored %s",
		e.Key, e.IncomingQCDate.Format(time.RFC3339), e.StoredQCDate.Format(time.RFC3339))
}

// ApplyError records a write that failed after retries.
type ApplyError struct {
	Key Key    `json:"key" yaml:"key"`
	Op  string `json:"op" yaml:"op"`
	Err error  `json:"-" yaml:"-"`

	// Detail is the rendered error, kept for encoding.
	Detail string `json:"detail" yaml:"detail"`
}

func newApplyError(key Key, op string, err error) *ApplyError {
	return &ApplyError{Key: key, Op: op, Err: err, Detail: err.Error()}
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Key, e.Detail)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// transientError marks an error as safe to retry.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so that IsTransient reports true. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether any error in err's chain was marked Transient.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}
