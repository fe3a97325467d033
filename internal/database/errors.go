package database

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQL error codes the repositories react to
const (
	pgUniqueViolation     = "23505"
	pgExclusionViolation  = "23P01"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

var (
	// ErrNotFound is returned by transactional paths when a row they must lock is missing
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert hits a unique constraint
	ErrDuplicate = errors.New("duplicate record")
	// ErrOverlap is returned when a reservation range collides with another active one
	ErrOverlap = errors.New("overlapping reservation")
	// ErrInUse is returned when a delete is blocked by rows that still reference the record
	ErrInUse = errors.New("record still referenced")
	// ErrStaleState is returned when a guarded update matched no row
	ErrStaleState = errors.New("record not in expected state")
	// ErrInvalidRow is returned when a write violates a CHECK constraint
	ErrInvalidRow = errors.New("record violates a check constraint")
)

// IsUniqueViolation reports whether err carries a unique-constraint violation
func IsUniqueViolation(err error) bool {
	return pqCode(err) == pgUniqueViolation
}

// IsExclusionViolation reports whether err carries an exclusion-constraint violation
func IsExclusionViolation(err error) bool {
	return pqCode(err) == pgExclusionViolation
}

// classify maps driver errors to the package's sentinel errors, leaving other errors untouched
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return ErrDuplicate
	case IsExclusionViolation(err):
		return ErrOverlap
	case pqCode(err) == pgForeignKeyViolation:
		return ErrInUse
	case pqCode(err) == pgCheckViolation:
		return ErrInvalidRow
	}
	return err
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
