package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced to services so they can map storage outcomes onto
// the domain error taxonomy without parsing driver messages.
var (
	errNoRowsAffected = errors.New("no rows affected")

	// ErrDuplicateAssignment is returned when the unique index on
	// (tenant_id, student_id, fee_structure_id, academic_year) rejects an
	// insert. The index is the authoritative duplicate guard; service-level
	// existence checks are only a fast path.
	ErrDuplicateAssignment = errors.New("fee already assigned for this student and academic year")

	// ErrVersionConflict is returned when an optimistic-locking update
	// matched no rows because the asserted version was stale.
	ErrVersionConflict = errors.New("assignment was modified concurrently")
)

// IsNotFound reports whether err represents a missing row, either from a
// read that returned nothing or a guarded write that matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, errNoRowsAffected)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
