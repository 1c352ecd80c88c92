package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository-level errors surfaced to services.
var (
	ErrDuplicate     = errors.New("duplicate key")
	ErrStateConflict = errors.New("row is not in the expected state")
	ErrCacheMiss     = errors.New("cache miss")
)

// DuplicateError carries the violated unique constraint.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate key violates %s", e.Constraint)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// mapPgError converts unique violations into *DuplicateError.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &DuplicateError{Constraint: pgErr.ConstraintName}
	}
	return err
}

// IsDuplicateOn reports whether err is a unique violation on a constraint
// whose name contains column.
func IsDuplicateOn(err error, column string) bool {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return strings.Contains(dup.Constraint, column)
	}
	return false
}

// placeholder returns the next positional parameter for args.
func placeholder(args []interface{}) string {
	return fmt.Sprintf("$%d", len(args))
}
