package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateKey is returned when an insert or update violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrReferenced is returned when a row cannot be removed or linked because of a foreign key.
	ErrReferenced = errors.New("referenced by other rows")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translateError maps driver errors onto repository sentinels. The driver
// error stays in the chain.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return &duplicateKeyError{constraint: pqErr.Constraint, err: err}
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %s: %w", ErrReferenced, pqErr.Constraint, err)
	}
	return err
}

type duplicateKeyError struct {
	constraint string
	err        error
}

func (e *duplicateKeyError) Error() string {
	if e.constraint != "" {
		return "duplicate key: " + e.constraint
	}
	return "duplicate key"
}

func (e *duplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

func (e *duplicateKeyError) Unwrap() error { return e.err }

// DuplicateConstraint returns the violated constraint name, if err is a duplicate key error.
func DuplicateConstraint(err error) string {
	var dup *duplicateKeyError
	if errors.As(err, &dup) {
		return dup.constraint
	}
	return ""
}
