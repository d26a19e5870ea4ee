package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrDuplicate is returned when a write would break a UNIQUE constraint, such as a
// second driver with the same phone.
var ErrDuplicate = errors.New("duplicate value")

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == pqUniqueViolation
	}
	return false
}

// wrapUnique turns a driver-level unique violation into ErrDuplicate for field.
func wrapUnique(err error, field string) error {
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: %s already in use", ErrDuplicate, field)
	}
	return err
}
