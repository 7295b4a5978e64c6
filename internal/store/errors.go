package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// PersistenceError carries whatever diagnostics the database driver exposed.
type PersistenceError struct {
	Op     string
	Code   string
	Hint   string
	Detail string
	Err    error
}

func (e *PersistenceError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Err)
	if e.Code != "" {
		msg += " (code " + e.Code + ")"
	}
	return msg
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UniqueViolation reports whether the failure was a unique constraint collision.
func (e *PersistenceError) UniqueViolation() bool {
	return e.Code == "23505" || errors.Is(e.Err, gorm.ErrDuplicatedKey)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	pe := &PersistenceError{Op: op, Err: err}
	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		pe.Code = pg.Code
		pe.Hint = pg.Hint
		pe.Detail = pg.Detail
	}
	return pe
}

// IsUniqueViolation unwraps err looking for a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.UniqueViolation()
}
