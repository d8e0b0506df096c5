package store

import (
	"errors"

	"github.com/lib/pq"
	"github.com/volunteer-hub/apiserver/internal/apperr"
)

// Errors returned by repositories. They alias the shared taxonomy so
// callers can match with errors.Is without importing this package.
var (
	ErrNotFound  = apperr.ErrNotFound
	ErrConflict  = apperr.ErrConflict
	ErrDuplicate = apperr.ErrDuplicate
)

const pqUniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrDuplicate
	}
	return err
}
