package sessionsql

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tourista/session-coordinator/internal/serviceerr"
)

const (
	pgUniqueViolation   = "23505"
	pgUndefinedTable    = "42P01"
	pgStringDataTooLong = "22001"
)

// handlePgError maps the postgres errors callers can act on to service
// errors. ok is false for any other error.
func handlePgError(err error) (_ error, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err, false
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return serviceerr.ErrConflict, true
	case pgStringDataTooLong:
		return errors.Join(serviceerr.ErrInvalidRequest, err), true
	case pgUndefinedTable:
		return errors.Join(serviceerr.ErrTemporarilyUnavailable, errors.New("session_cookies table missing; run the migrate command"), err), true
	}

	return err, false
}
