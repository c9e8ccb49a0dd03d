package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned by Get lookups when no row matches.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEvent means a delivery event with the same provider event
	// id has already been recorded.
	ErrDuplicateEvent = errors.New("duplicate provider event id")

	// ErrDuplicateMessage means an outbound message with the same
	// correlation id already exists.
	ErrDuplicateMessage = errors.New("duplicate correlation id")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
