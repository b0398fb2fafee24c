package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsUniqueViolation checks if the error is a PostgreSQL unique constraint violation (code 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// isRetryable reports whether a failed write may be attempted again. A timed-out
// insert may still have committed; the retry then surfaces as a unique violation.
func isRetryable(err error) bool {
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}
