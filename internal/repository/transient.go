package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsTransient reports whether err is a store conflict worth a single
// immediate retry (serialization failure or deadlock).
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
