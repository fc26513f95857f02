// Package pgerr classifies PostgreSQL driver errors into the sentinel errors
// the rest of the system understands. Services never inspect SQLSTATEs or
// other driver-specific fields; that happens only here, at the store-adapter
// boundary.
package pgerr

import (
	"errors"
	"fmt"

	"github.com/dkazakov/seqtrack/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation = "23505"
	codeUndefinedTable  = "42P01"
)

// Classify maps a driver error to a sentinel where one applies and otherwise
// wraps it as a generic db error.
func Classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, pgErr.ConstraintName)
		case codeUndefinedTable:
			return fmt.Errorf("%w: %s", common.ErrSchemaMissing, pgErr.TableName)
		}
	}
	return fmt.Errorf("db error: %w", err)
}
