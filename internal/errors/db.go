package errors

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database errors to AppError instances:
// - pgx.ErrNoRows / sql.ErrNoRows chains → NotFound
// - context deadline → Timeout
// - integrity violations (unique, check, not-null) → Validation
// - anything else recognized as a Postgres error → Internal
//
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "database request timed out",
			Cause:   err,
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{
			Code:    ErrCodeNotFound,
			Message: "record not found",
			Cause:   err,
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return err
}

func mapPgError(pgErr *pgconn.PgError) *AppError {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation,
		pgerrcode.CheckViolation,
		pgerrcode.NotNullViolation,
		pgerrcode.ForeignKeyViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: pgErr.Message,
			Cause:   pgErr,
		}
	case pgerrcode.QueryCanceled:
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "database query canceled",
			Cause:   pgErr,
		}
	default:
		return &AppError{
			Code:    ErrCodeInternal,
			Message: "database error",
			Cause:   pgErr,
		}
	}
}
