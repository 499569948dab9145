package database

import (
	"errors"
	"fmt"

	"github.com/fluxbase-eu/queryfilter/internal/query"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes mapped onto query errors
const (
	ErrCodeUndefinedColumn           = pgerrcode.UndefinedColumn
	ErrCodeUndefinedTable            = pgerrcode.UndefinedTable
	ErrCodeUndefinedFunction         = pgerrcode.UndefinedFunction
	ErrCodeDatatypeMismatch          = pgerrcode.DatatypeMismatch
	ErrCodeInvalidTextRepresentation = pgerrcode.InvalidTextRepresentation
	ErrCodeInvalidDatetimeFormat     = pgerrcode.InvalidDatetimeFormat
	ErrCodeDatetimeFieldOverflow     = pgerrcode.DatetimeFieldOverflow
)

// GetErrorCode returns the SQLSTATE of a PostgreSQL error, or "" for
// anything else
func GetErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// ClassifyError wraps PostgreSQL errors caused by the request with the
// matching query error so callers can tell client mistakes from failures
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case ErrCodeUndefinedColumn:
		return fmt.Errorf("%w: %s", query.ErrUnknownField, pgErr.Message)
	case ErrCodeUndefinedTable:
		return fmt.Errorf("%w: %s", query.ErrUnknownRelation, pgErr.Message)
	case ErrCodeUndefinedFunction, ErrCodeDatatypeMismatch, ErrCodeInvalidTextRepresentation,
		ErrCodeInvalidDatetimeFormat, ErrCodeDatetimeFieldOverflow:
		return fmt.Errorf("%w: %s", query.ErrTypeMismatch, pgErr.Message)
	default:
		return err
	}
}
