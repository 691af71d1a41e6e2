package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicdesk/clinic/internal/platform/apperr"
)

// SQLSTATE codes the repositories translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
)

// MapError translates driver errors into apperr categories. resource and key
// describe the row being read or written and only feed the message.
func MapError(err error, resource string, key interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource, key)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return apperr.Conflict(fmt.Sprintf("%s %v already exists", resource, key), err)
	case codeForeignKeyViolation:
		return apperr.Conflict(fmt.Sprintf("%s %v violates a reference (%s)", resource, key, pgErr.ConstraintName), err)
	case codeCheckViolation, codeNotNullViolation:
		return apperr.Validation("%s %v rejected by %s: %s", resource, key, pgErr.ConstraintName, pgErr.Message)
	}
	return err
}
