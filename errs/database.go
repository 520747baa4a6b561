package errs

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrDatabaseQuery      = errors.New("database query failed")
	ErrDatabaseConnection = errors.New("database connection failed")
)

// NewDatabaseError maps a gorm or pgx failure to a status. It expects the
// connection to be opened with TranslateError so unique violations arrive as
// gorm.ErrDuplicatedKey.
func NewDatabaseError(operation, entity string, cause error) *ApiErr {
	e := &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrDatabaseQuery,
		Details:    fmt.Sprintf("Failed to %s %s", operation, entity),
		Cause:      cause,
	}

	var connErr *pgconn.ConnectError
	switch {
	case cause == nil:
	case errors.Is(cause, gorm.ErrDuplicatedKey):
		e.StatusCode = http.StatusConflict
		e.err = fmt.Errorf("%s %w", entity, ErrAlreadyExists)
	case errors.Is(cause, gorm.ErrRecordNotFound):
		e.StatusCode = http.StatusNotFound
		e.err = fmt.Errorf("%s %w", entity, ErrNotFound)
	case errors.As(cause, &connErr), errors.Is(cause, driver.ErrBadConn), errors.Is(cause, context.DeadlineExceeded):
		e.StatusCode = http.StatusServiceUnavailable
		e.err = ErrDatabaseConnection
		e.Details = "Unable to connect to database"
	}
	return e
}

func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabaseQuery) || errors.Is(err, ErrDatabaseConnection)
}
