package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("table not found")
	ErrMalformedData  = errors.New("malformed data")
	ErrArgumentArity  = errors.New("keyword and argument list length mismatch")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternal       = errors.New("internal error")
	ErrIndexNotLoaded = errors.New("index not built")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// TableError reports an indexing failure. Table is the table whose data could
// not be used; Requested is the table whose index was being built when the
// failure surfaced (equal to Table for a direct failure).
type TableError struct {
	Table     string
	Requested string
	Err       error
}

func (e *TableError) Error() string {
	if e.Requested == "" || e.Requested == e.Table {
		return fmt.Sprintf("table %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("table %s (required by %s): %v", e.Table, e.Requested, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

// Table wraps err with the table that caused it.
func Table(table string, err error) *TableError {
	return &TableError{Table: table, Err: err}
}

// Is, As and Join re-export the standard helpers so callers only need one
// errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Join(errs ...error) error {
	return errors.Join(errs...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrIndexNotLoaded):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrMalformedData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
