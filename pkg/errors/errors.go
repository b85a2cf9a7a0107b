package errors

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCorpus      = errors.New("corpus is empty")
	ErrInvalidCorpus    = errors.New("invalid corpus")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoQueries        = errors.New("no queries contributed a score")
	ErrTrainerFailed    = errors.New("ranking trainer failed")
	ErrInternal         = errors.New("internal error")
)

// Process exit codes returned by ExitCode.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitNoData   = 3
	ExitExternal = 4
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// Is and As re-export the standard library helpers so callers importing this
// package under its own name do not need a second errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidCorpus):
		return ExitUsage
	case errors.Is(err, ErrEmptyCorpus), errors.Is(err, ErrNoQueries), errors.Is(err, ErrDocumentNotFound):
		return ExitNoData
	case errors.Is(err, ErrTrainerFailed):
		return ExitExternal
	default:
		return ExitFailure
	}
}
