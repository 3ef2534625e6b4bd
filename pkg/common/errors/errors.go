package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yago-naga/yago3-sub001/internal/manager"
	"github.com/yago-naga/yago3-sub001/pkg/archive"
	"github.com/yago-naga/yago3-sub001/pkg/datalog"
	"github.com/yago-naga/yago3-sub001/pkg/deduce"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/rules"
	"github.com/yago-naga/yago3-sub001/pkg/stage"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

// Common sentinel errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
)

// AppError represents an application-specific error with an HTTP status code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

var (
	notFound = []error{
		ErrNotFound,
		manager.ErrRunNotFound,
		manager.ErrNotArchived,
		theme.ErrNotAvailable,
		theme.ErrUnknownTheme,
		archive.ErrUnknownTheme,
	}
	invalid = []error{
		ErrInvalidInput,
		datalog.ErrSyntax,
		datalog.ErrUnsupported,
		rules.ErrMalformedRule,
		rules.ErrMalformedTemplate,
		fact.ErrMalformedLine,
		deduce.ErrInvalidConfig,
		stage.ErrInvalidStage,
		stage.ErrInvalidPipeline,
	}
)

// MapError maps a common error to an AppError with an appropriate HTTP status code.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	// Check for existing AppError
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	for _, target := range invalid {
		if errors.Is(err, target) {
			return NewAppError(http.StatusBadRequest, "Invalid request", err)
		}
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			return NewAppError(http.StatusNotFound, "Resource not found", err)
		}
	}

	// Default to internal server error
	return NewAppError(http.StatusInternalServerError, "Internal server error", err)
}
