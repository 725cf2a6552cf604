package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lankaconnect/support-service/internal/domain"
	"github.com/lankaconnect/support-service/internal/repository"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

// NewValidationProblems reports one or more input problems under details.problems.
func NewValidationProblems(problems ...string) error {
	return NewValidationError("validation failed", map[string]any{"problems": problems})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts errors from the domain, the stores, and fiber into
// a DomainError. Anything unrecognized becomes INTERNAL_ERROR.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return &DomainError{
			Code:       "VALIDATION_FAILED",
			Message:    "validation failed",
			HTTPStatus: http.StatusBadRequest,
			Details:    map[string]any{"problems": validation.Problems},
			Err:        err,
		}
	}
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return &DomainError{Code: "CONFLICT", Message: conflict.Reason, HTTPStatus: http.StatusConflict, Err: err}
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &DomainError{Code: "NOT_FOUND", Message: "ticket not found", HTTPStatus: http.StatusNotFound, Details: map[string]any{}, Err: err}
	case errors.Is(err, repository.ErrConcurrentUpdate):
		return &DomainError{
			Code:       "CONCURRENT_UPDATE",
			Message:    "ticket was modified by another request; reload and retry",
			HTTPStatus: http.StatusConflict,
			Err:        err,
		}
	case errors.Is(err, repository.ErrDuplicateReference):
		return &DomainError{Code: "CONFLICT", Message: "ticket reference already exists", HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &DomainError{Code: "TIMEOUT", Message: "request timed out", HTTPStatus: http.StatusGatewayTimeout, Err: err}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{Code: fiberCode(fiberErr.Code), Message: fiberErr.Message, HTTPStatus: fiberErr.Code}
	}

	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func fiberCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return "REQUEST_FAILED"
}
