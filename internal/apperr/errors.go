// Package apperr holds the error classes shared by services and HTTP handlers.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUpstreamGeneration = errors.New("upstream generation failed")
	ErrUpstreamTimeout    = &timeoutError{}
	ErrStoreRead          = errors.New("store read failed")
	ErrStoreWrite         = errors.New("store write failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidAppearance  = errors.New("invalid appearance selection")
	ErrValidation         = errors.New("validation failed")
)

// GenericMessage is returned to clients for every failure that is not the caller's fault.
const GenericMessage = "An error occurred when processing your request."

// timeoutError is an upstream generation error raised when a call exceeds its deadline.
type timeoutError struct{}

func (*timeoutError) Error() string { return "upstream generation timed out" }

func (*timeoutError) Is(target error) bool {
	return target == ErrUpstreamGeneration
}

// Upstream wraps err as a generation failure, promoting deadline errors to ErrUpstreamTimeout.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUpstreamGeneration, err)
}

// Validation builds an ErrValidation with a human readable reason.
func Validation(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

// Status maps an error onto the HTTP status and client-facing message.
func Status(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, GenericMessage
	default:
		return http.StatusInternalServerError, GenericMessage
	}
}

func validationMessage(err error) string {
	msg := err.Error()
	prefix := ErrValidation.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
