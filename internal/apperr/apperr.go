// Package apperr declares the error kinds shared by services, storage and handlers.
// Callers wrap them with fmt.Errorf("%s: ...: %w", op, ...) and test with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnknownEquipment  = errors.New("unknown equipment")
	ErrNoOpenOrder       = errors.New("no open order")
	ErrScopeMismatch     = errors.New("scope mismatch")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
)

type kind struct {
	err    error
	code   string
	status int
}

var kinds = []kind{
	{ErrValidation, "validation_error", http.StatusBadRequest},
	{ErrScopeMismatch, "scope_mismatch", http.StatusBadRequest},
	{ErrUnauthorized, "unauthorized", http.StatusUnauthorized},
	{ErrPermissionDenied, "permission_denied", http.StatusForbidden},
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrUnknownEquipment, "unknown_equipment", http.StatusNotFound},
	{ErrInvalidTransition, "invalid_state_transition", http.StatusConflict},
	{ErrNoOpenOrder, "no_open_order", http.StatusConflict},
	{ErrConflict, "conflict", http.StatusConflict},
}

// HTTPStatus maps an error to the response status; unknown errors are 500.
func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// Code returns the machine-readable classification of err.
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal_error"
}
