// Package api defines the uniform response envelope returned to external
// callers. Transport wiring lives outside this module; route handlers are
// expected to marshal these envelopes as-is.
package api

import (
	"errors"

	"github.com/ameed2001/buildtrack/internal/usecase"
)

// Response is the envelope every operation returns.
type Response struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message,omitempty"`
	Data        any                 `json:"data,omitempty"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
}

// OK wraps a successful result.
func OK(data any, message string) Response {
	return Response{Success: true, Message: message, Data: data}
}

// Fail maps a service error onto a failure envelope. Persistence faults and
// unrecognized errors surface as a generic message; the raw fault stays in
// the server logs.
func Fail(err error) Response {
	return Response{Success: false, Message: messageFor(err)}
}

// FailFields wraps per-field validation failures.
func FailFields(fieldErrors map[string][]string) Response {
	return Response{
		Success:     false,
		Message:     "validation failed",
		FieldErrors: fieldErrors,
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		return "record not found"
	case errors.Is(err, usecase.ErrEmailExists):
		return "email is already registered"
	case errors.Is(err, usecase.ErrEmailNotFound):
		return "no account found for this email"
	case errors.Is(err, usecase.ErrInvalidPassword):
		return "incorrect email or password"
	case errors.Is(err, usecase.ErrInvalidCurrentPassword):
		return "current password is incorrect"
	case errors.Is(err, usecase.ErrAccountPending):
		return "account is awaiting administrator approval"
	case errors.Is(err, usecase.ErrAccountSuspended):
		return "account is suspended"
	case errors.Is(err, usecase.ErrAccountDeleted):
		return "account has been deleted"
	case errors.Is(err, usecase.ErrAccountNotDeleted):
		return "account is not deleted"
	case errors.Is(err, usecase.ErrAccountNotPending):
		return "account is not pending approval"
	case errors.Is(err, usecase.ErrInvalidOrExpiredToken):
		return "reset token is invalid or has expired"
	case errors.Is(err, usecase.ErrPermissionDenied):
		return "permission denied"
	case errors.Is(err, usecase.ErrPersistence):
		return "an internal error occurred, please try again"
	default:
		return "an internal error occurred, please try again"
	}
}
