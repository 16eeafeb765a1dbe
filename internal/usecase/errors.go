package usecase

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrEmailExists indicates the email is already registered, deleted accounts included.
	ErrEmailExists = errors.New("email already registered")
	// ErrEmailNotFound indicates no account carries the supplied email.
	ErrEmailNotFound = errors.New("email not found")
	// ErrInvalidPassword indicates the supplied password does not match the stored hash.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidCurrentPassword indicates the current password check failed.
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
	// ErrAccountPending indicates the account awaits administrator approval.
	ErrAccountPending = errors.New("account pending approval")
	// ErrAccountSuspended indicates the account is suspended.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrAccountDeleted indicates the account is soft-deleted.
	ErrAccountDeleted = errors.New("account deleted")
	// ErrAccountNotDeleted indicates a restore was attempted on a live account.
	ErrAccountNotDeleted = errors.New("account is not deleted")
	// ErrAccountNotPending indicates an approval was attempted on a non-pending account.
	ErrAccountNotPending = errors.New("account is not pending approval")
	// ErrInvalidOrExpiredToken indicates the reset token is unknown, consumed, or expired.
	ErrInvalidOrExpiredToken = errors.New("reset token invalid or expired")
	// ErrPermissionDenied indicates the acting account lacks an active ADMIN role.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrPersistence indicates an I/O fault on the durable artifact. The raw
	// fault is logged at the operation boundary and never escapes to callers.
	ErrPersistence = errors.New("persistence failure")
)
