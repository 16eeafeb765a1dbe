package domain

import "time"

// Role enumerates the access roles an account can hold.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleEngineer    Role = "ENGINEER"
	RoleOwner       Role = "OWNER"
	RoleGeneralUser Role = "GENERAL_USER"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEngineer, RoleOwner, RoleGeneralUser:
		return true
	}
	return false
}

// AccountStatus enumerates possible account lifecycle states.
type AccountStatus string

const (
	AccountStatusActive          AccountStatus = "ACTIVE"
	AccountStatusPendingApproval AccountStatus = "PENDING_APPROVAL"
	AccountStatusSuspended       AccountStatus = "SUSPENDED"
	AccountStatusDeleted         AccountStatus = "DELETED"
)

// Account mirrors the persisted representation in the accounts collection.
// Emails are never recycled: uniqueness is enforced across every account,
// deleted ones included. ResetTokenHash holds the SHA-256 hash of the last
// issued reset token; the raw token is only ever returned to the caller.
type Account struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Email            string        `json:"email"`
	PasswordHash     string        `json:"passwordHash,omitempty"`
	Role             Role          `json:"role"`
	Status           AccountStatus `json:"status"`
	Phone            string        `json:"phone,omitempty"`
	AvatarRef        string        `json:"avatarRef,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	ResetTokenHash   string        `json:"resetTokenHash,omitempty"`
	ResetTokenExpiry *time.Time    `json:"resetTokenExpiry,omitempty"`
	DeletionExpiry   *time.Time    `json:"deletionExpiry,omitempty"`
}

func (a Account) clone() Account {
	out := a
	out.ResetTokenExpiry = cloneTimePtr(a.ResetTokenExpiry)
	out.DeletionExpiry = cloneTimePtr(a.DeletionExpiry)
	return out
}

// Sanitized returns a copy safe to hand back to callers.
func (a Account) Sanitized() Account {
	out := a.clone()
	out.PasswordHash = ""
	out.ResetTokenHash = ""
	return out
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}
