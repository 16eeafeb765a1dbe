package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ameed2001/buildtrack/internal/core/domain"
	"github.com/ameed2001/buildtrack/internal/core/port"
	"github.com/ameed2001/buildtrack/internal/infra/config"
	"github.com/ameed2001/buildtrack/internal/infra/logger"
	"github.com/ameed2001/buildtrack/internal/infra/security"
	"github.com/ameed2001/buildtrack/internal/infra/telemetry"
)

const resetTokenBytes = 32

// AccountService handles registration, authentication, and account lifecycle.
type AccountService struct {
	cfg      *config.AppConfig
	store    port.SnapshotStore
	audit    *AuditService
	sessions *security.SessionManager
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time
}

// NewAccountService constructs an AccountService.
func NewAccountService(cfg *config.AppConfig, store port.SnapshotStore, audit *AuditService, sessions *security.SessionManager, log *zap.Logger, metrics *telemetry.Metrics) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		cfg:      cfg,
		store:    store,
		audit:    audit,
		sessions: sessions,
		logger:   log,
		metrics:  metrics,
		now:      time.Now,
	}
}

// WithClock overrides the clock, primarily for tests.
func (s *AccountService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// RegisterInput captures the payload for account creation. Status may only
// request PENDING_APPROVAL (engineer self-signup); anything else creates the
// account ACTIVE.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Phone    string
	Status   domain.AccountStatus
}

// Register creates an account. Email collisions are case-sensitive and
// checked against every account, deleted ones included: emails are never
// recycled.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (acct *domain.Account, err error) {
	defer func() { s.metrics.Operation("account.register", err) }()

	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if input.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if !input.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", input.Role)
	}

	if score := security.PasswordScore(input.Password); score < s.cfg.Security.MinPasswordScore {
		s.logger.Warn("weak password accepted at registration",
			zap.String("email", logger.MaskEmail(email)), zap.Int("score", score))
	}

	hash, err := security.HashPassword(input.Password, s.costFor(input.Role))
	if err != nil {
		return nil, err
	}

	status := domain.AccountStatusActive
	if input.Status == domain.AccountStatusPendingApproval {
		status = domain.AccountStatusPendingApproval
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Status:       status,
		Phone:        strings.TrimSpace(input.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.mutate(ctx, func(snap *domain.Snapshot) error {
		for i := range snap.Accounts {
			if snap.Accounts[i].Email == email {
				return ErrEmailExists
			}
		}
		snap.Accounts = append(snap.Accounts, account)
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "account.register", domain.LogLevelWarning,
			fmt.Sprintf("registration rejected for %s: %v", logger.MaskEmail(email), err), email)
		return nil, err
	}

	s.audit.record(ctx, "account.register", domain.LogLevelSuccess,
		fmt.Sprintf("account registered for %s with role %s", logger.MaskEmail(email), account.Role), email)

	sanitized := account.Sanitized()
	return &sanitized, nil
}

// Login authenticates by email and password and issues a session token.
func (s *AccountService) Login(ctx context.Context, email, password string) (token string, acct *domain.Account, err error) {
	defer func() { s.metrics.Operation("account.login", err) }()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", nil, ErrInvalidPassword
	}

	snap, err := s.load(ctx, false)
	if err != nil {
		return "", nil, err
	}

	account := findByEmail(snap, email)
	if account == nil {
		s.audit.record(ctx, "account.login", domain.LogLevelWarning,
			fmt.Sprintf("login failed for %s: unknown email", logger.MaskEmail(email)), email)
		return "", nil, ErrEmailNotFound
	}

	if !security.VerifyPassword(password, account.PasswordHash) {
		s.audit.record(ctx, "account.login", domain.LogLevelWarning,
			fmt.Sprintf("login failed for %s: password mismatch", logger.MaskEmail(email)), email)
		return "", nil, ErrInvalidPassword
	}

	if err := statusError(account.Status); err != nil {
		s.audit.record(ctx, "account.login", domain.LogLevelWarning,
			fmt.Sprintf("login blocked for %s: %v", logger.MaskEmail(email), err), email)
		return "", nil, err
	}

	token, err = s.sessions.Issue(account.ID, string(account.Role))
	if err != nil {
		return "", nil, fmt.Errorf("issue session token: %w", err)
	}

	s.audit.record(ctx, "account.login", domain.LogLevelSuccess,
		fmt.Sprintf("login succeeded for %s", logger.MaskEmail(email)), email)

	sanitized := account.Sanitized()
	return token, &sanitized, nil
}

// ResolveSession validates a session token and re-resolves the account from
// the store; the token's claims are never trusted on their own.
func (s *AccountService) ResolveSession(ctx context.Context, token string) (*domain.Account, error) {
	claims, err := s.sessions.Parse(token)
	if err != nil {
		return nil, err
	}

	snap, err := s.load(ctx, false)
	if err != nil {
		return nil, err
	}

	account := findByID(snap, claims.AccountID)
	if account == nil {
		return nil, ErrNotFound
	}
	if err := statusError(account.Status); err != nil {
		return nil, err
	}

	sanitized := account.Sanitized()
	return &sanitized, nil
}

// UpdateProfileInput carries a partial profile update. Nil fields are left
// untouched. There is no password field: this path can never set a hash.
type UpdateProfileInput struct {
	ID        string
	Name      *string
	Email     *string
	Phone     *string
	AvatarRef *string
	Role      *domain.Role
	// ClaimedAdminID identifies the administrator authorizing a role
	// escalation to ADMIN. It is re-fetched and re-verified, never trusted.
	ClaimedAdminID string
}

// UpdateProfile applies a partial update to an account.
func (s *AccountService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (acct *domain.Account, err error) {
	defer func() { s.metrics.Operation("account.update", err) }()

	var updated domain.Account
	err = s.mutate(ctx, func(snap *domain.Snapshot) error {
		account := findByID(snap, input.ID)
		if account == nil {
			return ErrNotFound
		}

		if input.Email != nil {
			email := strings.TrimSpace(*input.Email)
			if email == "" {
				return fmt.Errorf("email cannot be empty")
			}
			for i := range snap.Accounts {
				if snap.Accounts[i].Email == email && snap.Accounts[i].ID != account.ID {
					return ErrEmailExists
				}
			}
			account.Email = email
		}

		if input.Role != nil && *input.Role != account.Role {
			if !input.Role.Valid() {
				return fmt.Errorf("unknown role %q", *input.Role)
			}
			if *input.Role == domain.RoleAdmin {
				if _, err := resolveActiveAdmin(snap, input.ClaimedAdminID); err != nil {
					return err
				}
			}
			account.Role = *input.Role
		}

		if input.Name != nil {
			if strings.TrimSpace(*input.Name) == "" {
				return fmt.Errorf("name cannot be empty")
			}
			account.Name = strings.TrimSpace(*input.Name)
		}
		if input.Phone != nil {
			account.Phone = strings.TrimSpace(*input.Phone)
		}
		if input.AvatarRef != nil {
			account.AvatarRef = *input.AvatarRef
		}

		account.UpdatedAt = s.now().UTC()
		updated = account.Sanitized()
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "account.update", domain.LogLevelWarning,
			fmt.Sprintf("profile update rejected for %s: %v", input.ID, err), input.ID)
		return nil, err
	}

	s.audit.record(ctx, "account.update", domain.LogLevelInfo,
		fmt.Sprintf("profile updated for %s", logger.MaskEmail(updated.Email)), updated.Email)

	return &updated, nil
}

// ChangePassword rehashes the password after verifying the current one.
func (s *AccountService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) (err error) {
	defer func() { s.metrics.Operation("account.password_change", err) }()

	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}

	var email string
	err = s.mutate(ctx, func(snap *domain.Snapshot) error {
		account := findByID(snap, id)
		if account == nil {
			return ErrNotFound
		}
		if !security.VerifyPassword(currentPassword, account.PasswordHash) {
			return ErrInvalidCurrentPassword
		}

		hash, err := security.HashPassword(newPassword, s.costFor(account.Role))
		if err != nil {
			return err
		}

		account.PasswordHash = hash
		account.UpdatedAt = s.now().UTC()
		email = account.Email
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "account.password_change", domain.LogLevelWarning,
			fmt.Sprintf("password change rejected for %s: %v", id, err), id)
		return err
	}

	s.audit.record(ctx, "account.password_change", domain.LogLevelSuccess,
		fmt.Sprintf("password changed for %s", logger.MaskEmail(email)), email)

	return nil
}

// AdminResetPassword sets a new password without the current one. The acting
// administrator is re-resolved and re-verified from the store.
func (s *AccountService) AdminResetPassword(ctx context.Context, adminID, targetID, newPassword string) (err error) {
	defer func() { s.metrics.Operation("account.password_admin_reset", err) }()

	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}

	var adminEmail, targetEmail string
	err = s.mutate(ctx, func(snap *domain.Snapshot) error {
		admin, err := resolveActiveAdmin(snap, adminID)
		if err != nil {
			return err
		}
		target := findByID(snap, targetID)
		if target == nil {
			return ErrNotFound
		}

		hash, err := security.HashPassword(newPassword, s.costFor(target.Role))
		if err != nil {
			return err
		}

		target.PasswordHash = hash
		target.UpdatedAt = s.now().UTC()
		adminEmail = admin.Email
		targetEmail = target.Email
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "account.password_admin_reset", domain.LogLevelWarning,
			fmt.Sprintf("admin password reset rejected for %s: %v", targetID, err), adminID)
		return err
	}

	s.audit.record(ctx, "account.password_admin_reset", domain.LogLevelSuccess,
		fmt.Sprintf("password for %s reset by administrator %s",
			logger.MaskEmail(targetEmail), logger.MaskEmail(adminEmail)), adminEmail)

	return nil
}

// Approve moves a PENDING_APPROVAL account to ACTIVE.
func (s *AccountService) Approve(ctx context.Context, adminID, targetID string) (err error) {
	defer func() { s.metrics.Operation("account.approve", err) }()

	var adminEmail, targetEmail string
	err = s.mutate(ctx, func(snap *domain.Snapshot) error {
		admin, err := resolveActiveAdmin(snap, adminID)
		if err != nil {
			return err
		}
		target := findByID(snap, targetID)
		if target == nil {
			return ErrNotFound
		}
		if target.Status != domain.AccountStatusPendingApproval {
			return ErrAccountNotPending
		}

		target.Status = domain.AccountStatusActive
		target.UpdatedAt = s.now().UTC()
		adminEmail = admin.Email
		targetEmail = target.Email
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "account.approve", domain.LogLevelWarning,
			fmt.Sprintf("approval rejected for %s: %v", targetID, err), adminID)
		return err
	}

	s.audit.record(ctx, "account.approve", domain.LogLevelSuccess,
		fmt.Sprintf("account %s approved by %s",
			logger.MaskEmail(targetEmail), logger.MaskEmail(adminEmail)), adminEmail)

	return nil
}

// ToggleSuspend flips an account between ACTIVE and SUSPENDED. Administrator
// accounts cannot be suspended.
func (s *AccountService) ToggleSuspend(ctx context.Context, adminID, targetID string) (err error) {
	defer func() { s.metrics.Operation("account.suspend_toggle", err) }()

	var adminEmail, targetEmail string
	var newStatus domain.AccountStatus
	err = s.mutate(ctx, func(snap *domain.Snapshot) error {
		admin, err := resolveActiveAdmin(snap, adminID)
		if err != nil {
			return err
		}
		target := findByID(snap, targetID)
		if target == nil {
			return ErrNotFound
		}
		if target.Role == domain.RoleAdmin {
			return ErrPermissionDenied
		}

		switch target.Status {
		case domain.AccountStatusActive:
			target.Status = domain.AccountStatusSuspended
		case domain.AccountStatusSuspended:
			target.Status = domain.AccountStatusActive
		case domain.AccountStatusPendingApproval:
			return ErrAccountPending
		case domain.AccountStatusDeleted:
			return ErrAccountDeleted
		}

		target.UpdatedAt = s.now().UTC()
		adminEmail = admin.Email
		targetEmail = target.Email
		newStatus = target.Status
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "account.suspend_toggle", domain.LogLevelWarning,
			fmt.Sprintf("suspend toggle rejected for %s: %v", targetID, err), adminID)
		return err
	}

	s.audit.record(ctx, "account.suspend_toggle", domain.LogLevelInfo,
		fmt.Sprintf("account %s set to %s by %s",
			logger.MaskEmail(targetEmail), newStatus, logger.MaskEmail(adminEmail)), adminEmail)

	return nil
}

// SoftDelete marks the account DELETED and stamps the retention expiry.
// Nothing purges expired soft-deletes automatically.
func (s *AccountService) SoftDelete(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.Operation("account.soft_delete", err) }()

	var email string
	err = s.mutate(ctx, func(snap *domain.Snapshot) error {
		account := findByID(snap, id)
		if account == nil {
			return ErrNotFound
		}
		if account.Status == domain.AccountStatusDeleted {
			return ErrAccountDeleted
		}

		now := s.now().UTC()
		expiry := now.Add(s.cfg.Security.DeletionRetention)
		account.Status = domain.AccountStatusDeleted
		account.DeletionExpiry = &expiry
		account.UpdatedAt = now
		email = account.Email
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "account.soft_delete", domain.LogLevelWarning,
			fmt.Sprintf("soft delete rejected for %s: %v", id, err), id)
		return err
	}

	s.audit.record(ctx, "account.soft_delete", domain.LogLevelInfo,
		fmt.Sprintf("account %s soft-deleted", logger.MaskEmail(email)), email)

	return nil
}

// Restore brings a DELETED account back to ACTIVE and clears its expiry.
func (s *AccountService) Restore(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.Operation("account.restore", err) }()

	var email string
	err = s.mutate(ctx, func(snap *domain.Snapshot) error {
		account := findByID(snap, id)
		if account == nil {
			return ErrNotFound
		}
		if account.Status != domain.AccountStatusDeleted {
			return ErrAccountNotDeleted
		}

		account.Status = domain.AccountStatusActive
		account.DeletionExpiry = nil
		account.UpdatedAt = s.now().UTC()
		email = account.Email
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "account.restore", domain.LogLevelWarning,
			fmt.Sprintf("restore rejected for %s: %v", id, err), id)
		return err
	}

	s.audit.record(ctx, "account.restore", domain.LogLevelSuccess,
		fmt.Sprintf("account %s restored", logger.MaskEmail(email)), email)

	return nil
}

// CreateResetToken issues a single-use reset token, overwriting any prior
// unredeemed token for the account. The raw token is returned once; only its
// hash is persisted.
func (s *AccountService) CreateResetToken(ctx context.Context, email string) (token string, expiresAt time.Time, err error) {
	defer func() { s.metrics.Operation("account.reset_token_create", err) }()

	email = strings.TrimSpace(email)
	if email == "" {
		return "", time.Time{}, ErrEmailNotFound
	}

	raw, err := security.GenerateSecureToken(resetTokenBytes)
	if err != nil {
		return "", time.Time{}, err
	}
	hash := security.HashToken(raw)
	expiry := s.now().UTC().Add(s.cfg.Security.ResetTokenTTL)

	err = s.mutate(ctx, func(snap *domain.Snapshot) error {
		account := findByEmail(snap, email)
		if account == nil {
			return ErrEmailNotFound
		}
		account.ResetTokenHash = hash
		account.ResetTokenExpiry = &expiry
		account.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "account.reset_token_create", domain.LogLevelWarning,
			fmt.Sprintf("reset token refused for %s: %v", logger.MaskEmail(email), err), email)
		return "", time.Time{}, err
	}

	s.audit.record(ctx, "account.reset_token_create", domain.LogLevelInfo,
		fmt.Sprintf("reset token issued for %s", logger.MaskEmail(email)), email)

	return raw, expiry, nil
}

// RedeemResetToken consumes a reset token and sets a new password. An expired
// token fails and is cleared as a side effect, forcing re-issuance.
func (s *AccountService) RedeemResetToken(ctx context.Context, token, newPassword string) (err error) {
	defer func() { s.metrics.Operation("account.reset_token_redeem", err) }()

	if token == "" || newPassword == "" {
		return ErrInvalidOrExpiredToken
	}
	hash := security.HashToken(token)

	var email string
	var expired bool
	err = s.mutate(ctx, func(snap *domain.Snapshot) error {
		account := findByResetTokenHash(snap, hash)
		if account == nil {
			return ErrInvalidOrExpiredToken
		}
		email = account.Email

		if account.ResetTokenExpiry == nil || s.now().UTC().After(*account.ResetTokenExpiry) {
			// Clear the token even on the failure path; the commit below
			// still happens so a retry with the same token cannot succeed.
			account.ResetTokenHash = ""
			account.ResetTokenExpiry = nil
			account.UpdatedAt = s.now().UTC()
			expired = true
			return nil
		}

		newHash, err := security.HashPassword(newPassword, s.costFor(account.Role))
		if err != nil {
			return err
		}

		account.PasswordHash = newHash
		account.ResetTokenHash = ""
		account.ResetTokenExpiry = nil
		account.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		s.audit.record(ctx, "account.reset_token_redeem", domain.LogLevelWarning,
			fmt.Sprintf("reset token redemption failed: %v", err), email)
		return err
	}
	if expired {
		s.audit.record(ctx, "account.reset_token_redeem", domain.LogLevelWarning,
			fmt.Sprintf("expired reset token cleared for %s", logger.MaskEmail(email)), email)
		err = ErrInvalidOrExpiredToken
		return err
	}

	s.audit.record(ctx, "account.reset_token_redeem", domain.LogLevelSuccess,
		fmt.Sprintf("password reset via token for %s", logger.MaskEmail(email)), email)

	return nil
}

// GetByID returns a sanitized account.
func (s *AccountService) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	snap, err := s.load(ctx, false)
	if err != nil {
		return nil, err
	}
	account := findByID(snap, id)
	if account == nil {
		return nil, ErrNotFound
	}
	sanitized := account.Sanitized()
	return &sanitized, nil
}

func (s *AccountService) costFor(role domain.Role) int {
	if role == domain.RoleAdmin {
		if s.cfg.Security.BcryptCostPrivileged > 0 {
			return s.cfg.Security.BcryptCostPrivileged
		}
		return security.PrivilegedCost
	}
	if s.cfg.Security.BcryptCost > 0 {
		return s.cfg.Security.BcryptCost
	}
	return security.DefaultCost
}

func (s *AccountService) load(ctx context.Context, force bool) (*domain.Snapshot, error) {
	return loadStore(ctx, s.store, s.logger, force)
}

func (s *AccountService) mutate(ctx context.Context, fn func(*domain.Snapshot) error) error {
	return mutateStore(ctx, s.store, s.logger, fn)
}

func statusError(status domain.AccountStatus) error {
	switch status {
	case domain.AccountStatusPendingApproval:
		return ErrAccountPending
	case domain.AccountStatusSuspended:
		return ErrAccountSuspended
	case domain.AccountStatusDeleted:
		return ErrAccountDeleted
	}
	return nil
}

func resolveActiveAdmin(snap *domain.Snapshot, adminID string) (*domain.Account, error) {
	admin := findByID(snap, adminID)
	if admin == nil || admin.Role != domain.RoleAdmin || admin.Status != domain.AccountStatusActive {
		return nil, ErrPermissionDenied
	}
	return admin, nil
}

func findByID(snap *domain.Snapshot, id string) *domain.Account {
	for i := range snap.Accounts {
		if snap.Accounts[i].ID == id {
			return &snap.Accounts[i]
		}
	}
	return nil
}

func findByEmail(snap *domain.Snapshot, email string) *domain.Account {
	for i := range snap.Accounts {
		if snap.Accounts[i].Email == email {
			return &snap.Accounts[i]
		}
	}
	return nil
}

func findByResetTokenHash(snap *domain.Snapshot, hash string) *domain.Account {
	for i := range snap.Accounts {
		if snap.Accounts[i].ResetTokenHash != "" && snap.Accounts[i].ResetTokenHash == hash {
			return &snap.Accounts[i]
		}
	}
	return nil
}
