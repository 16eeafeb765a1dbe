package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ameed2001/buildtrack/internal/core/domain"
	"github.com/ameed2001/buildtrack/internal/infra/config"
	"github.com/ameed2001/buildtrack/internal/infra/security"
	"github.com/ameed2001/buildtrack/internal/repository/filestore"
)

// testEnv wires the services over a real store in a temp dir with a shared,
// manually advanced clock.
type testEnv struct {
	cfg      *config.AppConfig
	store    *filestore.Store
	sessions *security.SessionManager
	audit    *AuditService
	accounts *AccountService
	projects *ProjectService
	reports  *CostReportService
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.AppConfig{
		Security: config.SecuritySettings{
			BcryptCost:           bcrypt.MinCost,
			BcryptCostPrivileged: bcrypt.MinCost,
			ResetTokenTTL:        time.Hour,
			DeletionRetention:    30 * 24 * time.Hour,
			MinPasswordScore:     0,
		},
		Session: config.SessionSettings{TTL: time.Hour},
	}

	env := &testEnv{
		cfg:   cfg,
		store: filestore.New(filepath.Join(t.TempDir(), "buildtrack.json"), 0, nil),
		now:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }

	env.sessions = security.NewSessionManager("test-secret", "buildtrack", cfg.Session.TTL)
	env.sessions.WithClock(clock)

	env.audit = NewAuditService(env.store, nil, nil)
	env.audit.WithClock(clock)

	env.accounts = NewAccountService(cfg, env.store, env.audit, env.sessions, nil, nil)
	env.accounts.WithClock(clock)

	env.projects = NewProjectService(env.store, env.audit, nil, nil)
	env.projects.WithClock(clock)

	env.reports = NewCostReportService(env.store, env.audit, nil, nil)
	env.reports.WithClock(clock)

	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func mustRegister(t *testing.T, env *testEnv, name, email, password string, role domain.Role, status domain.AccountStatus) *domain.Account {
	t.Helper()
	acct, err := env.accounts.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
		Status:   status,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return acct
}

func TestAccountService_RegisterThenLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered := mustRegister(t, env, "Ali", "ali@example.com", "correct horse battery", domain.RoleEngineer, "")
	if registered.Status != domain.AccountStatusActive {
		t.Fatalf("expected ACTIVE status, got %s", registered.Status)
	}
	if registered.PasswordHash != "" {
		t.Fatalf("register must not return the password hash")
	}

	token, acct, err := env.accounts.Login(ctx, "ali@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a session token")
	}
	if acct.ID != registered.ID {
		t.Fatalf("login resolved account %s, registered %s", acct.ID, registered.ID)
	}
	if acct.PasswordHash != "" {
		t.Fatalf("login must not return the password hash")
	}

	if _, _, err := env.accounts.Login(ctx, "ali@example.com", "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if _, _, err := env.accounts.Login(ctx, "nobody@example.com", "whatever"); !errors.Is(err, ErrEmailNotFound) {
		t.Fatalf("expected ErrEmailNotFound, got %v", err)
	}
}

func TestAccountService_RegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mustRegister(t, env, "Ali", "ali@example.com", "pw-one", domain.RoleEngineer, "")

	_, err := env.accounts.Register(ctx, RegisterInput{
		Name:     "Other Ali",
		Email:    "ali@example.com",
		Password: "pw-two",
		Role:     domain.RoleOwner,
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestAccountService_RegisterDuplicateEmailEvenWhenDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct := mustRegister(t, env, "Ali", "ali@example.com", "pw-one", domain.RoleEngineer, "")
	if err := env.accounts.SoftDelete(ctx, acct.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, err := env.accounts.Register(ctx, RegisterInput{
		Name:     "New Ali",
		Email:    "ali@example.com",
		Password: "pw-two",
		Role:     domain.RoleEngineer,
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("deleted accounts still hold their email, got %v", err)
	}
}

func TestAccountService_LoginBlockedByStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := mustRegister(t, env, "Admin", "admin@example.com", "admin-pw", domain.RoleAdmin, "")

	pending := mustRegister(t, env, "Pending", "pending@example.com", "pw", domain.RoleEngineer, domain.AccountStatusPendingApproval)
	if _, _, err := env.accounts.Login(ctx, pending.Email, "pw"); !errors.Is(err, ErrAccountPending) {
		t.Fatalf("expected ErrAccountPending, got %v", err)
	}

	suspended := mustRegister(t, env, "Suspended", "suspended@example.com", "pw", domain.RoleOwner, "")
	if err := env.accounts.ToggleSuspend(ctx, admin.ID, suspended.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, _, err := env.accounts.Login(ctx, suspended.Email, "pw"); !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("expected ErrAccountSuspended, got %v", err)
	}

	deleted := mustRegister(t, env, "Deleted", "deleted@example.com", "pw", domain.RoleEngineer, "")
	if err := env.accounts.SoftDelete(ctx, deleted.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, _, err := env.accounts.Login(ctx, deleted.Email, "pw"); !errors.Is(err, ErrAccountDeleted) {
		t.Fatalf("expected ErrAccountDeleted, got %v", err)
	}

	// Unknown email wins over a bad password for a known one.
	if _, _, err := env.accounts.Login(ctx, "ghost@example.com", "pw"); !errors.Is(err, ErrEmailNotFound) {
		t.Fatalf("expected ErrEmailNotFound, got %v", err)
	}
}

func TestAccountService_ResolveSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered := mustRegister(t, env, "Ali", "ali@example.com", "pw", domain.RoleEngineer, "")
	token, _, err := env.accounts.Login(ctx, "ali@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	acct, err := env.accounts.ResolveSession(ctx, token)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if acct.ID != registered.ID {
		t.Fatalf("session resolved account %s, want %s", acct.ID, registered.ID)
	}

	if _, err := env.accounts.ResolveSession(ctx, "not-a-token"); !errors.Is(err, security.ErrInvalidSessionToken) {
		t.Fatalf("expected ErrInvalidSessionToken, got %v", err)
	}

	env.advance(2 * time.Hour)
	if _, err := env.accounts.ResolveSession(ctx, token); !errors.Is(err, security.ErrExpiredSessionToken) {
		t.Fatalf("expected ErrExpiredSessionToken, got %v", err)
	}
}

func TestAccountService_SessionStopsResolvingAfterSuspend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := mustRegister(t, env, "Admin", "admin@example.com", "admin-pw", domain.RoleAdmin, "")
	acct := mustRegister(t, env, "Ali", "ali@example.com", "pw", domain.RoleEngineer, "")

	token, _, err := env.accounts.Login(ctx, acct.Email, "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := env.accounts.ToggleSuspend(ctx, admin.ID, acct.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	if _, err := env.accounts.ResolveSession(ctx, token); !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("expected ErrAccountSuspended for a still-valid token, got %v", err)
	}
}

func TestAccountService_SoftDeleteAndRestore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct := mustRegister(t, env, "Ali", "ali@example.com", "pw", domain.RoleEngineer, "")

	if err := env.accounts.Restore(ctx, acct.ID); !errors.Is(err, ErrAccountNotDeleted) {
		t.Fatalf("restoring a live account must fail, got %v", err)
	}

	if err := env.accounts.SoftDelete(ctx, acct.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	stored, err := env.accounts.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.AccountStatusDeleted {
		t.Fatalf("expected DELETED, got %s", stored.Status)
	}
	if stored.DeletionExpiry == nil {
		t.Fatalf("expected a deletion expiry")
	}
	wantExpiry := env.now.Add(env.cfg.Security.DeletionRetention)
	if !stored.DeletionExpiry.Equal(wantExpiry) {
		t.Fatalf("deletion expiry %v, want %v", stored.DeletionExpiry, wantExpiry)
	}

	if err := env.accounts.SoftDelete(ctx, acct.ID); !errors.Is(err, ErrAccountDeleted) {
		t.Fatalf("double delete must fail, got %v", err)
	}

	if err := env.accounts.Restore(ctx, acct.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	stored, err = env.accounts.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("get after restore: %v", err)
	}
	if stored.Status != domain.AccountStatusActive || stored.DeletionExpiry != nil {
		t.Fatalf("expected ACTIVE with no expiry, got %s %v", stored.Status, stored.DeletionExpiry)
	}
}

func TestAccountService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct := mustRegister(t, env, "Ali", "ali@example.com", "old-pw", domain.RoleEngineer, "")

	if err := env.accounts.ChangePassword(ctx, acct.ID, "guessed", "new-pw"); !errors.Is(err, ErrInvalidCurrentPassword) {
		t.Fatalf("expected ErrInvalidCurrentPassword, got %v", err)
	}

	if err := env.accounts.ChangePassword(ctx, acct.ID, "old-pw", "new-pw"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, _, err := env.accounts.Login(ctx, acct.Email, "old-pw"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, _, err := env.accounts.Login(ctx, acct.Email, "new-pw"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestAccountService_AdminResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := mustRegister(t, env, "Admin", "admin@example.com", "admin-pw", domain.RoleAdmin, "")
	target := mustRegister(t, env, "Ali", "ali@example.com", "old-pw", domain.RoleEngineer, "")
	bystander := mustRegister(t, env, "Owner", "owner@example.com", "pw", domain.RoleOwner, "")

	if err := env.accounts.AdminResetPassword(ctx, bystander.ID, target.ID, "new-pw"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-admin actor must be denied, got %v", err)
	}

	if err := env.accounts.AdminResetPassword(ctx, admin.ID, target.ID, "new-pw"); err != nil {
		t.Fatalf("admin reset: %v", err)
	}
	if _, _, err := env.accounts.Login(ctx, target.Email, "new-pw"); err != nil {
		t.Fatalf("login with reset password: %v", err)
	}
}

func TestAccountService_Approve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := mustRegister(t, env, "Admin", "admin@example.com", "admin-pw", domain.RoleAdmin, "")
	pending := mustRegister(t, env, "Pending", "pending@example.com", "pw", domain.RoleEngineer, domain.AccountStatusPendingApproval)

	if err := env.accounts.Approve(ctx, pending.ID, pending.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("self-approval must be denied, got %v", err)
	}

	if err := env.accounts.Approve(ctx, admin.ID, pending.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, _, err := env.accounts.Login(ctx, pending.Email, "pw"); err != nil {
		t.Fatalf("login after approval: %v", err)
	}

	if err := env.accounts.Approve(ctx, admin.ID, pending.ID); !errors.Is(err, ErrAccountNotPending) {
		t.Fatalf("approving an active account must fail, got %v", err)
	}
}

func TestAccountService_ToggleSuspendProtectsAdmins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := mustRegister(t, env, "Admin", "admin@example.com", "admin-pw", domain.RoleAdmin, "")
	other := mustRegister(t, env, "Second", "second@example.com", "pw", domain.RoleAdmin, "")
	acct := mustRegister(t, env, "Ali", "ali@example.com", "pw", domain.RoleEngineer, "")

	if err := env.accounts.ToggleSuspend(ctx, admin.ID, other.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("suspending an administrator must be denied, got %v", err)
	}

	if err := env.accounts.ToggleSuspend(ctx, admin.ID, acct.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	stored, _ := env.accounts.GetByID(ctx, acct.ID)
	if stored.Status != domain.AccountStatusSuspended {
		t.Fatalf("expected SUSPENDED, got %s", stored.Status)
	}

	if err := env.accounts.ToggleSuspend(ctx, admin.ID, acct.ID); err != nil {
		t.Fatalf("unsuspend: %v", err)
	}
	stored, _ = env.accounts.GetByID(ctx, acct.ID)
	if stored.Status != domain.AccountStatusActive {
		t.Fatalf("expected ACTIVE, got %s", stored.Status)
	}
}

func TestAccountService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := mustRegister(t, env, "Admin", "admin@example.com", "admin-pw", domain.RoleAdmin, "")
	acct := mustRegister(t, env, "Ali", "ali@example.com", "pw", domain.RoleEngineer, "")
	mustRegister(t, env, "Sara", "sara@example.com", "pw", domain.RoleEngineer, "")

	taken := "sara@example.com"
	if _, err := env.accounts.UpdateProfile(ctx, UpdateProfileInput{ID: acct.ID, Email: &taken}); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	// Re-submitting the account's own email is not a collision.
	own := "ali@example.com"
	name := "Ali Hassan"
	phone := " 0599-000000 "
	updated, err := env.accounts.UpdateProfile(ctx, UpdateProfileInput{ID: acct.ID, Email: &own, Name: &name, Phone: &phone})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Ali Hassan" || updated.Phone != "0599-000000" {
		t.Fatalf("unexpected profile after update: %+v", updated)
	}

	adminRole := domain.RoleAdmin
	if _, err := env.accounts.UpdateProfile(ctx, UpdateProfileInput{ID: acct.ID, Role: &adminRole, ClaimedAdminID: acct.ID}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("escalation without a real admin must be denied, got %v", err)
	}

	updated, err = env.accounts.UpdateProfile(ctx, UpdateProfileInput{ID: acct.ID, Role: &adminRole, ClaimedAdminID: admin.ID})
	if err != nil {
		t.Fatalf("escalation authorized by admin: %v", err)
	}
	if updated.Role != domain.RoleAdmin {
		t.Fatalf("expected ADMIN role, got %s", updated.Role)
	}
}

func TestAccountService_ResetTokenRedeemOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct := mustRegister(t, env, "Ali", "ali@example.com", "old-pw", domain.RoleEngineer, "")

	token, expiry, err := env.accounts.CreateResetToken(ctx, acct.Email)
	if err != nil {
		t.Fatalf("create reset token: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a raw token")
	}
	if want := env.now.Add(env.cfg.Security.ResetTokenTTL); !expiry.Equal(want) {
		t.Fatalf("expiry %v, want %v", expiry, want)
	}

	// Only the hash may be persisted.
	snap, err := env.store.Load(ctx, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Accounts[0].ResetTokenHash == "" || snap.Accounts[0].ResetTokenHash == token {
		t.Fatalf("expected a stored hash distinct from the raw token")
	}

	if err := env.accounts.RedeemResetToken(ctx, token, "new-pw"); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if _, _, err := env.accounts.Login(ctx, acct.Email, "new-pw"); err != nil {
		t.Fatalf("login with reset password: %v", err)
	}

	if err := env.accounts.RedeemResetToken(ctx, token, "again"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("second redemption must fail, got %v", err)
	}
}

func TestAccountService_ResetTokenExpiredIsCleared(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct := mustRegister(t, env, "Ali", "ali@example.com", "old-pw", domain.RoleEngineer, "")

	token, _, err := env.accounts.CreateResetToken(ctx, acct.Email)
	if err != nil {
		t.Fatalf("create reset token: %v", err)
	}

	env.advance(2 * time.Hour)

	if err := env.accounts.RedeemResetToken(ctx, token, "new-pw"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}

	// The failed redemption clears the token; the old password still works.
	snap, err := env.store.Load(ctx, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Accounts[0].ResetTokenHash != "" || snap.Accounts[0].ResetTokenExpiry != nil {
		t.Fatalf("expected token fields cleared, got %+v", snap.Accounts[0])
	}
	if _, _, err := env.accounts.Login(ctx, acct.Email, "old-pw"); err != nil {
		t.Fatalf("login with unchanged password: %v", err)
	}
}

func TestAccountService_CreateResetTokenOverwritesPrior(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct := mustRegister(t, env, "Ali", "ali@example.com", "pw", domain.RoleEngineer, "")

	first, _, err := env.accounts.CreateResetToken(ctx, acct.Email)
	if err != nil {
		t.Fatalf("first token: %v", err)
	}
	if _, _, err := env.accounts.CreateResetToken(ctx, acct.Email); err != nil {
		t.Fatalf("second token: %v", err)
	}

	if err := env.accounts.RedeemResetToken(ctx, first, "new-pw"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("superseded token must be rejected, got %v", err)
	}
}

func TestAccountService_CreateResetTokenUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.accounts.CreateResetToken(context.Background(), "ghost@example.com")
	if !errors.Is(err, ErrEmailNotFound) {
		t.Fatalf("expected ErrEmailNotFound, got %v", err)
	}
}
