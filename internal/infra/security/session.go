package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSessionToken indicates the token is malformed or its signature fails.
	ErrInvalidSessionToken = errors.New("invalid session token")
	// ErrExpiredSessionToken indicates the token is past its expiry.
	ErrExpiredSessionToken = errors.New("session token expired")
)

// SessionClaims carries the authenticated identity inside a session token.
// Privileged operations never trust these claims alone; the acting account is
// re-resolved and re-checked against the store on every call.
type SessionClaims struct {
	AccountID string `json:"uid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager issues and validates HS256 session tokens.
type SessionManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(secret, issuer string, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock overrides the clock, primarily for tests.
func (m *SessionManager) WithClock(clock func() time.Time) {
	if clock != nil {
		m.now = clock
	}
}

// Issue signs a session token for the account.
func (m *SessionManager) Issue(accountID, role string) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("account id is required")
	}

	now := m.now().UTC()
	claims := SessionClaims{
		AccountID: accountID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// Parse validates a session token and returns its claims.
func (m *SessionManager) Parse(token string) (*SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidSessionToken
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(func() time.Time { return m.now().UTC() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSessionToken
		}
		return nil, ErrInvalidSessionToken
	}

	if parsed == nil || !parsed.Valid || strings.TrimSpace(claims.AccountID) == "" {
		return nil, ErrInvalidSessionToken
	}

	return claims, nil
}
