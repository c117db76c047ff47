// Package service contains application services for authentication, the
// expense ledger and reporting.
package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"expense-manager/internal/crypto"
	"expense-manager/internal/errs"
	"expense-manager/internal/limiter"
	"expense-manager/internal/model"
	"expense-manager/internal/repository"
	"expense-manager/internal/token"
)

// AuthService defines account and session operations.
type AuthService interface {
	// Register creates a new user with secure password hashing.
	Register(ctx context.Context, email, password string) (userID string, err error)
	// LoginWithIP applies rate limiting and authenticates the user,
	// returning an access/refresh token pair.
	LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, error)
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (string, time.Time, error)
	// Logout revokes the presented token.
	Logout(ctx context.Context, tokenStr string) error
	// ChangePassword replaces the password and invalidates every
	// outstanding session of the user.
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	// Deactivate soft-deletes the account and invalidates its sessions.
	Deactivate(ctx context.Context, userID uuid.UUID) error
}

type AuthServiceImpl struct {
	users      repository.UserRepository
	hasher     *crypto.Hasher
	tokens     *token.Service
	lim        limiter.Limiter
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository,
	hasher *crypto.Hasher,
	tokens *token.Service,
	lim limiter.Limiter,
	accessTTL, refreshTTL time.Duration,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		lim:        lim,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// NormalizeEmail lowercases and trims an email address. Email comparison is
// case-insensitive throughout.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user record.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", fmt.Errorf("empty email/password: %w", errs.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("malformed email: %w", errs.ErrValidation)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	pwdHash, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}
	u := &model.User{ID: uid, Email: email, PwdHash: pwdHash}
	if err := s.users.Create(ctx, u); err != nil {
		return "", err
	}
	return uid.String(), nil
}

// LoginWithIP authenticates with rate limiting by (email, ip). All credential
// failures collapse into ErrInvalidCredentials so callers cannot probe which
// part was wrong; only a corrupt stored record surfaces distinctly.
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, error) {
	email = NormalizeEmail(email)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, err
	}
	if !allowed {
		return model.Tokens{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !u.Active() {
		// burn comparable time so a missing user is indistinguishable
		// from a wrong password
		_, _ = s.hasher.Hash(password)
		return s.loginFailure(ctx, email, ipHash)
	}
	ok, verr := s.hasher.Verify(password, u.PwdHash)
	if verr != nil {
		// ErrCorruptCredential included: an integrity problem, never
		// downgraded to a plain mismatch
		return model.Tokens{}, verr
	}
	if !ok {
		return s.loginFailure(ctx, email, ipHash)
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, email, ipHash)

	access, exp, err := s.tokens.Issue(u.ID, s.accessTTL, model.TokenAccess)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, _, err := s.tokens.Issue(u.ID, s.refreshTTL, model.TokenRefresh)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (s *AuthServiceImpl) loginFailure(ctx context.Context, email string, ipHash []byte) (model.Tokens, error) {
	if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
		return model.Tokens{}, errs.ErrRateLimited
	}
	return model.Tokens{}, errs.ErrInvalidCredentials
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token keeps its original expiry.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	return s.tokens.Refresh(ctx, refreshToken, s.accessTTL)
}

// Logout revokes the presented token by token_id.
func (s *AuthServiceImpl) Logout(ctx context.Context, tokenStr string) error {
	return s.tokens.Revoke(ctx, tokenStr)
}

// ChangePassword verifies the current password, stores a fresh hash and
// revokes every outstanding session for the user.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if next == "" {
		return fmt.Errorf("empty new password: %w", errs.ErrValidation)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return errs.ErrInvalidCredentials
	}
	ok, err := s.hasher.Verify(current, u.PwdHash)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrInvalidCredentials
	}
	pwdHash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, pwdHash); err != nil {
		return err
	}
	return s.tokens.RevokeAll(ctx, userID)
}

// Deactivate soft-deletes the account. Expenses stay for audit; every
// outstanding session dies with the account.
func (s *AuthServiceImpl) Deactivate(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.Deactivate(ctx, userID); err != nil {
		return err
	}
	return s.tokens.RevokeAll(ctx, userID)
}
