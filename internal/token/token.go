// Package token issues and validates signed, expiring session tokens.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"expense-manager/internal/errs"
	"expense-manager/internal/model"
	"expense-manager/internal/repository"
)

// Claims is the signed payload: subject, issued_at, expires_at and token_id
// live in the registered claims, kind distinguishes access from refresh.
type Claims struct {
	jwt.RegisteredClaims
	Kind model.TokenKind `json:"kind"`
}

// Service signs and validates tokens with a server-held symmetric secret.
// Every validation failure surfaces to callers as ErrInvalidToken; which
// check failed is never leaked. Signature mismatches additionally hit the
// audit hook so tampering can be logged separately from routine expiry.
type Service struct {
	signKey []byte
	method  jwt.SigningMethod
	revoked repository.RevocationStore
	audit   func(reason string)
	now     func() time.Time
}

// NewService constructs a Service. alg selects the HMAC family signing
// algorithm (HS256, HS384 or HS512); anything else is a configuration error.
func NewService(signKey []byte, alg string, revoked repository.RevocationStore) (*Service, error) {
	var method jwt.SigningMethod
	switch alg {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	if len(signKey) == 0 {
		return nil, fmt.Errorf("empty signing key")
	}
	return &Service{
		signKey: signKey,
		method:  method,
		revoked: revoked,
		audit:   func(string) {},
		now:     time.Now,
	}, nil
}

// WithAuditHook registers a callback invoked on signature/tamper failures.
func (s *Service) WithAuditHook(fn func(reason string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Issue signs a new token for the subject. The token_id is random per call;
// signing itself is deterministic given the same secret and payload.
func (s *Service) Issue(subject uuid.UUID, ttl time.Duration, kind model.TokenKind) (string, time.Time, error) {
	tokenID, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        tokenID.String(),
		},
		Kind: kind,
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	return signed, exp, err
}

// Validate verifies signature and expiry, then checks the revocation set.
// It returns the subject and parsed claims on success.
func (s *Service) Validate(ctx context.Context, tokenStr string) (uuid.UUID, *Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != s.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return s.signKey, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired(), jwt.WithIssuedAt())
	if err != nil || !parsed.Valid {
		// Expiry is routine; anything else on the parse path means a
		// malformed or tampered token and is worth auditing.
		if err != nil && !errors.Is(err, jwt.ErrTokenExpired) {
			s.audit("signature or structure invalid")
		}
		return uuid.Nil, nil, errs.ErrInvalidToken
	}

	subject, err := uuid.FromString(claims.Subject)
	if err != nil || subject == uuid.Nil {
		return uuid.Nil, nil, errs.ErrInvalidToken
	}
	tokenID, err := uuid.FromString(claims.ID)
	if err != nil || claims.IssuedAt == nil {
		return uuid.Nil, nil, errs.ErrInvalidToken
	}

	// revoke_all watermark: tokens issued at or before it are dead.
	wm, found, err := s.revoked.Watermark(ctx, subject)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if found && !claims.IssuedAt.Time.After(wm) {
		return uuid.Nil, nil, errs.ErrInvalidToken
	}

	revoked, err := s.revoked.IsRevoked(ctx, tokenID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if revoked {
		return uuid.Nil, nil, errs.ErrInvalidToken
	}
	return subject, claims, nil
}

// ValidateAccess is Validate restricted to access tokens.
func (s *Service) ValidateAccess(ctx context.Context, tokenStr string) (uuid.UUID, error) {
	subject, claims, err := s.Validate(ctx, tokenStr)
	if err != nil {
		return uuid.Nil, err
	}
	if claims.Kind != model.TokenAccess {
		return uuid.Nil, errs.ErrInvalidToken
	}
	return subject, nil
}

// Refresh exchanges a valid refresh token for a new access token. The refresh
// token's own lifetime is never extended.
func (s *Service) Refresh(ctx context.Context, refreshToken string, accessTTL time.Duration) (string, time.Time, error) {
	subject, claims, err := s.Validate(ctx, refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	if claims.Kind != model.TokenRefresh {
		return "", time.Time{}, errs.ErrInvalidToken
	}
	return s.Issue(subject, accessTTL, model.TokenAccess)
}

// Revoke invalidates the presented token by its token_id. The revocation row
// only needs to outlive the token itself.
func (s *Service) Revoke(ctx context.Context, tokenStr string) error {
	_, claims, err := s.Validate(ctx, tokenStr)
	if err != nil {
		return err
	}
	tokenID, err := uuid.FromString(claims.ID)
	if err != nil {
		return errs.ErrInvalidToken
	}
	return s.revoked.Revoke(ctx, tokenID, claims.ExpiresAt.Time)
}

// RevokeAll invalidates every outstanding token of the subject, including
// ones issued before this call, by raising the per-subject watermark.
func (s *Service) RevokeAll(ctx context.Context, subject uuid.UUID) error {
	return s.revoked.RaiseWatermark(ctx, subject, s.now())
}
