package auth

import (
	"fmt"
	"time"

	domain "authapi/backend/internal/domain/auth"
)

// Issued is the result of a successful token issuance.
type Issued struct {
	Token        string
	PasswordHash string
	Claims       domain.Claims
	ExpiresAt    time.Time
}

// Authenticator issues tokens and classifies stored tokens as valid,
// expired or invalid. It holds no mutable state.
type Authenticator struct {
	hasher   PasswordHasher
	codec    TokenCodec
	lifetime time.Duration
}

// NewAuthenticator constructs an Authenticator issuing tokens that live for lifetime.
func NewAuthenticator(hasher PasswordHasher, codec TokenCodec, lifetime time.Duration) *Authenticator {
	return &Authenticator{
		hasher:   hasher,
		codec:    codec,
		lifetime: lifetime,
	}
}

// Issue hashes password and signs a token for identity expiring at
// now (in loc) plus the configured lifetime. Nothing is persisted.
func (a *Authenticator) Issue(identity domain.Identity, password string, now time.Time, loc *time.Location) (Issued, error) {
	hash, err := a.hasher.Hash(password)
	if err != nil {
		return Issued{}, fmt.Errorf("hash password: %w", err)
	}

	expiresAt := now.In(loc).Add(a.lifetime)
	claims := domain.Claims{
		AppName:      identity.AppName,
		UserID:       identity.UserID,
		UserName:     identity.UserName,
		PasswordHash: hash,
		Role:         identity.Role,
		Expire:       expiresAt.Format(domain.ExpireLayout),
	}

	token, err := a.codec.Encode(claims)
	if err != nil {
		return Issued{}, fmt.Errorf("encode token: %w", err)
	}

	return Issued{
		Token:        token,
		PasswordHash: hash,
		Claims:       claims,
		ExpiresAt:    expiresAt,
	}, nil
}

// Validate classifies token at instant now. The expire claim is read as a
// wall-clock time in loc; a token is expired only when now is strictly after it.
func (a *Authenticator) Validate(token string, now time.Time, loc *time.Location) domain.Outcome {
	claims, err := a.codec.Decode(token)
	if err != nil {
		return domain.OutcomeInvalid
	}

	expiry, err := time.ParseInLocation(domain.ExpireLayout, claims.Expire, loc)
	if err != nil {
		return domain.OutcomeInvalid
	}

	if now.In(loc).After(expiry) {
		return domain.OutcomeExpired
	}
	return domain.OutcomeValid
}

// HashPassword returns the deterministic hash used as a lookup key.
func (a *Authenticator) HashPassword(password string) (string, error) {
	return a.hasher.Hash(password)
}

// VerifyPassword reports whether password matches an encoded hash.
func (a *Authenticator) VerifyPassword(password, encoded string) bool {
	return a.hasher.Verify(password, encoded)
}
