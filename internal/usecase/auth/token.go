package auth

import domain "authapi/backend/internal/domain/auth"

// TokenCodec abstracts token signing and verification.
type TokenCodec interface {
	Encode(claims domain.Claims) (string, error)
	Decode(token string) (domain.Claims, error)
}

// PasswordHasher abstracts deterministic password hashing.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}
