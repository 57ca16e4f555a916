package token

import (
	"errors"
	"fmt"
	"strings"

	domain "authapi/backend/internal/domain/auth"
	usecase "authapi/backend/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnsupportedAlgorithm is returned for signing algorithms outside the HMAC family.
var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// DefaultAlgorithm is used when no signing algorithm is configured.
const DefaultAlgorithm = "HS256"

// JWTManager signs and verifies credential tokens.
//
// Expiry is carried in the expire claim and judged by the caller, so the
// library's own exp/nbf/iat checks are turned off.
type JWTManager struct {
	secret []byte
	method jwt.SigningMethod
}

// NewJWTManager constructs a manager for one of HS256, HS384 or HS512.
func NewJWTManager(secret, algorithm string) (*JWTManager, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	alg := strings.ToUpper(strings.TrimSpace(algorithm))
	if alg == "" {
		alg = DefaultAlgorithm
	}
	if !Supported(alg) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	return &JWTManager{
		secret: []byte(secret),
		method: jwt.GetSigningMethod(alg),
	}, nil
}

// Supported reports whether alg names an accepted HMAC signing method.
func Supported(alg string) bool {
	switch alg {
	case jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg():
		return true
	}
	return false
}

// Ensure JWTManager implements the TokenCodec interface.
var _ usecase.TokenCodec = (*JWTManager)(nil)

type claims struct {
	domain.Claims
	jwt.RegisteredClaims
}

// Encode signs the claims.
func (m *JWTManager) Encode(c domain.Claims) (string, error) {
	token := jwt.NewWithClaims(m.method, claims{Claims: c})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and algorithm and returns the claims.
// Every failure wraps domain.ErrTokenInvalid.
func (m *JWTManager) Decode(tokenString string) (domain.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return domain.Claims{}, fmt.Errorf("%w: invalid token claims", domain.ErrTokenInvalid)
	}
	return c.Claims, nil
}
