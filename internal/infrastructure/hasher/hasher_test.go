package hasher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func cheapParams() Params {
	return Params{
		ArgonTime:    1,
		ArgonMemory:  1024,
		ArgonThreads: 1,
		ScryptLogN:   4,
		ScryptR:      8,
		ScryptP:      1,
		PBKDF2Iter:   10,
	}
}

func newTestHasher(t *testing.T, algorithm string) *Hasher {
	t.Helper()
	h, err := NewHasherWithParams(algorithm, "pepper", "fixed-salt", cheapParams())
	require.NoError(t, err)
	return h
}

func TestNewHasher_Validation(t *testing.T) {
	_, err := NewHasher("md5", "p", "s")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, err = NewHasher(Argon2id, "p", "")
	assert.ErrorIs(t, err, ErrEmptySalt)

	h, err := NewHasher("", "p", "s")
	require.NoError(t, err)
	assert.Equal(t, Argon2id, h.Algorithm())

	h, err = NewHasher(" SCRYPT ", "p", "s")
	require.NoError(t, err)
	assert.Equal(t, Scrypt, h.Algorithm())
}

func TestHasher_RoundTrip(t *testing.T) {
	for _, alg := range []string{Argon2id, Scrypt, PBKDF2SHA256} {
		t.Run(alg, func(t *testing.T) {
			h := newTestHasher(t, alg)

			encoded, err := h.Hash("s3cret")
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(encoded, "$"+alg+"$"), encoded)

			assert.True(t, h.Verify("s3cret", encoded))
			assert.False(t, h.Verify("s3cret!", encoded))
			assert.False(t, h.Verify("", encoded))
		})
	}
}

func TestHasher_Deterministic(t *testing.T) {
	h := newTestHasher(t, Argon2id)

	first, err := h.Hash("same-password")
	require.NoError(t, err)
	second, err := h.Hash("same-password")
	require.NoError(t, err)
	// Two different users choosing the same password end up with the same hash.
	assert.Equal(t, first, second)

	other, err := h.Hash("other-password")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestHasher_PepperAndSaltAffectHash(t *testing.T) {
	base := newTestHasher(t, Argon2id)
	otherPepper, err := NewHasherWithParams(Argon2id, "other", "fixed-salt", cheapParams())
	require.NoError(t, err)
	otherSalt, err := NewHasherWithParams(Argon2id, "pepper", "other-salt", cheapParams())
	require.NoError(t, err)

	a, _ := base.Hash("pw")
	b, _ := otherPepper.Hash("pw")
	c, _ := otherSalt.Hash("pw")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.False(t, otherPepper.Verify("pw", a))
}

func TestHasher_VerifyAcrossAlgorithms(t *testing.T) {
	scryptHasher := newTestHasher(t, Scrypt)
	argonHasher := newTestHasher(t, Argon2id)

	encoded, err := scryptHasher.Hash("pw")
	require.NoError(t, err)

	// Parameters are read from the encoded hash, not from the configured algorithm.
	assert.True(t, argonHasher.Verify("pw", encoded))
}

func TestHasher_VerifyLegacyBcrypt(t *testing.T) {
	h := newTestHasher(t, Argon2id)

	legacy, err := bcrypt.GenerateFromPassword([]byte("pw"+"pepper"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, h.Verify("pw", string(legacy)))
	assert.False(t, h.Verify("wrong", string(legacy)))
}

func TestHasher_VerifyMalformedFailsClosed(t *testing.T) {
	h := newTestHasher(t, Argon2id)

	cases := []string{
		"",
		"plain",
		"$argon2id$v=19$m=1024,t=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$scrypt$ln=99,r=8,p=1$c2FsdA$a2V5",
		"$pbkdf2-sha256$i=0$c2FsdA$a2V5",
		"$pbkdf2-sha256$i=10$!!!$a2V5",
		"$sha1$x$y$z",
		"$2a$not-a-bcrypt-hash",
	}
	for _, encoded := range cases {
		assert.False(t, h.Verify("pw", encoded), encoded)
	}
}
