// Package hasher derives deterministic password hashes.
//
// All hashes of one deployment share a fixed salt so that the hash of a
// submitted password can be used directly as a lookup key. As a consequence
// two users with the same password have the same stored hash.
package hasher

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Supported algorithm identifiers.
const (
	Argon2id     = "argon2id"
	Scrypt       = "scrypt"
	PBKDF2SHA256 = "pbkdf2-sha256"
)

const keyLen = 32

var (
	// ErrUnsupportedAlgorithm is returned for an unknown algorithm identifier.
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
	// ErrEmptySalt is returned when the deployment salt is missing.
	ErrEmptySalt = errors.New("hash salt must not be empty")
	// ErrMalformedHash is returned when an encoded hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
)

var encoding = base64.RawStdEncoding

// Params holds the cost parameters of every supported algorithm.
type Params struct {
	ArgonTime    uint32
	ArgonMemory  uint32
	ArgonThreads uint8
	ScryptLogN   int
	ScryptR      int
	ScryptP      int
	PBKDF2Iter   int
}

// DefaultParams returns the production cost parameters.
func DefaultParams() Params {
	return Params{
		ArgonTime:    1,
		ArgonMemory:  64 * 1024,
		ArgonThreads: 4,
		ScryptLogN:   15,
		ScryptR:      8,
		ScryptP:      1,
		PBKDF2Iter:   100_000,
	}
}

// Hasher hashes and verifies passwords with a fixed salt and pepper.
type Hasher struct {
	algorithm string
	pepper    string
	salt      []byte
	params    Params
}

// NewHasher constructs a Hasher using DefaultParams.
func NewHasher(algorithm, pepper, salt string) (*Hasher, error) {
	return NewHasherWithParams(algorithm, pepper, salt, DefaultParams())
}

// NewHasherWithParams constructs a Hasher with explicit cost parameters.
func NewHasherWithParams(algorithm, pepper, salt string, params Params) (*Hasher, error) {
	algorithm = strings.ToLower(strings.TrimSpace(algorithm))
	if algorithm == "" {
		algorithm = Argon2id
	}
	if !Supported(algorithm) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	if salt == "" {
		return nil, ErrEmptySalt
	}
	return &Hasher{
		algorithm: algorithm,
		pepper:    pepper,
		salt:      []byte(salt),
		params:    params,
	}, nil
}

// Supported reports whether the algorithm identifier is known.
func Supported(algorithm string) bool {
	switch algorithm {
	case Argon2id, Scrypt, PBKDF2SHA256:
		return true
	}
	return false
}

// Algorithm returns the configured algorithm identifier.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Hash returns the encoded hash of password. Equal inputs give equal outputs.
func (h *Hasher) Hash(password string) (string, error) {
	d := derivation{algorithm: h.algorithm, params: h.params, salt: h.salt}
	key, err := d.derive(h.peppered(password))
	if err != nil {
		return "", err
	}
	return d.encode(key), nil
}

// Verify reports whether password matches the encoded hash. Legacy bcrypt
// hashes are accepted. Any parse or derivation failure yields false.
func (h *Hasher) Verify(password, encoded string) bool {
	if strings.HasPrefix(encoded, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(encoded), h.peppered(password)) == nil
	}

	d, want, err := decode(encoded)
	if err != nil {
		return false
	}
	got, err := d.derive(h.peppered(password))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

func (h *Hasher) peppered(password string) []byte {
	return []byte(password + h.pepper)
}

type derivation struct {
	algorithm string
	params    Params
	salt      []byte
}

func (d derivation) derive(secret []byte) ([]byte, error) {
	switch d.algorithm {
	case Argon2id:
		return argon2.IDKey(secret, d.salt, d.params.ArgonTime, d.params.ArgonMemory, d.params.ArgonThreads, keyLen), nil
	case Scrypt:
		return scrypt.Key(secret, d.salt, 1<<d.params.ScryptLogN, d.params.ScryptR, d.params.ScryptP, keyLen)
	case PBKDF2SHA256:
		return pbkdf2.Key(secret, d.salt, d.params.PBKDF2Iter, keyLen, sha256.New), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, d.algorithm)
	}
}

func (d derivation) encode(key []byte) string {
	var params string
	switch d.algorithm {
	case Argon2id:
		params = fmt.Sprintf("v=%d$m=%d,t=%d,p=%d", argon2.Version, d.params.ArgonMemory, d.params.ArgonTime, d.params.ArgonThreads)
	case Scrypt:
		params = fmt.Sprintf("ln=%d,r=%d,p=%d", d.params.ScryptLogN, d.params.ScryptR, d.params.ScryptP)
	case PBKDF2SHA256:
		params = fmt.Sprintf("i=%d", d.params.PBKDF2Iter)
	}
	return "$" + d.algorithm + "$" + params + "$" + encoding.EncodeToString(d.salt) + "$" + encoding.EncodeToString(key)
}

// decode parses a hash produced by encode back into its derivation and key.
func decode(encoded string) (derivation, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) < 5 || parts[0] != "" {
		return derivation{}, nil, ErrMalformedHash
	}

	d := derivation{algorithm: parts[1]}
	var rest []string
	switch d.algorithm {
	case Argon2id:
		if len(parts) != 6 || parts[2] != "v="+strconv.Itoa(argon2.Version) {
			return derivation{}, nil, ErrMalformedHash
		}
		fields, err := parseFields(parts[3], "m", "t", "p")
		if err != nil {
			return derivation{}, nil, err
		}
		if fields["p"] > 255 {
			return derivation{}, nil, ErrMalformedHash
		}
		d.params.ArgonMemory = uint32(fields["m"])
		d.params.ArgonTime = uint32(fields["t"])
		d.params.ArgonThreads = uint8(fields["p"])
		rest = parts[4:]
	case Scrypt:
		if len(parts) != 5 {
			return derivation{}, nil, ErrMalformedHash
		}
		fields, err := parseFields(parts[2], "ln", "r", "p")
		if err != nil {
			return derivation{}, nil, err
		}
		if fields["ln"] > 30 {
			return derivation{}, nil, ErrMalformedHash
		}
		d.params.ScryptLogN = int(fields["ln"])
		d.params.ScryptR = int(fields["r"])
		d.params.ScryptP = int(fields["p"])
		rest = parts[3:]
	case PBKDF2SHA256:
		if len(parts) != 5 {
			return derivation{}, nil, ErrMalformedHash
		}
		fields, err := parseFields(parts[2], "i")
		if err != nil {
			return derivation{}, nil, err
		}
		d.params.PBKDF2Iter = int(fields["i"])
		rest = parts[3:]
	default:
		return derivation{}, nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, d.algorithm)
	}

	salt, err := encoding.DecodeString(rest[0])
	if err != nil {
		return derivation{}, nil, ErrMalformedHash
	}
	key, err := encoding.DecodeString(rest[1])
	if err != nil || len(key) != keyLen {
		return derivation{}, nil, ErrMalformedHash
	}
	d.salt = salt
	return d, key, nil
}

// parseFields reads "k=v,k=v" with positive integer values and requires every key.
func parseFields(s string, keys ...string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(keys))
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, ErrMalformedHash
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return nil, ErrMalformedHash
		}
		out[k] = n
	}
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			return nil, ErrMalformedHash
		}
	}
	return out, nil
}
