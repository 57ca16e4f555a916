package auth

import (
	"errors"
	"time"
)

var (
	// ErrUserIDTaken signals that the tenant already has a record with the user id.
	ErrUserIDTaken = errors.New("user id already registered")
	// ErrUserNameTaken signals that the tenant already has a record with the user name.
	ErrUserNameTaken = errors.New("user name already registered")
	// ErrUserNotExist is returned by login when no record matches name and password.
	ErrUserNotExist = errors.New("user does not exist or password is incorrect")
	// ErrCredentialMismatch is returned by renewal when the old password does not match.
	ErrCredentialMismatch = errors.New("password does not match current password or user does not exist")
	// ErrPasswordReuse indicates the new password equals the current one.
	ErrPasswordReuse = errors.New("new password must differ from current password")
	// ErrTokenInvalid means a supplied token cannot be decoded or verified.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrCredentialNotFound indicates a missing record in the store.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrTenantNotFound indicates a write against a namespace that was never created.
	ErrTenantNotFound = errors.New("tenant namespace not found")
	// ErrInvalidInput wraps missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
)

// ExpireLayout is the wall-clock layout of the expire claim. It carries no zone.
const ExpireLayout = "2006-01-02 15:04:05"

// Credential is the per-tenant record persisted by the store.
type Credential struct {
	ID           string
	AppName      string
	UserID       int64
	UserName     string
	PasswordHash string
	Token        string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the subset of a credential that is signed into a token.
type Identity struct {
	AppName  string
	UserID   int64
	UserName string
	Role     string
}

// Claims is the token payload.
type Claims struct {
	AppName      string `json:"app_name"`
	UserID       int64  `json:"user_id"`
	UserName     string `json:"user_name"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
	Expire       string `json:"expire"`
}

// Outcome is the result of validating a stored token.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeValid
	OutcomeExpired
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "VALID"
	case OutcomeExpired:
		return "EXPIRED"
	case OutcomeInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// UpsertResult reports whether an upsert replaced an existing record.
type UpsertResult int

const (
	UpsertUpdated UpsertResult = iota + 1
	UpsertInserted
)

func (r UpsertResult) String() string {
	switch r {
	case UpsertUpdated:
		return "updated"
	case UpsertInserted:
		return "inserted"
	default:
		return "unknown"
	}
}
