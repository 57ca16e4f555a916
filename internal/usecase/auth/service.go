package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "authapi/backend/internal/domain/auth"
	"authapi/backend/internal/logging"

	"github.com/google/uuid"
)

// Service coordinates the credential lifecycle between the store and the authenticator.
type Service struct {
	store   domain.CredentialRepository
	auth    *Authenticator
	loc     *time.Location
	nowFunc func() time.Time
	log     logging.Logger

	// decoy is a hash in the configured format. Failed lookups verify
	// against it so a miss costs the same whether or not the user exists.
	decoy string
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.nowFunc = now }
}

// WithLogger sets the logger used for store failures.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService constructs an auth service. loc is the tenant time zone used
// when stamping and judging token expiry.
func NewService(store domain.CredentialRepository, auth *Authenticator, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		store:   store,
		auth:    auth,
		loc:     loc,
		nowFunc: time.Now,
		log:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if auth != nil {
		s.decoy, _ = auth.HashPassword(uuid.NewString())
	}
	return s
}

// SignupInput carries the fields of a signup request.
type SignupInput struct {
	AppName  string
	UserID   int64
	UserName string
	Password string
	Role     string
}

// LoginInput carries the fields of a login request.
type LoginInput struct {
	AppName  string
	UserName string
	Password string
}

// RenewInput carries the fields of a credential renewal request.
type RenewInput struct {
	AppName     string
	UserName    string
	OldPassword string
	NewPassword string
}

// Signup registers a new credential in the tenant namespace.
//
// The user id is checked before the user name, so a request colliding on
// both reports ErrUserIDTaken.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.Credential, error) {
	in.AppName = strings.TrimSpace(in.AppName)
	if err := requireFields("app_name", in.AppName, "user_name", in.UserName, "password", in.Password); err != nil {
		return nil, err
	}
	log := s.log.With("collection", in.AppName, "operation", "signup")

	if err := s.store.EnsureTenant(ctx, in.AppName); err != nil {
		log.Error(ctx, "ensure tenant failed", "error", err)
		return nil, fmt.Errorf("ensure tenant: %w", err)
	}

	if _, err := s.store.GetByUserID(ctx, in.AppName, in.UserID); err == nil {
		return nil, domain.ErrUserIDTaken
	} else if !errors.Is(err, domain.ErrCredentialNotFound) {
		log.Error(ctx, "lookup by user id failed", "error", err)
		return nil, fmt.Errorf("lookup user id: %w", err)
	}

	if _, err := s.store.GetByUserName(ctx, in.AppName, in.UserName); err == nil {
		return nil, domain.ErrUserNameTaken
	} else if !errors.Is(err, domain.ErrCredentialNotFound) {
		log.Error(ctx, "lookup by user name failed", "error", err)
		return nil, fmt.Errorf("lookup user name: %w", err)
	}

	now := s.nowFunc()
	issued, err := s.auth.Issue(domain.Identity{
		AppName:  in.AppName,
		UserID:   in.UserID,
		UserName: in.UserName,
		Role:     in.Role,
	}, in.Password, now, s.loc)
	if err != nil {
		log.Error(ctx, "issue token failed", "error", err)
		return nil, err
	}

	cred := &domain.Credential{
		ID:           uuid.NewString(),
		AppName:      in.AppName,
		UserID:       in.UserID,
		UserName:     in.UserName,
		PasswordHash: issued.PasswordHash,
		Token:        issued.Token,
		Role:         in.Role,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}
	if err := s.store.Create(ctx, cred); err != nil {
		// A concurrent signup can win between the lookups and the insert.
		switch {
		case errors.Is(err, domain.ErrUserIDTaken):
			return nil, domain.ErrUserIDTaken
		case errors.Is(err, domain.ErrUserNameTaken):
			return nil, domain.ErrUserNameTaken
		}
		log.Error(ctx, "create credential failed", "error", err)
		return nil, fmt.Errorf("create credential: %w", err)
	}

	log.Info(ctx, "credential created", "user_id", cred.UserID)
	return sanitize(cred), nil
}

// Login authenticates by user name and password and reports the state of
// the stored token. An unknown user and a wrong password are both
// ErrUserNotExist.
func (s *Service) Login(ctx context.Context, in LoginInput) (domain.Outcome, error) {
	in.AppName = strings.TrimSpace(in.AppName)
	if err := requireFields("app_name", in.AppName, "user_name", in.UserName, "password", in.Password); err != nil {
		return domain.OutcomeUnknown, err
	}
	log := s.log.With("collection", in.AppName, "operation", "login")

	cred, err := s.findByPassword(ctx, in.AppName, in.UserName, in.Password)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return domain.OutcomeUnknown, domain.ErrUserNotExist
		}
		log.Error(ctx, "credential lookup failed", "error", err)
		return domain.OutcomeUnknown, err
	}

	outcome := s.auth.Validate(cred.Token, s.nowFunc(), s.loc)
	if outcome != domain.OutcomeValid {
		log.Info(ctx, "stored token rejected", "user_id", cred.UserID, "outcome", outcome.String())
	}
	return outcome, nil
}

// Renew replaces the password and token of an existing credential. The
// returned credential carries no hash or token.
func (s *Service) Renew(ctx context.Context, in RenewInput) (*domain.Credential, error) {
	in.AppName = strings.TrimSpace(in.AppName)
	if err := requireFields(
		"app_name", in.AppName,
		"user_name", in.UserName,
		"old_password", in.OldPassword,
		"new_password", in.NewPassword,
	); err != nil {
		return nil, err
	}
	log := s.log.With("collection", in.AppName, "operation", "renew")

	current, err := s.findByPassword(ctx, in.AppName, in.UserName, in.OldPassword)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return nil, domain.ErrCredentialMismatch
		}
		log.Error(ctx, "credential lookup failed", "error", err)
		return nil, err
	}

	if s.auth.VerifyPassword(in.NewPassword, current.PasswordHash) {
		return nil, domain.ErrPasswordReuse
	}

	now := s.nowFunc()
	issued, err := s.auth.Issue(domain.Identity{
		AppName:  current.AppName,
		UserID:   current.UserID,
		UserName: current.UserName,
		Role:     current.Role,
	}, in.NewPassword, now, s.loc)
	if err != nil {
		log.Error(ctx, "issue token failed", "error", err)
		return nil, err
	}

	if err := s.store.EnsureTenant(ctx, in.AppName); err != nil {
		log.Error(ctx, "ensure tenant failed", "error", err)
		return nil, fmt.Errorf("ensure tenant: %w", err)
	}

	renewed := *current
	renewed.PasswordHash = issued.PasswordHash
	renewed.Token = issued.Token
	renewed.UpdatedAt = now.UTC()

	result, err := s.store.Upsert(ctx, &renewed)
	if err != nil {
		log.Error(ctx, "upsert credential failed", "error", err)
		return nil, fmt.Errorf("upsert credential: %w", err)
	}

	log.Info(ctx, "credential renewed", "user_id", renewed.UserID, "result", result.String())
	return sanitize(&renewed), nil
}

// findByPassword looks the credential up by the hash of password.
//
// Every miss spends exactly one more verification. A record whose hash
// came from another algorithm or parameter set (a legacy bcrypt hash or a
// previous deployment setting) is verified against password; in every
// other case the exact lookup already proved the password wrong and the
// decoy hash is verified instead.
func (s *Service) findByPassword(ctx context.Context, tenant, userName, password string) (*domain.Credential, error) {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cred, err := s.store.GetByCredentials(ctx, tenant, userName, hash)
	if err == nil {
		return cred, nil
	}
	if !errors.Is(err, domain.ErrCredentialNotFound) {
		return nil, fmt.Errorf("lookup credentials: %w", err)
	}

	cred, err = s.store.GetByUserName(ctx, tenant, userName)
	if err != nil && !errors.Is(err, domain.ErrCredentialNotFound) {
		return nil, fmt.Errorf("lookup user name: %w", err)
	}
	if err != nil || hashPrefix(cred.PasswordHash) == hashPrefix(hash) {
		s.auth.VerifyPassword(password, s.decoy)
		return nil, domain.ErrCredentialNotFound
	}
	if !s.auth.VerifyPassword(password, cred.PasswordHash) {
		return nil, domain.ErrCredentialNotFound
	}
	return cred, nil
}

// hashPrefix strips the derived key from an encoded hash, leaving the
// algorithm, parameters and salt.
func hashPrefix(encoded string) string {
	if i := strings.LastIndexByte(encoded, '$'); i > 0 {
		return encoded[:i]
	}
	return encoded
}

func requireFields(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

func sanitize(c *domain.Credential) *domain.Credential {
	if c == nil {
		return nil
	}
	copy := *c
	copy.PasswordHash = ""
	copy.Token = ""
	return &copy
}
