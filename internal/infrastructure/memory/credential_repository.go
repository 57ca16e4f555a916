// Package memory provides an in-process credential store for development and tests.
package memory

import (
	"context"
	"sync"

	domain "authapi/backend/internal/domain/auth"
)

type tenant struct {
	byName map[string]*domain.Credential
	byID   map[int64]string
}

// CredentialRepository keeps credentials in maps keyed by tenant.
type CredentialRepository struct {
	mu      sync.RWMutex
	tenants map[string]*tenant
}

var _ domain.CredentialRepository = (*CredentialRepository)(nil)

// NewCredentialRepository constructs an empty store.
func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{tenants: make(map[string]*tenant)}
}

// EnsureTenant creates the namespace if missing.
func (r *CredentialRepository) EnsureTenant(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[name]; !ok {
		r.tenants[name] = &tenant{
			byName: make(map[string]*domain.Credential),
			byID:   make(map[int64]string),
		}
	}
	return nil
}

// GetByUserID fetches a credential by user id.
func (r *CredentialRepository) GetByUserID(_ context.Context, name string, userID int64) (*domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[name]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	userName, ok := t.byID[userID]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	return clone(t.byName[userName]), nil
}

// GetByUserName fetches a credential by user name.
func (r *CredentialRepository) GetByUserName(_ context.Context, name, userName string) (*domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[name]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	c, ok := t.byName[userName]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	return clone(c), nil
}

// GetByCredentials fetches a credential matching user name and password hash.
func (r *CredentialRepository) GetByCredentials(ctx context.Context, name, userName, passwordHash string) (*domain.Credential, error) {
	c, err := r.GetByUserName(ctx, name, userName)
	if err != nil {
		return nil, err
	}
	if c.PasswordHash != passwordHash {
		return nil, domain.ErrCredentialNotFound
	}
	return c, nil
}

// Create inserts a credential, enforcing both uniqueness keys atomically.
func (r *CredentialRepository) Create(_ context.Context, cred *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[cred.AppName]
	if !ok {
		return domain.ErrTenantNotFound
	}
	if _, ok := t.byID[cred.UserID]; ok {
		return domain.ErrUserIDTaken
	}
	if _, ok := t.byName[cred.UserName]; ok {
		return domain.ErrUserNameTaken
	}
	t.byName[cred.UserName] = clone(cred)
	t.byID[cred.UserID] = cred.UserName
	return nil
}

// Upsert replaces the credential keyed by user name or inserts it.
func (r *CredentialRepository) Upsert(_ context.Context, cred *domain.Credential) (domain.UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[cred.AppName]
	if !ok {
		return 0, domain.ErrTenantNotFound
	}

	if owner, ok := t.byID[cred.UserID]; ok && owner != cred.UserName {
		return 0, domain.ErrUserIDTaken
	}

	result := domain.UpsertInserted
	if existing, ok := t.byName[cred.UserName]; ok {
		result = domain.UpsertUpdated
		delete(t.byID, existing.UserID)
	}
	t.byName[cred.UserName] = clone(cred)
	t.byID[cred.UserID] = cred.UserName
	return result, nil
}

// Delete removes a credential by user name.
func (r *CredentialRepository) Delete(_ context.Context, name, userName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[name]
	if !ok {
		return domain.ErrCredentialNotFound
	}
	c, ok := t.byName[userName]
	if !ok {
		return domain.ErrCredentialNotFound
	}
	delete(t.byName, userName)
	delete(t.byID, c.UserID)
	return nil
}

func clone(c *domain.Credential) *domain.Credential {
	cp := *c
	return &cp
}
