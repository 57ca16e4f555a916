package auth

import "context"

// CredentialRepository is the tenant-partitioned credential store.
//
// Every method is scoped by tenant (the app name). Lookups that find nothing
// return ErrCredentialNotFound; Create reports uniqueness violations as
// ErrUserIDTaken or ErrUserNameTaken.
type CredentialRepository interface {
	EnsureTenant(ctx context.Context, tenant string) error
	GetByUserID(ctx context.Context, tenant string, userID int64) (*Credential, error)
	GetByUserName(ctx context.Context, tenant, userName string) (*Credential, error)
	GetByCredentials(ctx context.Context, tenant, userName, passwordHash string) (*Credential, error)
	Create(ctx context.Context, cred *Credential) error
	// Upsert replaces the record keyed by (AppName, UserName) or inserts it.
	Upsert(ctx context.Context, cred *Credential) (UpsertResult, error)
	Delete(ctx context.Context, tenant, userName string) error
}
