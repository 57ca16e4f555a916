package postgres

import (
	"context"
	"errors"

	domain "authapi/backend/internal/domain/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CredentialRepository persists credentials in PostgreSQL, one row per
// (tenant, user) with the tenant as a foreign key.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

var _ domain.CredentialRepository = (*CredentialRepository)(nil)

// NewCredentialRepository constructs a repository.
func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

const credentialColumns = `id, app_name, user_id, user_name, password_hash, token, role, created_at, updated_at`

// EnsureTenant creates the tenant namespace if it does not exist.
func (r *CredentialRepository) EnsureTenant(ctx context.Context, tenant string) error {
	const query = `INSERT INTO tenants (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, tenant)
	return err
}

// GetByUserID fetches a credential by user id.
func (r *CredentialRepository) GetByUserID(ctx context.Context, tenant string, userID int64) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE app_name = $1 AND user_id = $2`
	return r.getOne(ctx, query, tenant, userID)
}

// GetByUserName fetches a credential by user name.
func (r *CredentialRepository) GetByUserName(ctx context.Context, tenant, userName string) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE app_name = $1 AND user_name = $2`
	return r.getOne(ctx, query, tenant, userName)
}

// GetByCredentials fetches a credential matching user name and password hash.
func (r *CredentialRepository) GetByCredentials(ctx context.Context, tenant, userName, passwordHash string) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE app_name = $1 AND user_name = $2 AND password_hash = $3`
	return r.getOne(ctx, query, tenant, userName, passwordHash)
}

// Create inserts a new credential record.
func (r *CredentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	const query = `
INSERT INTO credentials (id, app_name, user_id, user_name, password_hash, token, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.pool.Exec(ctx, query,
		cred.ID,
		cred.AppName,
		cred.UserID,
		cred.UserName,
		cred.PasswordHash,
		cred.Token,
		cred.Role,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// Upsert replaces the credential keyed by (app_name, user_name) or inserts it.
// xmax is zero only for a freshly inserted row version.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *domain.Credential) (domain.UpsertResult, error) {
	const query = `
INSERT INTO credentials (id, app_name, user_id, user_name, password_hash, token, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (app_name, user_name) DO UPDATE
SET user_id = EXCLUDED.user_id,
    password_hash = EXCLUDED.password_hash,
    token = EXCLUDED.token,
    role = EXCLUDED.role,
    updated_at = EXCLUDED.updated_at
RETURNING (xmax = 0)
`
	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		cred.ID,
		cred.AppName,
		cred.UserID,
		cred.UserName,
		cred.PasswordHash,
		cred.Token,
		cred.Role,
		cred.CreatedAt,
		cred.UpdatedAt,
	).Scan(&inserted)
	if err != nil {
		return 0, mapWriteError(err)
	}
	if inserted {
		return domain.UpsertInserted, nil
	}
	return domain.UpsertUpdated, nil
}

// Delete removes a credential by user name.
func (r *CredentialRepository) Delete(ctx context.Context, tenant, userName string) error {
	const query = `DELETE FROM credentials WHERE app_name = $1 AND user_name = $2`
	ct, err := r.pool.Exec(ctx, query, tenant, userName)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

func (r *CredentialRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Credential, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	cred, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, err
	}
	return cred, nil
}

func mapWriteError(err error) error {
	switch {
	case isUniqueViolation(err):
		if violatedConstraint(err) == constraintUserID {
			return domain.ErrUserIDTaken
		}
		return domain.ErrUserNameTaken
	case isForeignKeyViolation(err):
		return domain.ErrTenantNotFound
	}
	return err
}

func scanCredential(row pgx.Row) (*domain.Credential, error) {
	var c domain.Credential
	err := row.Scan(
		&c.ID,
		&c.AppName,
		&c.UserID,
		&c.UserName,
		&c.PasswordHash,
		&c.Token,
		&c.Role,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
