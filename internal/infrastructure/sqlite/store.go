// Package sqlite provides a SQLite-backed credential store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	domain "authapi/backend/internal/domain/auth"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schemaSQL string

// CredentialRepository persists credentials in a single SQLite file.
type CredentialRepository struct {
	db        *sql.DB
	writeLock sync.Mutex // modernc sqlite does not support concurrent writers
}

var _ domain.CredentialRepository = (*CredentialRepository)(nil)

// Open opens the database at path and applies the schema.
func Open(path string) (*CredentialRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	return &CredentialRepository{db: db}, nil
}

// Close closes the SQLite handle.
func (r *CredentialRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// EnsureTenant creates the tenant namespace if it does not exist.
func (r *CredentialRepository) EnsureTenant(ctx context.Context, tenant string) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tenants (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING",
		tenant, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("ensure tenant: %w", err)
	}
	return nil
}

const selectCredential = `SELECT id, app_name, user_id, user_name, password_hash, token, role, created_at, updated_at FROM credentials `

// GetByUserID fetches a credential by user id.
func (r *CredentialRepository) GetByUserID(ctx context.Context, tenant string, userID int64) (*domain.Credential, error) {
	return r.getOne(ctx, selectCredential+"WHERE app_name = ? AND user_id = ?", tenant, userID)
}

// GetByUserName fetches a credential by user name.
func (r *CredentialRepository) GetByUserName(ctx context.Context, tenant, userName string) (*domain.Credential, error) {
	return r.getOne(ctx, selectCredential+"WHERE app_name = ? AND user_name = ?", tenant, userName)
}

// GetByCredentials fetches a credential matching user name and password hash.
func (r *CredentialRepository) GetByCredentials(ctx context.Context, tenant, userName, passwordHash string) (*domain.Credential, error) {
	return r.getOne(ctx, selectCredential+"WHERE app_name = ? AND user_name = ? AND password_hash = ?", tenant, userName, passwordHash)
}

// Create inserts a new credential record.
func (r *CredentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (id, app_name, user_id, user_name, password_hash, token, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cred.ID, cred.AppName, cred.UserID, cred.UserName, cred.PasswordHash, cred.Token, cred.Role,
		toMillis(cred.CreatedAt), toMillis(cred.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert credential: %w", mapWriteError(err))
	}
	return nil
}

// Upsert replaces the credential keyed by (app_name, user_name) or inserts it.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *domain.Credential) (result domain.UpsertResult, err error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM credentials WHERE app_name = ? AND user_name = ?",
		cred.AppName, cred.UserName,
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("probe credential: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (id, app_name, user_id, user_name, password_hash, token, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (app_name, user_name) DO UPDATE SET
			user_id = excluded.user_id,
			password_hash = excluded.password_hash,
			token = excluded.token,
			role = excluded.role,
			updated_at = excluded.updated_at`,
		cred.ID, cred.AppName, cred.UserID, cred.UserName, cred.PasswordHash, cred.Token, cred.Role,
		toMillis(cred.CreatedAt), toMillis(cred.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert credential: %w", mapWriteError(err))
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	if exists > 0 {
		return domain.UpsertUpdated, nil
	}
	return domain.UpsertInserted, nil
}

// Delete removes a credential by user name.
func (r *CredentialRepository) Delete(ctx context.Context, tenant, userName string) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE app_name = ? AND user_name = ?", tenant, userName)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if n == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

func (r *CredentialRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Credential, error) {
	var (
		c                domain.Credential
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &c.AppName, &c.UserID, &c.UserName, &c.PasswordHash, &c.Token, &c.Role, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("query credential: %w", err)
	}
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return &c, nil
}

// mapWriteError translates constraint failures into domain errors. SQLite
// names the violated columns only in the message text.
func mapWriteError(err error) error {
	var liteErr *msqlite.Error
	if !errors.As(err, &liteErr) {
		return err
	}
	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		if strings.Contains(err.Error(), "credentials.user_id") {
			return errors.Join(domain.ErrUserIDTaken, err)
		}
		return errors.Join(domain.ErrUserNameTaken, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return errors.Join(domain.ErrTenantNotFound, err)
	}
	return err
}
