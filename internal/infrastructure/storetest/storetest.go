// Package storetest holds behaviour tests shared by every credential store.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	domain "authapi/backend/internal/domain/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) domain.CredentialRepository

func credential(tenant string, userID int64, userName string) *domain.Credential {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Credential{
		ID:           uuid.NewString(),
		AppName:      tenant,
		UserID:       userID,
		UserName:     userName,
		PasswordHash: "hash-" + userName,
		Token:        "token-" + userName,
		Role:         "member",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Run exercises the credential store contract against stores built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("EnsureTenantIsIdempotent", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.EnsureTenant(ctx, "billing"))
		require.NoError(t, repo.EnsureTenant(ctx, "billing"))
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.EnsureTenant(ctx, "billing"))
		want := credential("billing", 1, "alice")
		require.NoError(t, repo.Create(ctx, want))

		got, err := repo.GetByUserID(ctx, "billing", 1)
		require.NoError(t, err)
		assertSame(t, want, got)

		got, err = repo.GetByUserName(ctx, "billing", "alice")
		require.NoError(t, err)
		assertSame(t, want, got)

		got, err = repo.GetByCredentials(ctx, "billing", "alice", "hash-alice")
		require.NoError(t, err)
		assertSame(t, want, got)

		_, err = repo.GetByCredentials(ctx, "billing", "alice", "other-hash")
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
	})

	t.Run("MissingRecords", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetByUserID(ctx, "nowhere", 1)
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
		_, err = repo.GetByUserName(ctx, "nowhere", "alice")
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)

		require.NoError(t, repo.EnsureTenant(ctx, "billing"))
		_, err = repo.GetByUserName(ctx, "billing", "alice")
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "billing", "alice"), domain.ErrCredentialNotFound)
	})

	t.Run("CreateRequiresTenant", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Create(ctx, credential("ghost", 1, "alice"))
		assert.ErrorIs(t, err, domain.ErrTenantNotFound)
	})

	t.Run("UniquenessPerTenant", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.EnsureTenant(ctx, "billing"))
		require.NoError(t, repo.EnsureTenant(ctx, "shipping"))
		require.NoError(t, repo.Create(ctx, credential("billing", 1, "alice")))

		assert.ErrorIs(t, repo.Create(ctx, credential("billing", 1, "bob")), domain.ErrUserIDTaken)
		assert.ErrorIs(t, repo.Create(ctx, credential("billing", 2, "alice")), domain.ErrUserNameTaken)

		// Tenants are isolated.
		require.NoError(t, repo.Create(ctx, credential("shipping", 1, "alice")))
		_, err := repo.GetByUserName(ctx, "shipping", "alice")
		require.NoError(t, err)
	})

	t.Run("Upsert", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.EnsureTenant(ctx, "billing"))

		first := credential("billing", 7, "carol")
		res, err := repo.Upsert(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, domain.UpsertInserted, res)

		updated := *first
		updated.PasswordHash = "hash-new"
		updated.Token = "token-new"
		updated.UpdatedAt = first.UpdatedAt.Add(time.Hour)
		res, err = repo.Upsert(ctx, &updated)
		require.NoError(t, err)
		assert.Equal(t, domain.UpsertUpdated, res)

		got, err := repo.GetByCredentials(ctx, "billing", "carol", "hash-new")
		require.NoError(t, err)
		assert.Equal(t, "token-new", got.Token)
		assert.Equal(t, int64(7), got.UserID)

		_, err = repo.GetByCredentials(ctx, "billing", "carol", "hash-carol")
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.EnsureTenant(ctx, "billing"))
		require.NoError(t, repo.Create(ctx, credential("billing", 1, "alice")))
		require.NoError(t, repo.Delete(ctx, "billing", "alice"))

		_, err := repo.GetByUserID(ctx, "billing", 1)
		assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
		require.NoError(t, repo.Create(ctx, credential("billing", 1, "alice")))
	})

	t.Run("ConcurrentCreateSingleWinner", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.EnsureTenant(ctx, "billing"))

		const workers = 8
		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			won int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := repo.Create(ctx, credential("billing", int64(100+i), "racer"))
				if err == nil {
					mu.Lock()
					won++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, domain.ErrUserNameTaken)
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 1, won)
	})
}

func assertSame(t *testing.T, want, got *domain.Credential) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.AppName, got.AppName)
	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.UserName, got.UserName)
	assert.Equal(t, want.PasswordHash, got.PasswordHash)
	assert.Equal(t, want.Token, got.Token)
	assert.Equal(t, want.Role, got.Role)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", want.CreatedAt, got.CreatedAt)
}
