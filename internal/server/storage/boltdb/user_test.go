package boltdb

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/eduhub/internal/models"
	"github.com/iudanet/eduhub/internal/server/storage"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func newTestUser(username, email, phone string) *models.User {
	now := time.Now()
	return &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     "Test " + username,
		Phone:        phone,
		UserType:     models.UserTypeUser,
		PasswordHash: "$2a$10$" + username,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestStorage_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	user := newTestUser("alice", "alice@x.com", "+100000001")
	require.NoError(t, s.CreateUser(ctx, user))

	lookups := []struct {
		name string
		get  func() (*models.User, error)
	}{
		{name: "by id", get: func() (*models.User, error) { return s.GetUserByID(ctx, user.ID) }},
		{name: "by username", get: func() (*models.User, error) { return s.GetUserByUsername(ctx, "alice") }},
		{name: "by email", get: func() (*models.User, error) { return s.GetUserByEmail(ctx, "alice@x.com") }},
		{name: "by phone", get: func() (*models.User, error) { return s.GetUserByPhone(ctx, "+100000001") }},
	}

	for _, tt := range lookups {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.get()
			require.NoError(t, err)
			assert.Equal(t, user.ID, got.ID)
			assert.Equal(t, user.PasswordHash, got.PasswordHash)
		})
	}

	_, err := s.GetUserByPhone(ctx, "")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	_, err = s.GetUserByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestStorage_CreateUser_Duplicates(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	require.NoError(t, s.CreateUser(ctx, newTestUser("alice", "alice@x.com", "+100000001")))
	require.NoError(t, s.CreateUser(ctx, newTestUser("bob", "bob@x.com", "")))
	require.NoError(t, s.CreateUser(ctx, newTestUser("carol", "carol@x.com", "")))

	tests := []struct {
		user *models.User
		name string
	}{
		{name: "duplicate username", user: newTestUser("alice", "other@x.com", "")},
		{name: "duplicate email", user: newTestUser("other", "alice@x.com", "")},
		{name: "duplicate phone", user: newTestUser("other", "other@x.com", "+100000001")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.CreateUser(ctx, tt.user), storage.ErrUserAlreadyExists)

			// A rejected create must not leave partial index entries behind.
			_, err := s.GetUserByEmail(ctx, "other@x.com")
			assert.ErrorIs(t, err, storage.ErrUserNotFound)
		})
	}
}

func TestStorage_UpdateProfile_MovesIndexes(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	alice := newTestUser("alice", "alice@x.com", "+100000001")
	bob := newTestUser("bob", "bob@x.com", "")
	require.NoError(t, s.CreateUser(ctx, alice))
	require.NoError(t, s.CreateUser(ctx, bob))

	update := *alice
	update.Email = "alice2@x.com"
	update.Phone = ""
	update.FullName = "Alice Updated"
	update.PasswordHash = "ignored"
	require.NoError(t, s.UpdateProfile(ctx, &update))

	_, err := s.GetUserByEmail(ctx, "alice@x.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	_, err = s.GetUserByPhone(ctx, "+100000001")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	got, err := s.GetUserByEmail(ctx, "alice2@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice Updated", got.FullName)
	assert.Equal(t, alice.PasswordHash, got.PasswordHash)

	// The released email is free for another account.
	taken := *bob
	taken.Email = "alice@x.com"
	require.NoError(t, s.UpdateProfile(ctx, &taken))

	conflict := *bob
	conflict.Email = "alice2@x.com"
	assert.ErrorIs(t, s.UpdateProfile(ctx, &conflict), storage.ErrUserAlreadyExists)

	assert.ErrorIs(t, s.UpdateProfile(ctx, newTestUser("ghost", "ghost@x.com", "")), storage.ErrUserNotFound)
}

func TestStorage_RefreshToken_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	user := newTestUser("alice", "alice@x.com", "")
	require.NoError(t, s.CreateUser(ctx, user))

	require.NoError(t, s.SetRefreshToken(ctx, user.ID, "r1"))
	assert.ErrorIs(t, s.RotateRefreshToken(ctx, user.ID, "stale", "r2"), storage.ErrRefreshTokenMismatch)
	require.NoError(t, s.RotateRefreshToken(ctx, user.ID, "r1", "r2"))
	assert.ErrorIs(t, s.RotateRefreshToken(ctx, user.ID, "r1", "r3"), storage.ErrRefreshTokenMismatch)

	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "r2", got.RefreshToken)

	require.NoError(t, s.UpdatePasswordHash(ctx, user.ID, "hash-2", false))
	got, err = s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-2", got.PasswordHash)
	assert.Equal(t, "r2", got.RefreshToken)

	require.NoError(t, s.UpdatePasswordHash(ctx, user.ID, "hash-3", true))
	got, err = s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.RefreshToken)

	assert.ErrorIs(t, s.RotateRefreshToken(ctx, user.ID, "", "r4"), storage.ErrRefreshTokenMismatch)
	assert.ErrorIs(t, s.RotateRefreshToken(ctx, "nonexistent", "r2", "r4"), storage.ErrUserNotFound)
	assert.ErrorIs(t, s.ClearRefreshToken(ctx, "nonexistent"), storage.ErrUserNotFound)
}

func TestStorage_RotateRefreshToken_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	user := newTestUser("alice", "alice@x.com", "")
	require.NoError(t, s.CreateUser(ctx, user))
	require.NoError(t, s.SetRefreshToken(ctx, user.ID, "shared"))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.RotateRefreshToken(ctx, user.ID, "shared", uuid.NewString()); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestStorage_DeleteUser(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	user := newTestUser("alice", "alice@x.com", "+100000001")
	require.NoError(t, s.CreateUser(ctx, user))
	require.NoError(t, s.DeleteUser(ctx, user.ID))

	_, err := s.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	_, err = s.GetUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	// Unique values are free again.
	require.NoError(t, s.CreateUser(ctx, newTestUser("alice", "alice@x.com", "+100000001")))

	assert.ErrorIs(t, s.DeleteUser(ctx, user.ID), storage.ErrUserNotFound)
}

func TestReleaseStaleIndexes_ReportsWriteError(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	user := newTestUser("alice", "alice@x.com", "+100000001")
	require.NoError(t, s.CreateUser(ctx, user))

	moved := *user
	moved.Email = "liddell@x.com"

	// Deletes fail in a read-only transaction.
	err := s.db.View(func(tx *bbolt.Tx) error {
		return releaseStaleIndexes(tx, user, &moved)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to release index")

	// Nothing is released when the values did not change.
	err = s.db.View(func(tx *bbolt.Tx) error {
		return releaseStaleIndexes(tx, user, user)
	})
	assert.NoError(t, err)

	got, err := s.GetUserByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestStorage_Ping(t *testing.T) {
	s := setupTestStorage(t)
	assert.NoError(t, s.Ping(context.Background()))
}
