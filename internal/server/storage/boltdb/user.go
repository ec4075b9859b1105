package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/eduhub/internal/models"
	"github.com/iudanet/eduhub/internal/server/storage"
)

// CreateUser creates a new user and its unique indexes in one transaction
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		if users.Get([]byte(user.ID)) != nil {
			return storage.ErrUserAlreadyExists
		}

		if err := claimIndexes(tx, user, ""); err != nil {
			return err
		}

		return putUser(users, user)
	})
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user *models.User

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		user, err = getUser(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByUsername retrieves user by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUserByIndex(bucketByUsername, username)
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserByIndex(bucketByEmail, email)
}

// GetUserByPhone retrieves user by phone number
func (s *Storage) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.getUserByIndex(bucketByPhone, phone)
}

func (s *Storage) getUserByIndex(index []byte, value string) (*models.User, error) {
	if value == "" {
		return nil, storage.ErrUserNotFound
	}

	var user *models.User

	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(index).Get([]byte(value))
		if id == nil {
			return storage.ErrUserNotFound
		}

		var err error
		user, err = getUser(tx, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateProfile updates full name, email and phone
func (s *Storage) UpdateProfile(ctx context.Context, user *models.User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		current, err := getUser(tx, user.ID)
		if err != nil {
			return err
		}

		updated := *current
		updated.FullName = user.FullName
		updated.Email = user.Email
		updated.Phone = user.Phone
		updated.UpdatedAt = user.UpdatedAt

		if err := claimIndexes(tx, &updated, current.ID); err != nil {
			return err
		}
		if err := releaseStaleIndexes(tx, current, &updated); err != nil {
			return err
		}

		return putUser(tx.Bucket(bucketUsers), &updated)
	})
}

// UpdatePasswordHash replaces the password hash and optionally clears the refresh token
func (s *Storage) UpdatePasswordHash(ctx context.Context, userID, passwordHash string, clearRefresh bool) error {
	return s.mutate(userID, func(user *models.User) error {
		user.PasswordHash = passwordHash
		if clearRefresh {
			user.RefreshToken = ""
		}
		return nil
	})
}

// SetRefreshToken unconditionally replaces the current refresh token
func (s *Storage) SetRefreshToken(ctx context.Context, userID, token string) error {
	return s.mutate(userID, func(user *models.User) error {
		user.RefreshToken = token
		return nil
	})
}

// RotateRefreshToken compares and swaps the refresh token inside one write transaction
func (s *Storage) RotateRefreshToken(ctx context.Context, userID, expected, next string) error {
	return s.mutate(userID, func(user *models.User) error {
		if expected == "" || user.RefreshToken != expected {
			return storage.ErrRefreshTokenMismatch
		}
		user.RefreshToken = next
		return nil
	})
}

// ClearRefreshToken removes the current refresh token
func (s *Storage) ClearRefreshToken(ctx context.Context, userID string) error {
	return s.SetRefreshToken(ctx, userID, "")
}

// DeleteUser deletes user and its index entries
func (s *Storage) DeleteUser(ctx context.Context, userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}

		if err := releaseStaleIndexes(tx, user, &models.User{}); err != nil {
			return err
		}

		if err := tx.Bucket(bucketUsers).Delete([]byte(userID)); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		return nil
	})
}

// mutate loads a user, applies fn and writes it back in a single transaction.
// Returning an error from fn rolls the transaction back.
func (s *Storage) mutate(userID string, fn func(user *models.User) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}

		if err := fn(user); err != nil {
			return err
		}
		user.UpdatedAt = time.Now()

		return putUser(tx.Bucket(bucketUsers), user)
	})
}

func getUser(tx *bbolt.Tx, userID string) (*models.User, error) {
	data := tx.Bucket(bucketUsers).Get([]byte(userID))
	if data == nil {
		return nil, storage.ErrUserNotFound
	}

	user := &models.User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return user, nil
}

func putUser(bucket *bbolt.Bucket, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := bucket.Put([]byte(user.ID), data); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

type indexEntry struct {
	bucket []byte
	value  string
}

func indexEntries(user *models.User) []indexEntry {
	return []indexEntry{
		{bucket: bucketByUsername, value: user.Username},
		{bucket: bucketByEmail, value: user.Email},
		{bucket: bucketByPhone, value: user.Phone},
	}
}

// claimIndexes points every non-empty unique value of user at user.ID.
// A value already owned by an account other than owner is a conflict.
func claimIndexes(tx *bbolt.Tx, user *models.User, owner string) error {
	entries := indexEntries(user)

	for _, e := range entries {
		if e.value == "" {
			continue
		}
		existing := tx.Bucket(e.bucket).Get([]byte(e.value))
		if existing != nil && string(existing) != owner {
			return storage.ErrUserAlreadyExists
		}
	}

	for _, e := range entries {
		if e.value == "" {
			continue
		}
		if err := tx.Bucket(e.bucket).Put([]byte(e.value), []byte(user.ID)); err != nil {
			return fmt.Errorf("failed to write index: %w", err)
		}
	}

	return nil
}

// releaseStaleIndexes drops index values of before that after no longer uses.
func releaseStaleIndexes(tx *bbolt.Tx, before, after *models.User) error {
	old := indexEntries(before)
	cur := indexEntries(after)

	for i, e := range old {
		if e.value == "" || e.value == cur[i].value {
			continue
		}
		if err := tx.Bucket(e.bucket).Delete([]byte(e.value)); err != nil {
			return fmt.Errorf("failed to release index: %w", err)
		}
	}

	return nil
}
