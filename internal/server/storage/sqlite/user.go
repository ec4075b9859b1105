package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/iudanet/eduhub/internal/models"
	"github.com/iudanet/eduhub/internal/server/storage"
)

const userColumns = `id, username, email, full_name, phone, avatar, user_type,
	password_hash, refresh_token, fcm_token, verified, created_at, updated_at`

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.Phone,
		user.Avatar,
		string(user.UserType),
		user.PasswordHash,
		user.RefreshToken,
		user.FCMToken,
		user.Verified,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.getUserBy(ctx, "id", userID)
}

// GetUserByUsername retrieves user by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUserBy(ctx, "username", username)
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserBy(ctx, "email", email)
}

// GetUserByPhone retrieves user by phone number
func (s *Storage) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	if phone == "" {
		return nil, storage.ErrUserNotFound
	}
	return s.getUserBy(ctx, "phone", phone)
}

// getUserBy loads a single user; column is always a constant from this file.
func (s *Storage) getUserBy(ctx context.Context, column, value string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`

	user := &models.User{}
	var userType string

	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.Phone,
		&user.Avatar,
		&userType,
		&user.PasswordHash,
		&user.RefreshToken,
		&user.FCMToken,
		&user.Verified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.UserType = models.UserType(userType)

	return user, nil
}

// UpdateProfile updates full name, email and phone
func (s *Storage) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET full_name = ?, email = ?, phone = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		user.FullName,
		user.Email,
		user.Phone,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return expectOneRow(result)
}

// UpdatePasswordHash replaces the password hash and optionally clears the refresh token
func (s *Storage) UpdatePasswordHash(ctx context.Context, userID, passwordHash string, clearRefresh bool) error {
	query := `
		UPDATE users
		SET password_hash = ?,
		    refresh_token = CASE WHEN ? THEN '' ELSE refresh_token END,
		    updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, passwordHash, clearRefresh, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return expectOneRow(result)
}

// SetRefreshToken unconditionally replaces the current refresh token
func (s *Storage) SetRefreshToken(ctx context.Context, userID, token string) error {
	query := `UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, token, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	return expectOneRow(result)
}

// RotateRefreshToken swaps expected for next in a single conditional update
func (s *Storage) RotateRefreshToken(ctx context.Context, userID, expected, next string) error {
	if expected == "" {
		return storage.ErrRefreshTokenMismatch
	}

	query := `
		UPDATE users
		SET refresh_token = ?, updated_at = ?
		WHERE id = ? AND refresh_token = ?
	`

	result, err := s.db.ExecContext(ctx, query, next, time.Now(), userID, expected)
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 1 {
		return nil
	}

	// Nothing matched: tell a missing account apart from a stale token.
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return err
	}

	return storage.ErrRefreshTokenMismatch
}

// ClearRefreshToken removes the current refresh token
func (s *Storage) ClearRefreshToken(ctx context.Context, userID string) error {
	return s.SetRefreshToken(ctx, userID, "")
}

// DeleteUser deletes user by ID
func (s *Storage) DeleteUser(ctx context.Context, userID string) error {
	query := `DELETE FROM users WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
