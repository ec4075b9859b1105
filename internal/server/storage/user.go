package storage

import (
	"context"

	"github.com/iudanet/eduhub/internal/models"
)

// UserStorage defines interface for account persistence.
//
// Implementations own the password hash and the current refresh token of
// each account. Lookups by username and email expect already normalized
// (trimmed, lowercased) values.
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if username, email or phone is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetUserByUsername retrieves user by username
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByEmail retrieves user by email
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByPhone retrieves user by phone number
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)

	// UpdateProfile updates full name, email and phone.
	// Password hash and refresh token are never touched.
	// Returns ErrUserNotFound or ErrUserAlreadyExists
	UpdateProfile(ctx context.Context, user *models.User) error

	// UpdatePasswordHash replaces the password hash. When clearRefresh is set
	// the current refresh token is cleared in the same write.
	// Returns ErrUserNotFound if user doesn't exist
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string, clearRefresh bool) error

	// SetRefreshToken unconditionally replaces the current refresh token
	// Returns ErrUserNotFound if user doesn't exist
	SetRefreshToken(ctx context.Context, userID, token string) error

	// RotateRefreshToken replaces the current refresh token with next only if
	// it currently equals expected. The compare and the write are atomic.
	// Returns ErrRefreshTokenMismatch if the stored token differs,
	// ErrUserNotFound if user doesn't exist
	RotateRefreshToken(ctx context.Context, userID, expected, next string) error

	// ClearRefreshToken removes the current refresh token
	// Returns ErrUserNotFound if user doesn't exist
	ClearRefreshToken(ctx context.Context, userID string) error

	// DeleteUser deletes user by ID
	// Returns ErrUserNotFound if user doesn't exist
	DeleteUser(ctx context.Context, userID string) error

	// Close releases underlying resources
	Close() error
}
