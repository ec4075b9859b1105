package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that a unique field (username, email, phone) is taken
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrRefreshTokenMismatch indicates that the stored refresh token differs from
	// the expected one, i.e. it was already rotated, cleared or never issued
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")
)
