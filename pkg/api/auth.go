package api

import "github.com/iudanet/eduhub/internal/models"

// RegisterRequest is the body of POST /api/v1/users/register
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	UserType string `json:"userType,omitempty"`
	FCMToken string `json:"fcmToken,omitempty"`
}

// LoginRequest is the body of POST /api/v1/users/login.
// Either email or phone identifies the account.
type LoginRequest struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// LoginResponse is the data of a successful login
type LoginResponse struct {
	User         *models.PublicUser `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

// RefreshRequest is the optional body of POST /api/v1/users/refresh-token.
// The refreshToken cookie takes precedence.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse is the data of a successful refresh
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest is the body of PATCH /api/v1/users/change-password
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UpdateAccountRequest is the body of PATCH /api/v1/users/update-account
type UpdateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// LookupRequest is the body of POST /api/v1/users/lookup
type LookupRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}
