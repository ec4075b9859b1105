package models

import "time"

// UserType is the coarse role tag attached to an account.
// It is stored and returned but not enforced by the service.
type UserType string

const (
	UserTypeUser       UserType = "user"
	UserTypeAdmin      UserType = "admin"
	UserTypeModerator  UserType = "moderator"
	UserTypeSuperAdmin UserType = "super-admin"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeUser, UserTypeAdmin, UserTypeModerator, UserTypeSuperAdmin:
		return true
	}
	return false
}

// User is the persisted account record.
// PasswordHash and RefreshToken never leave the server; use Public for responses.
type User struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	Avatar       string    `json:"avatar"`
	UserType     UserType  `json:"user_type"`
	PasswordHash string    `json:"password_hash"`
	RefreshToken string    `json:"refresh_token"`
	FCMToken     string    `json:"fcm_token"`
	Verified     bool      `json:"verified"`
}

// PublicUser is the sanitized view of User.
type PublicUser struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	UserType  UserType  `json:"userType"`
	Verified  bool      `json:"userVerified"`
}

// Public strips the password hash and refresh token.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Avatar:    u.Avatar,
		UserType:  u.UserType,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
