package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/iudanet/eduhub/internal/models"
)

// UsernamePattern определяет допустимый формат username после нормализации
// Только строчные латинские буквы, цифры, точка и нижнее подчеркивание
var UsernamePattern = regexp.MustCompile(`^[a-z0-9_.]{3,32}$`)

// phonePattern accepts an optional leading + followed by 6-15 digits
var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 32
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 6
	// MaxPasswordLen is the bcrypt input limit in bytes
	MaxPasswordLen = 72
)

// NormalizeUsername trims and lowercases a username
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername проверяет нормализованный username
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters (a-z), numbers (0-9), dots and underscores")
	}

	return nil
}

// ValidateEmail checks that email is a bare address like alice@x.com
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return fmt.Errorf("invalid email format")
	}

	return nil
}

// ValidatePhone checks an optional phone number; empty is allowed
func ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}

	if !phonePattern.MatchString(phone) {
		return fmt.Errorf("invalid phone format")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLen)
	}

	return nil
}

// ValidateFullName requires a non-blank name
func ValidateFullName(fullName string) error {
	if strings.TrimSpace(fullName) == "" {
		return fmt.Errorf("full name cannot be empty")
	}
	return nil
}

// ValidateUserType checks the role tag
func ValidateUserType(userType models.UserType) error {
	if !userType.Valid() {
		return fmt.Errorf("user type must be one of: user, admin, moderator, super-admin")
	}
	return nil
}
