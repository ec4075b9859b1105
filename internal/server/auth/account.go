package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/iudanet/eduhub/internal/models"
	"github.com/iudanet/eduhub/internal/server/storage"
	"github.com/iudanet/eduhub/internal/validation"
)

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
	Phone    string
	Avatar   string
	UserType models.UserType
	FCMToken string
}

// UpdateAccountInput holds the editable profile fields. All are required.
type UpdateAccountInput struct {
	FullName string
	Email    string
	Phone    string
}

// Register creates an account. The password is hashed exactly once here.
func (s *Service) Register(ctx context.Context, in RegisterInput) (pub *models.PublicUser, err error) {
	defer func() { s.observe(OpRegister, err) }()

	username := validation.NormalizeUsername(in.Username)
	email := validation.NormalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	phone := strings.TrimSpace(in.Phone)

	userType := models.UserType(strings.TrimSpace(string(in.UserType)))
	if userType == "" {
		userType = models.UserTypeUser
	}

	checks := []error{
		validation.ValidateUsername(username),
		validation.ValidateEmail(email),
		validation.ValidateFullName(fullName),
		validation.ValidatePassword(in.Password),
		validation.ValidatePhone(phone),
		validation.ValidateUserType(userType),
	}
	for _, check := range checks {
		if check != nil {
			return nil, validationError(check.Error())
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.internal(ctx, "failed to hash password", err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Phone:        phone,
		Avatar:       strings.TrimSpace(in.Avatar),
		UserType:     userType,
		PasswordHash: hash,
		FCMToken:     strings.TrimSpace(in.FCMToken),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			s.logger.WarnContext(ctx, "user already exists", slog.String("username", username))
			return nil, conflictError("email/username already used")
		}
		return nil, s.internal(ctx, "failed to create user", err)
	}

	s.logger.InfoContext(ctx, "user registered successfully",
		slog.String("username", username),
		slog.String("user_id", user.ID))

	return user.Public(), nil
}

// CurrentUser returns the account behind an authenticated request.
// A vanished account means the access token no longer identifies anyone.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, unauthorizedError("invalid access token", err)
		}
		return nil, s.internal(ctx, "failed to get user", err)
	}
	return user.Public(), nil
}

// GetUser returns an account by id.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, notFoundError("user not found")
		}
		return nil, s.internal(ctx, "failed to get user", err)
	}
	return user.Public(), nil
}

// FindUser looks an account up by email or phone.
func (s *Service) FindUser(ctx context.Context, email, phone string) (*models.PublicUser, error) {
	email = validation.NormalizeEmail(email)
	phone = strings.TrimSpace(phone)

	if email == "" && phone == "" {
		return nil, validationError("email or phone is required")
	}

	user, err := s.lookup(ctx, email, phone)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, notFoundError("user not found")
		}
		return nil, s.internal(ctx, "failed to get user", err)
	}
	return user.Public(), nil
}

// UpdateAccount changes the profile fields of an account.
func (s *Service) UpdateAccount(ctx context.Context, userID string, in UpdateAccountInput) (*models.PublicUser, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := validation.NormalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)

	if fullName == "" || email == "" || phone == "" {
		return nil, validationError("all fields are required")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, validationError(err.Error())
	}
	if err := validation.ValidatePhone(phone); err != nil {
		return nil, validationError(err.Error())
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, unauthorizedError("invalid access token", err)
		}
		return nil, s.internal(ctx, "failed to get user", err)
	}

	user.FullName = fullName
	user.Email = email
	user.Phone = phone
	user.UpdatedAt = s.now()

	if err := s.store.UpdateProfile(ctx, user); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserAlreadyExists):
			return nil, conflictError("email/phone already used")
		case errors.Is(err, storage.ErrUserNotFound):
			return nil, unauthorizedError("invalid access token", err)
		default:
			return nil, s.internal(ctx, "failed to update user", err)
		}
	}

	s.logger.InfoContext(ctx, "account details updated", slog.String("user_id", userID))

	return user.Public(), nil
}

// DeleteUser removes an account and with it any outstanding session.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return notFoundError("user not found")
		}
		return s.internal(ctx, "failed to delete user", err)
	}

	s.logger.InfoContext(ctx, "user deleted successfully", slog.String("user_id", userID))

	return nil
}

// ResetPassword sets a new password without knowing the old one and ends any
// outstanding session. Operator use only; it is not exposed over HTTP.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	email = validation.NormalizeEmail(email)
	if email == "" {
		return validationError("email is required")
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return validationError(err.Error())
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return notFoundError("user not found")
		}
		return s.internal(ctx, "failed to get user", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.internal(ctx, "failed to hash password", err)
	}

	if err := s.store.UpdatePasswordHash(ctx, user.ID, hash, true); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return notFoundError("user not found")
		}
		return s.internal(ctx, "failed to update password", err)
	}

	s.logger.InfoContext(ctx, "password reset by operator", slog.String("user_id", user.ID))

	return nil
}
