// Package auth implements account sessions: login, refresh token rotation,
// logout and password changes, plus the account operations built on the
// same credential store.
//
// Session states are Anonymous, Authenticated and Revoked. Every account has
// at most one outstanding refresh token, stored on the account record.
// Issuing a new one (login or refresh) replaces the old one, and a refresh
// only succeeds when the presented token still equals the stored one, so a
// refresh token works exactly once.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iudanet/eduhub/internal/crypto"
	"github.com/iudanet/eduhub/internal/models"
	"github.com/iudanet/eduhub/internal/server/jwt"
	"github.com/iudanet/eduhub/internal/server/storage"
	"github.com/iudanet/eduhub/internal/validation"
)

// Operation names reported to the Recorder.
const (
	OpLogin          = "login"
	OpRefresh        = "refresh"
	OpLogout         = "logout"
	OpChangePassword = "change_password"
	OpRegister       = "register"
)

const msgRefreshReused = "refresh token is expired or already used"

// Recorder receives the outcome of each session operation.
type Recorder interface {
	RecordAuth(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuth(string, string) {}

// Options tune session behavior.
type Options struct {
	// RevokeOnPasswordChange clears the refresh token when the password
	// changes, ending sessions started with the old password. Off by default.
	RevokeOnPasswordChange bool
}

// TokenPair is an access and refresh token issued together.
type TokenPair struct {
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	AccessToken      string
	RefreshToken     string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User   *models.PublicUser
	Tokens TokenPair
}

// LoginInput carries login credentials. Either identifier may match; email is tried first.
type LoginInput struct {
	Email    string
	Phone    string
	Password string
}

// ChangePasswordInput carries the current and the desired password.
type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

// Service orchestrates the credential store, password hasher and token issuer.
type Service struct {
	store    storage.UserStorage
	hasher   *crypto.PasswordHasher
	tokens   *jwt.Issuer
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	opts     Options
}

// NewService creates the auth service. recorder may be nil.
func NewService(logger *slog.Logger, store storage.UserStorage, hasher *crypto.PasswordHasher, tokens *jwt.Issuer, opts Options, recorder Recorder) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
		opts:     opts,
	}
}

// Login verifies credentials and starts a new session, replacing any
// refresh token issued before.
func (s *Service) Login(ctx context.Context, in LoginInput) (res *LoginResult, err error) {
	defer func() { s.observe(OpLogin, err) }()

	email := validation.NormalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)

	if email == "" && phone == "" {
		return nil, validationError("email or phone is required")
	}
	if in.Password == "" {
		return nil, validationError("password is required")
	}

	user, err := s.lookup(ctx, email, phone)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "login failed: user not found")
			return nil, notFoundError("user not found")
		}
		return nil, s.internal(ctx, "failed to get user", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.logger.WarnContext(ctx, "login failed: invalid password", slog.String("user_id", user.ID))
		return nil, unauthorizedError("password incorrect", nil)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, s.internal(ctx, "failed to generate tokens", err)
	}

	// The new refresh token becomes the only valid one for this account.
	if err := s.store.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, s.internal(ctx, "failed to save refresh token", err)
	}
	user.RefreshToken = pair.RefreshToken

	s.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username))

	return &LoginResult{User: user.Public(), Tokens: *pair}, nil
}

// Refresh exchanges a refresh token for a new token pair.
// The presented token must equal the stored one; after a successful call it
// never validates again.
func (s *Service) Refresh(ctx context.Context, presented string) (pair *TokenPair, err error) {
	defer func() { s.observe(OpRefresh, err) }()

	if presented == "" {
		return nil, unauthorizedError("unauthorized request", nil)
	}

	claims, err := s.tokens.VerifyRefreshToken(presented)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.InfoContext(ctx, "refresh rejected: token expired")
			return nil, unauthorizedError("refresh token expired, please log in again", err)
		}
		s.logger.WarnContext(ctx, "refresh rejected: invalid token", slog.Any("error", err))
		return nil, unauthorizedError("invalid refresh token", err)
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "refresh rejected: user not found", slog.String("user_id", claims.UserID))
			return nil, unauthorizedError("invalid refresh token", err)
		}
		return nil, s.internal(ctx, "failed to get user", err)
	}

	// Cheap early exit before minting; the store re-checks atomically below.
	if subtle.ConstantTimeCompare([]byte(presented), []byte(user.RefreshToken)) != 1 {
		s.logger.WarnContext(ctx, "refresh rejected: token reused or revoked", slog.String("user_id", user.ID))
		return nil, unauthorizedError(msgRefreshReused, nil)
	}

	pair, err = s.issuePair(user)
	if err != nil {
		return nil, s.internal(ctx, "failed to generate tokens", err)
	}

	if err := s.store.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		switch {
		case errors.Is(err, storage.ErrRefreshTokenMismatch):
			s.logger.WarnContext(ctx, "refresh rejected: lost rotation race", slog.String("user_id", user.ID))
			return nil, unauthorizedError(msgRefreshReused, err)
		case errors.Is(err, storage.ErrUserNotFound):
			return nil, unauthorizedError("invalid refresh token", err)
		default:
			return nil, s.internal(ctx, "failed to rotate refresh token", err)
		}
	}

	s.logger.InfoContext(ctx, "tokens refreshed successfully", slog.String("user_id", user.ID))

	return pair, nil
}

// Logout revokes the account's refresh token. It is idempotent.
func (s *Service) Logout(ctx context.Context, userID string) (err error) {
	defer func() { s.observe(OpLogout, err) }()

	if err := s.store.ClearRefreshToken(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "logout for missing user", slog.String("user_id", userID))
			return nil
		}
		return s.internal(ctx, "failed to clear refresh token", err)
	}

	s.logger.InfoContext(ctx, "user logged out successfully", slog.String("user_id", userID))

	return nil
}

// ChangePassword replaces the password after checking the old one.
// On a wrong old password nothing is written.
func (s *Service) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) (err error) {
	defer func() { s.observe(OpChangePassword, err) }()

	if in.OldPassword == "" {
		return validationError("old password is required")
	}
	if err := validation.ValidatePassword(in.NewPassword); err != nil {
		return validationError(err.Error())
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return unauthorizedError("invalid access token", err)
		}
		return s.internal(ctx, "failed to get user", err)
	}

	if !s.hasher.Verify(in.OldPassword, user.PasswordHash) {
		s.logger.WarnContext(ctx, "change password failed: invalid old password", slog.String("user_id", userID))
		return unauthorizedError("invalid old password", nil)
	}

	// Unchanged password: keep the existing hash rather than hashing twice.
	if s.hasher.Verify(in.NewPassword, user.PasswordHash) {
		s.logger.InfoContext(ctx, "password unchanged", slog.String("user_id", userID))
		return nil
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return s.internal(ctx, "failed to hash password", err)
	}

	if err := s.store.UpdatePasswordHash(ctx, userID, hash, s.opts.RevokeOnPasswordChange); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return unauthorizedError("invalid access token", err)
		}
		return s.internal(ctx, "failed to update password", err)
	}

	s.logger.InfoContext(ctx, "password changed successfully",
		slog.String("user_id", userID),
		slog.Bool("sessions_revoked", s.opts.RevokeOnPasswordChange))

	return nil
}

// Authenticate validates an access token and returns its claims.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*jwt.AccessClaims, error) {
	if accessToken == "" {
		return nil, unauthorizedError("unauthorized request", nil)
	}

	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, unauthorizedError("access token expired", err)
		}
		return nil, unauthorizedError("invalid access token", err)
	}

	return claims, nil
}

// AccessTTL and RefreshTTL expose token lifetimes for cookie max-age.
func (s *Service) AccessTTL() time.Duration  { return s.tokens.AccessTTL() }
func (s *Service) RefreshTTL() time.Duration { return s.tokens.RefreshTTL() }

func (s *Service) issuePair(user *models.User) (*TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// lookup finds an account by normalized email, falling back to phone when
// the email matches nobody.
func (s *Service) lookup(ctx context.Context, email, phone string) (*models.User, error) {
	if email != "" {
		user, err := s.store.GetUserByEmail(ctx, email)
		if err == nil || phone == "" || !errors.Is(err, storage.ErrUserNotFound) {
			return user, err
		}
	}
	return s.store.GetUserByPhone(ctx, phone)
}

func (s *Service) internal(ctx context.Context, msg string, err error) error {
	s.logger.ErrorContext(ctx, msg, slog.Any("error", err))
	return internalError(err)
}

func (s *Service) observe(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	s.recorder.RecordAuth(op, outcome)
}
