package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iudanet/eduhub/internal/models"
)

const defaultIssuer = "eduhub"

var (
	// ErrTokenExpired indicates a correctly signed token past its expiry.
	// Callers should ask the client to log in again.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates a forged, tampered or malformed token.
	ErrTokenInvalid = errors.New("token invalid")
)

// Config holds signing secrets and lifetimes for both token kinds.
type Config struct {
	Issuer        string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Validate checks that the configuration can produce distinguishable tokens.
func (c Config) Validate() error {
	if len(c.AccessSecret) == 0 {
		return errors.New("access token secret is required")
	}
	if len(c.RefreshSecret) == 0 {
		return errors.New("refresh token secret is required")
	}
	if string(c.AccessSecret) == string(c.RefreshSecret) {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.AccessTTL <= 0 {
		return errors.New("access token ttl must be positive")
	}
	if c.RefreshTTL <= 0 {
		return errors.New("refresh token ttl must be positive")
	}
	return nil
}

// AccessClaims are embedded in access tokens.
type AccessClaims struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// RefreshClaims are embedded in refresh tokens. Only the user id is carried.
type RefreshClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies access and refresh tokens.
// It is immutable after construction and safe for concurrent use.
type Issuer struct {
	now func() time.Time
	cfg Config
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	return &Issuer{cfg: cfg, now: time.Now}, nil
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	return &Issuer{cfg: i.cfg, now: now}
}

// AccessTTL returns the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration {
	return i.cfg.AccessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration {
	return i.cfg.RefreshTTL
}

// IssueAccessToken signs a short-lived token carrying the user's identity claims.
func (i *Issuer) IssueAccessToken(user *models.User) (string, time.Time, error) {
	if user == nil || user.ID == "" {
		return "", time.Time{}, errors.New("user id is required")
	}

	now := i.now()
	expiresAt := now.Add(i.cfg.AccessTTL)

	claims := AccessClaims{
		UserID:           user.ID,
		Email:            user.Email,
		Username:         user.Username,
		FullName:         user.FullName,
		RegisteredClaims: i.registered(user.ID, now, expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return token, expiresAt, nil
}

// IssueRefreshToken signs a long-lived token carrying only the user id.
func (i *Issuer) IssueRefreshToken(user *models.User) (string, time.Time, error) {
	if user == nil || user.ID == "" {
		return "", time.Time{}, errors.New("user id is required")
	}

	now := i.now()
	expiresAt := now.Add(i.cfg.RefreshTTL)

	claims := RefreshClaims{
		UserID:           user.ID,
		RegisteredClaims: i.registered(user.ID, now, expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.RefreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return token, expiresAt, nil
}

// VerifyAccessToken validates signature and expiry of an access token.
func (i *Issuer) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.parse(tokenString, claims, i.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrTokenInvalid)
	}
	return claims, nil
}

// VerifyRefreshToken validates signature and expiry of a refresh token.
// It returns ErrTokenExpired or ErrTokenInvalid so callers can tell them apart.
func (i *Issuer) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.parse(tokenString, claims, i.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrTokenInvalid)
	}
	return claims, nil
}

func (i *Issuer) registered(subject string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    i.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (i *Issuer) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	if tokenString == "" {
		return fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Only HMAC is accepted; anything else is an algorithm-confusion attempt.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err == nil {
		return nil
	}

	// The library checks the signature before the time claims, so an
	// expiry error here means the token was genuinely ours.
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	}
	return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
}
