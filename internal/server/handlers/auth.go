package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/eduhub/internal/models"
	"github.com/iudanet/eduhub/internal/server/auth"
	"github.com/iudanet/eduhub/pkg/api"
)

// AuthHandler serves the session endpoints
type AuthHandler struct {
	logger  *slog.Logger
	service *auth.Service
	cookies CookieConfig
}

// NewAuthHandler creates a handler for the session endpoints
func NewAuthHandler(logger *slog.Logger, service *auth.Service, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		service: service,
		cookies: cookies,
	}
}

// Register handles POST /api/v1/users/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request", slog.Any("error", err))
		SendError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Register(ctx, auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Phone:    req.Phone,
		Avatar:   req.Avatar,
		UserType: models.UserType(req.UserType),
		FCMToken: req.FCMToken,
	})
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	SendJSON(h.logger, w, http.StatusCreated, user, "user registered successfully")
}

// Login handles POST /api/v1/users/login
// Tokens are returned both in the body and as cookies.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		SendError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.service.Login(ctx, auth.LoginInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	h.cookies.setSession(w, res.Tokens.AccessToken, res.Tokens.RefreshToken, h.service.AccessTTL(), h.service.RefreshTTL())

	SendJSON(h.logger, w, http.StatusOK, api.LoginResponse{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user id not found in context")
		SendError(h.logger, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := h.service.Logout(ctx, userID); err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	h.cookies.clearSession(w)

	SendJSON(h.logger, w, http.StatusOK, nil, "user logged out")
}

// Refresh handles POST /api/v1/users/refresh-token
// The refresh token comes from the cookie, or from the body when the cookie is absent.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	presented := ""
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" {
		var req api.RefreshRequest
		if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
			h.logger.WarnContext(ctx, "failed to decode refresh request", slog.Any("error", err))
			SendError(h.logger, w, http.StatusBadRequest, "invalid request body")
			return
		}
		presented = req.RefreshToken
	}

	pair, err := h.service.Refresh(ctx, presented)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	h.cookies.setSession(w, pair.AccessToken, pair.RefreshToken, h.service.AccessTTL(), h.service.RefreshTTL())

	SendJSON(h.logger, w, http.StatusOK, api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "access token refreshed")
}

// ChangePassword handles PATCH /api/v1/users/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user id not found in context")
		SendError(h.logger, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req api.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode change password request", slog.Any("error", err))
		SendError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.ChangePassword(ctx, userID, auth.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	SendJSON(h.logger, w, http.StatusOK, nil, "password changed successfully")
}
