package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/eduhub/internal/server/auth"
	"github.com/iudanet/eduhub/pkg/api"
)

// UserHandler serves account endpoints that require an access token
type UserHandler struct {
	logger  *slog.Logger
	service *auth.Service
}

// NewUserHandler creates a handler for account endpoints
func NewUserHandler(logger *slog.Logger, service *auth.Service) *UserHandler {
	return &UserHandler{
		logger:  logger,
		service: service,
	}
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	user, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	SendJSON(h.logger, w, http.StatusOK, user, "current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req api.UpdateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode update account request", slog.Any("error", err))
		SendError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.UpdateAccount(ctx, userID, auth.UpdateAccountInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	SendJSON(h.logger, w, http.StatusOK, user, "account details updated successfully")
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		SendError(h.logger, w, http.StatusBadRequest, "user id is required")
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	SendJSON(h.logger, w, http.StatusOK, user, "user fetched successfully")
}

// Lookup handles POST /api/v1/users/lookup
func (h *UserHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode lookup request", slog.Any("error", err))
		SendError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.FindUser(ctx, req.Email, req.Phone)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	SendJSON(h.logger, w, http.StatusOK, user, "user fetched successfully")
}

// Delete handles DELETE /api/v1/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		SendError(h.logger, w, http.StatusBadRequest, "user id is required")
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	SendJSON(h.logger, w, http.StatusOK, nil, "user deleted successfully")
}

func (h *UserHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "user id not found in context")
		SendError(h.logger, w, http.StatusUnauthorized, "unauthorized request")
	}
	return userID, ok
}
