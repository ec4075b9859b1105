package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/iudanet/eduhub/internal/server/auth"
	"github.com/iudanet/eduhub/pkg/api"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// SendJSON writes data wrapped in the success envelope
func SendJSON(logger *slog.Logger, w http.ResponseWriter, statusCode int, data any, message string) {
	writeJSON(logger, w, statusCode, api.NewResponse(statusCode, data, message))
}

// SendError writes the error envelope
func SendError(logger *slog.Logger, w http.ResponseWriter, statusCode int, message string, errs ...string) {
	writeJSON(logger, w, statusCode, api.NewErrorResponse(statusCode, message, errs...))
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// statusFor maps a service error kind to its HTTP status
func statusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindValidation:
		return http.StatusBadRequest
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// sendServiceError renders an error returned by auth.Service.
// Internal causes are already logged by the service and never reach the client.
func sendServiceError(logger *slog.Logger, w http.ResponseWriter, err error) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		logger.Error("unexpected error", slog.Any("error", err))
		SendError(logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := statusFor(authErr.Kind)
	if status == http.StatusInternalServerError {
		SendError(logger, w, status, "internal server error")
		return
	}
	if authErr.Kind == auth.KindValidation {
		SendError(logger, w, status, authErr.Message, authErr.Message)
		return
	}
	SendError(logger, w, status, authErr.Message)
}

// decodeJSON reads a JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}
