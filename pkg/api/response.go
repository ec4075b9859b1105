package api

import "net/http"

// Response wraps every successful reply.
type Response struct {
	Data       any    `json:"data"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
}

// ErrorResponse wraps every failed reply. Errors is never null.
type ErrorResponse struct {
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
}

// NewResponse builds a success envelope. Success is derived from the status.
func NewResponse(statusCode int, data any, message string) Response {
	if data == nil {
		data = struct{}{}
	}
	return Response{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    statusCode < http.StatusBadRequest,
	}
}

// NewErrorResponse builds an error envelope.
func NewErrorResponse(statusCode int, message string, errs ...string) ErrorResponse {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	if errs == nil {
		errs = []string{}
	}
	return ErrorResponse{
		StatusCode: statusCode,
		Message:    message,
		Errors:     errs,
		Success:    false,
	}
}
