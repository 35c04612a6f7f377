package handler

import (
	"net/http"

	apperrors "github.com/netraseva/intake-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// StatusFromError maps the error taxonomy to HTTP statuses. Duplicates map
// to 400 rather than 409: the mobile clients branch on 400 bodies.
func StatusFromError(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrValidation, apperrors.ErrDuplicate:
		return http.StatusBadRequest
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
