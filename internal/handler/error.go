package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/aidar/challenge-portal/internal/domain"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail содержит код и описание ошибки
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// RespondWithError отправляет ответ с ошибкой
func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// HandleError преобразует доменные ошибки в HTTP ответы.
// Ошибки хранилища отдаются клиенту без деталей.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.MapErrorToCode(err)

	var validationErr *domain.ValidationError
	switch code {
	case domain.CodeValidationFailed:
		errors.As(err, &validationErr)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: ErrorDetail{
			Code:    string(code),
			Message: validationErr.Message,
			Field:   validationErr.Field,
		}})
	case domain.CodeTeamExists, domain.CodeTeamFull, domain.CodeAdmissionConflict,
		domain.CodeRouteDivergence, domain.CodeSubmissionBusy, domain.CodeStaleRegistration:
		RespondWithError(w, r, http.StatusConflict, string(code), err.Error())
	case domain.CodeCooldown:
		RespondWithError(w, r, http.StatusTooManyRequests, string(code), "please wait before submitting again")
	case domain.CodeIncomplete, domain.CodeUnknownRouteRequest:
		RespondWithError(w, r, http.StatusBadRequest, string(code), err.Error())
	case domain.CodeTrackUnavailable:
		RespondWithError(w, r, http.StatusServiceUnavailable, string(code), "route track is unavailable")
	case domain.CodeNotFound:
		RespondWithError(w, r, http.StatusNotFound, string(code), "resource not found")
	case domain.CodeUnauthorized:
		RespondWithError(w, r, http.StatusUnauthorized, string(code), "unauthorized")
	case domain.CodeForbidden:
		RespondWithError(w, r, http.StatusForbidden, string(code), "access denied")
	default:
		RespondWithError(w, r, http.StatusInternalServerError, string(domain.CodeInternalError), "internal server error")
	}
}
