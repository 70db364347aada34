package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/datakit-backend/internal/pkg/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps the service error taxonomy onto HTTP statuses so
// individual handlers don't repeat the errors.Is ladder.
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperr.ErrConcurrencyConflict):
		RespondError(c, http.StatusConflict, "version_conflict", err)
	case errors.Is(err, apperr.ErrInvalidDefinition):
		RespondError(c, http.StatusUnprocessableEntity, "invalid_definition", err)
	case errors.Is(err, apperr.ErrUnknownFilter):
		RespondError(c, http.StatusBadRequest, "unknown_filter", err)
	case errors.Is(err, apperr.ErrInvalidColumnName):
		RespondError(c, http.StatusBadRequest, "invalid_column", err)
	case errors.Is(err, apperr.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
