package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/internal/service"
)

func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrInactiveUser):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrTerminalState),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSlotUnavailable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCompleteInFuture), errors.Is(err, domain.ErrTimeInPast):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// serviceErrorResponse writes the domain message for expected failures and
// hides the details of everything else.
func (h *Handler) serviceErrorResponse(c *gin.Context, err error, msg string) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
		errorResponse(c, status, "внутренняя ошибка сервера")
		return
	}

	h.logger.Info(msg, zap.Int("status", status), zap.Error(err))
	errorResponse(c, status, err.Error())
}
