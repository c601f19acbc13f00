package middleware

import (
	"log/slog"
	"net/http"

	"github.com/eaglebank/ledger-service/shared/apperrors"
	"github.com/gin-gonic/gin"
)

// StatusFor maps an error kind onto an HTTP status code.
func StatusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithAppError writes {message, error} for err. Internal errors use
// fallback as the message so storage details do not leak.
func RespondWithAppError(c *gin.Context, err error, fallback string) {
	kind := apperrors.KindOf(err)
	message := apperrors.MessageOf(err)

	switch kind {
	case apperrors.KindConsistency:
		slog.Error("ledger consistency failure", "path", c.FullPath(), "error", err)
	case apperrors.KindInternal:
		slog.Error(fallback, "path", c.FullPath(), "error", err)
		message = fallback
	}
	if message == "" {
		message = fallback
	}

	c.JSON(StatusFor(err), gin.H{
		"message": message,
		"error":   kind,
	})
}
