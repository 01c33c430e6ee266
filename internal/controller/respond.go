package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/learnloop/tutor_marketplace/internal/apperr"
)

// refundFallbackMessage is deliberately vague: it must not echo gateway
// error text, and it must state that no money moved and that the case goes
// to manual processing. It belongs to the dispute-resolve surface only.
const refundFallbackMessage = "The refund could not be processed automatically. " +
	"No money has been moved. Our team will process this dispute manually."

// writeResolveError is writeError with the refund wording for gateway
// failures: a failed transfer on the resolve path made no local write.
func (h *Handler) writeResolveError(c *gin.Context, err error) {
	if errors.Is(err, apperr.ErrGatewayUnavailable) {
		c.JSON(http.StatusBadGateway, gin.H{"error": refundFallbackMessage})
		return
	}
	h.writeError(c, err)
}

// writeError maps the service error taxonomy onto HTTP responses.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrInvalidSessionType),
		errors.Is(err, apperr.ErrNoSessionsGenerated),
		errors.Is(err, apperr.ErrPastSession),
		errors.Is(err, apperr.ErrNoCompletedPayment):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrSlotTaken),
		errors.Is(err, apperr.ErrGroupFull),
		errors.Is(err, apperr.ErrAlreadyDisputed),
		errors.Is(err, apperr.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "The payment provider is unavailable. Please try again later."})
	default:
		h.logger.Error("Unhandled request error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
