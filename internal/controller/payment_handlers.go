package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type initializePaymentRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

func (h *Handler) InitializePayment(c *gin.Context) {
	var req initializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.payments.Initialize(c.Request.Context(), req.BookingID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"tx_ref":       payment.TxRef,
		"checkout_url": payment.CheckoutURL,
	})
}

type webhookPayload struct {
	TxRef string `json:"tx_ref" binding:"required"`
}

// PaymentWebhook is the inbound gateway callback. The reference is
// re-verified with the gateway before any state changes.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), payload.TxRef); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
