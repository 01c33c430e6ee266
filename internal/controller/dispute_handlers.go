package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/tutor_marketplace/internal/model"
	"github.com/learnloop/tutor_marketplace/internal/service"
)

type fileDisputeRequest struct {
	FiledBy       string `json:"filed_by" binding:"required"`
	Reason        string `json:"reason" binding:"required"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}

func (h *Handler) FileDispute(c *gin.Context) {
	var req fileDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.disputes.File(c.Request.Context(), service.FileDisputeRequest{
		BookingID:     c.Param("id"),
		FiledBy:       req.FiledBy,
		Reason:        req.Reason,
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

type resolveDisputeRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

func (h *Handler) ResolveDispute(c *gin.Context) {
	var req resolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.disputes.Resolve(c.Request.Context(), c.Param("id"), model.DisputeOutcome(req.Outcome))
	if err != nil {
		h.writeResolveError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}
