package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/tutor_marketplace/internal/model"
	"github.com/learnloop/tutor_marketplace/internal/service"
)

type createBookingRequest struct {
	TutorID     string  `json:"tutor_id" binding:"required"`
	StudentID   string  `json:"student_id" binding:"required"`
	Price       float64 `json:"price" binding:"required"`
	SessionDate string  `json:"session_date" binding:"required"`
	SessionTime string  `json:"session_time" binding:"required"`
	Subject     string  `json:"subject"`
	Message     string  `json:"message"`
	SessionKind string  `json:"session_type" binding:"required"`
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.allocations.Allocate(c.Request.Context(), service.AllocateRequest{
		TutorID:     req.TutorID,
		StudentID:   req.StudentID,
		Price:       req.Price,
		SessionDate: req.SessionDate,
		SessionTime: req.SessionTime,
		Subject:     req.Subject,
		Message:     req.Message,
		SessionKind: model.SessionKind(req.SessionKind),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

type createRecurringRequest struct {
	TutorID        string   `json:"tutor_id" binding:"required"`
	StudentID      string   `json:"student_id" binding:"required"`
	StartDate      string   `json:"start_date" binding:"required"`
	DurationMonths int      `json:"duration_months" binding:"required"`
	Weekdays       []string `json:"weekdays" binding:"required"`
	SessionTime    string   `json:"session_time" binding:"required"`
	Subject        string   `json:"subject"`
	Message        string   `json:"message"`
	Price          float64  `json:"price"`
}

func (h *Handler) CreateRecurringBooking(c *gin.Context) {
	var req createRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.recurring.Generate(c.Request.Context(), service.RecurringRequest{
		TutorID:        req.TutorID,
		StudentID:      req.StudentID,
		StartDate:      req.StartDate,
		DurationMonths: req.DurationMonths,
		Weekdays:       req.Weekdays,
		SessionTime:    req.SessionTime,
		Subject:        req.Subject,
		Message:        req.Message,
		Price:          req.Price,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *Handler) GetBooking(c *gin.Context) {
	booking, err := h.bookings.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *Handler) CompleteBooking(c *gin.Context) {
	booking, err := h.bookings.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	booking, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

type rescheduleRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
	NewDate string `json:"new_date" binding:"required"`
	NewTime string `json:"new_time" binding:"required"`
	Note    string `json:"note"`
}

func (h *Handler) RescheduleBooking(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.bookings.Reschedule(c.Request.Context(), service.RescheduleRequest{
		BookingID: c.Param("id"),
		ActorID:   req.ActorID,
		NewDate:   req.NewDate,
		NewTime:   req.NewTime,
		Note:      req.Note,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *Handler) ListUserBookings(c *gin.Context) {
	bookings, err := h.bookings.ListForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) ListUserNotifications(c *gin.Context) {
	notifications, err := h.notifications.ListForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, notifications)
}

func (h *Handler) ListTutors(c *gin.Context) {
	listings, err := h.availability.ListTutors(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

func (h *Handler) GetTutorAvailability(c *gin.Context) {
	availability, err := h.availability.ClassifyTutor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, availability)
}
