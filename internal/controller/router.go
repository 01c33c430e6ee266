package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/learnloop/tutor_marketplace/internal/service"
)

// Handler wires the engine services to the HTTP surface.
type Handler struct {
	allocations   *service.AllocationService
	recurring     *service.RecurringService
	availability  *service.AvailabilityService
	bookings      *service.BookingService
	disputes      *service.DisputeService
	payments      *service.PaymentService
	notifications *service.NotificationService
	logger        *zap.Logger
}

func NewHandler(
	allocations *service.AllocationService,
	recurring *service.RecurringService,
	availability *service.AvailabilityService,
	bookings *service.BookingService,
	disputes *service.DisputeService,
	payments *service.PaymentService,
	notifications *service.NotificationService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		allocations:   allocations,
		recurring:     recurring,
		availability:  availability,
		bookings:      bookings,
		disputes:      disputes,
		payments:      payments,
		notifications: notifications,
		logger:        logger,
	}
}

func NewRouter(h *Handler, env string) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/bookings", h.CreateBooking)
	r.POST("/bookings/recurring", h.CreateRecurringBooking)
	r.GET("/bookings/:id", h.GetBooking)
	r.POST("/bookings/:id/complete", h.CompleteBooking)
	r.POST("/bookings/:id/cancel", h.CancelBooking)
	r.POST("/bookings/:id/reschedule", h.RescheduleBooking)

	r.GET("/users/:id/bookings", h.ListUserBookings)
	r.GET("/users/:id/notifications", h.ListUserNotifications)

	r.POST("/bookings/:id/dispute", h.FileDispute)
	r.POST("/bookings/:id/dispute/resolve", h.ResolveDispute)

	r.GET("/tutors", h.ListTutors)
	r.GET("/tutors/:id/availability", h.GetTutorAvailability)

	r.POST("/payments/initialize", h.InitializePayment)
	r.POST("/payments/webhook", h.PaymentWebhook)

	return r
}
