package rest

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/service"
	"medbook/internal/transport/websocket"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Handler struct {
	services *service.Services
	logger   *zap.Logger
	config   *config.Config
	hub      *websocket.Hub
	limiter  *ipRateLimiter
}

func NewHandler(services *service.Services, logger *zap.Logger, config *config.Config, hub *websocket.Hub) *Handler {
	return &Handler{
		services: services,
		logger:   logger,
		config:   config,
		hub:      hub,
		limiter:  newIPRateLimiter(config.RateLimit.RPS, config.RateLimit.Burst),
	}
}

// InitRoutes registers the API. Background work started here stops with ctx.
func (h *Handler) InitRoutes(ctx context.Context, router *gin.Engine) {
	go h.limiter.cleanup(ctx)

	router.Use(h.loggerMiddleware())
	router.Use(h.errorMiddleware())
	router.Use(h.corsMiddleware())

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.rateLimitMiddleware(), h.register)
			auth.POST("/login", h.rateLimitMiddleware(), h.login)
			auth.POST("/refresh", h.refreshToken)
			auth.POST("/logout", h.logout)
		}

		users := api.Group("/users", h.authMiddleware())
		{
			users.GET("/me", h.getCurrentUser)
			users.PUT("/me", h.updateCurrentUser)

			admin := users.Group("", h.adminMiddleware())
			{
				admin.GET("", h.getUsers)
				admin.PUT("/:id", h.updateUser)
				admin.DELETE("/:id", h.deleteUser)
			}
		}

		doctors := api.Group("/doctors")
		{
			doctors.GET("", h.getDoctors)
			doctors.GET("/specializations", h.getSpecializations)
			doctors.GET("/:id", h.getDoctorByID)
			doctors.GET("/:id/schedules", h.getDoctorSchedules)
			doctors.GET("/:id/available-slots", h.getAvailableSlots)

			admin := doctors.Group("", h.authMiddleware(), h.adminMiddleware())
			{
				admin.POST("", h.createDoctor)
				admin.PUT("/:id", h.updateDoctor)
				admin.DELETE("/:id", h.deleteDoctor)
				admin.POST("/:id/photo", h.uploadDoctorPhoto)
				admin.POST("/:id/schedules", h.createSchedule)
				admin.DELETE("/schedules/:scheduleId", h.deleteSchedule)
			}
		}

		appointments := api.Group("/appointments", h.authMiddleware())
		{
			appointments.GET("", h.getAppointments)
			appointments.POST("", h.createAppointment)
			appointments.GET("/:id", h.getAppointmentByID)
			appointments.PUT("/:id", h.updateAppointment)
			appointments.PATCH("/:id/cancel", h.cancelAppointment)
			appointments.PATCH("/:id/reschedule", h.rescheduleAppointment)
			appointments.PATCH("/:id/complete", h.adminMiddleware(), h.completeAppointment)
		}

		admin := api.Group("/admin", h.authMiddleware(), h.adminMiddleware())
		{
			admin.GET("/appointments", h.getAllAppointments)
		}
	}

	// the hub authenticates the upgrade request itself
	router.GET("/ws/appointments", h.hub.HandleWebSocket)
}

// pagination reads limit and offset and returns the matching page number.
func pagination(c *gin.Context) (limit, offset, page int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	return limit, offset, offset/limit + 1
}
