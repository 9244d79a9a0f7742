// Package v1 provides HTTP handlers for the correlation engine.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkamau/pesabridge/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Chat channel webhook (form-encoded, replies in TwiML)
	e.POST("/webhook", h.Webhook)

	// Payment gateway callback (JSON, always acknowledged)
	e.POST("/mpesa-callback", h.PaymentCallback)

	e.GET("/", h.Root)
	e.GET("/health", h.Health)
}

// Root is the liveness probe hit by the gateway's URL validation.
// GET /
func (h *Handler) Root(c echo.Context) error {
	return c.String(http.StatusOK, "server running")
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
