// Package http provides the HTTP server for the correlation engine.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mkamau/pesabridge/internal/service"
	v1 "github.com/mkamau/pesabridge/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server. It carries both public
// surfaces: the chat webhook and the payment gateway callback.
func NewServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)

	return e
}
