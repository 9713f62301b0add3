// routes.go - Route registration and server assembly
package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lvillar/actapdf/config"
)

// RegisterRoutes registers all API routes with the Echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", h.HandleHealth)

	pdf := e.Group("/api/pdf")
	pdf.POST("/generate", h.HandleGenerate)
	pdf.POST("/layer", h.HandleLayer)

	profiles := e.Group("/api/profiles")
	profiles.GET("", h.HandleListProfiles)
	profiles.GET("/:name", h.HandleGetProfile)
}

// NewServer returns an Echo instance with the middleware cfg asks for and
// all routes registered.
func NewServer(cfg *config.Config, h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return !cfg.Logging.EnableRequestLogging || c.Request().URL.Path == "/health"
		},
	}))
	e.Use(middleware.Recover())
	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}
	if cfg.Server.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  cfg.Origins(),
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			ExposeHeaders: []string{echo.HeaderContentDisposition, HeaderTruncated, HeaderRowsDropped, HeaderSubstitutions},
		}))
	}

	RegisterRoutes(e, h)
	return e
}
