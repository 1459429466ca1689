// Package http exposes the SafeBite run API over echo.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/roshaninfordham/safebiteai/internal/adapter/starterpack"
)

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	AllowOrigins    []string
	BodyLimit       string
	MockStarterPack bool
}

// NewServer creates and configures the public HTTP server.
func NewServer(cfg ServerConfig, h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins(cfg.AllowOrigins),
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	h.RegisterRoutes(e)

	if cfg.MockStarterPack {
		e.POST("/mock/starter-pack/run", starterpack.MockRunHandler)
	}

	return e
}

func allowOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
