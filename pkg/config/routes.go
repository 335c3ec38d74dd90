package config

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup exposes read-only configuration to authenticated
// clients.
func RegisterRoutesWithGroup(g *echo.Group, cfg *Config) {
	h := &handler{config: cfg}

	g.GET("/upload-policy", h.uploadPolicy)
}
