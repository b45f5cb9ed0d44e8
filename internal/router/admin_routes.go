package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dormboard/internal/middleware"
	"github.com/iliyamo/dormboard/internal/model"
)

// RegisterAdmin registers admin-only endpoints.  The building directory is
// served through the Redis response cache; creating a building purges it.
func RegisterAdmin(e *echo.Echo, h Handlers, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/buildings", h.Buildings.List, middleware.NewRedisCache(d.Cache, d.Redis, d.Log))
	g.POST("/buildings", h.Buildings.Create)
	g.POST("/admin/ras", h.Buildings.CreateRA)
	g.GET("/admin/ras", h.Buildings.ListRAs)
}
