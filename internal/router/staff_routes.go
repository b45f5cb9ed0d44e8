package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dormboard/internal/middleware"
	"github.com/iliyamo/dormboard/internal/model"
)

// RegisterStaff registers endpoints for RAs and admins.  An RA is further
// limited to their own building inside each service call.
func RegisterStaff(e *echo.Echo, h Handlers, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleRA, model.RoleAdmin),
	)
	g.POST("/buildings/:id/pinned", h.Board.Pin)
	g.DELETE("/pinned/:id", h.Board.Unpin)

	g.GET("/emergencies", h.Emergencies.List)
	g.POST("/emergencies/:id/verify", h.Emergencies.Verify)

	g.GET("/invite-codes", h.Invites.List)
	g.POST("/invite-codes", h.Invites.Issue)
	g.POST("/invite-codes/:id/deactivate", h.Invites.Deactivate)

	g.GET("/ra/building", h.Buildings.StaffBuilding)
}
