package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"   // Echo web framework
	"github.com/redis/go-redis/v9" // shared client for the limiter and cache
	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/config"
	"github.com/iliyamo/dormboard/internal/handler"
	"github.com/iliyamo/dormboard/internal/middleware"
	"github.com/iliyamo/dormboard/internal/model"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth        *handler.AuthHandler
	Board       *handler.BoardHandler
	Emergencies *handler.EmergencyHandler
	Invites     *handler.InviteHandler
	Buildings   *handler.BuildingHandler
}

// Deps carries the infrastructure the middleware chain needs.
type Deps struct {
	DB        *sql.DB
	Redis     *redis.Client
	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       *zap.Logger
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB, d.Redis))
}

// RegisterAuth registers the session endpoints.  Everything under
// /v1/auth and the public invite check are rate limited, which makes
// password and invite-code guessing expensive.
func RegisterAuth(e *echo.Echo, h Handlers, d Deps) {
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	g := e.Group("/v1/auth", limit)
	g.POST("/signup", h.Auth.Signup)
	g.POST("/login", h.Auth.Login)
	g.POST("/refresh", h.Auth.Refresh)
	g.POST("/logout", h.Auth.Logout)

	e.GET("/v1/invite-codes/validate/:code", h.Invites.Validate, limit)
}

// RegisterMember registers endpoints open to any signed-in user.  Whether
// the caller may touch a given building is decided by the service layer.
func RegisterMember(e *echo.Echo, h Handlers, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleStudent, model.RoleRA, model.RoleAdmin),
	)
	g.GET("/me", h.Auth.Me)
	g.GET("/buildings/:id/messages", h.Board.ListMessages)
	g.POST("/buildings/:id/messages", h.Board.PostMessage)
	g.GET("/buildings/:id/pinned", h.Board.ListPinned)
	g.GET("/buildings/:id/stats", h.Board.Stats)
	g.POST("/emergencies", h.Emergencies.Report)
}

// RegisterAll wires every route group.
func RegisterAll(e *echo.Echo, h Handlers, d Deps) {
	RegisterRoutes(e, d)
	RegisterAuth(e, h, d)
	RegisterMember(e, h, d)
	RegisterStaff(e, h, d)
	RegisterAdmin(e, h, d)
}
