package middleware

import (
    "net/http"

    "github.com/iliyamo/dormboard/internal/model"
    "github.com/labstack/echo/v4"
)

// RequireRole admits requests whose session role is one of roles.
// Building-level checks happen later against stored membership; this only
// keeps a student token away from staff routes. Requires JWTAuth upstream.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]struct{}, len(roles))
    for _, r := range roles {
        allowed[r] = struct{}{}
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, _ := c.Get("role").(string)
            role := model.ParseRole(raw)
            if role == model.RoleNone {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "no role on session"})
            }
            if _, ok := allowed[role]; !ok {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "role " + string(role) + " may not use this route"})
            }
            return next(c)
        }
    }
}
