package handler // handler defines http handlers

import (
    "errors"   // errors unwraps service failures
    "net/http" // status codes
    "strconv"  // strconv converts strings to numeric types

    "github.com/labstack/echo/v4" // echo defines request context types
    "go.uber.org/zap"

    "github.com/iliyamo/dormboard/internal/model"
    "github.com/iliyamo/dormboard/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// actorFrom builds the service caller from the verified session.
func actorFrom(c echo.Context) (service.Actor, error) {
    uid, err := getUserID(c)
    if err != nil || uid == 0 {
        return service.Actor{}, errors.New("unauthenticated")
    }
    role, _ := c.Get("role").(string)
    return service.Actor{UserID: uid, Role: model.ParseRole(role)}, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    n, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || n == 0 {
        return 0, false
    }
    return n, true
}

// queryID parses an optional positive numeric query parameter.  ok is
// false only when the parameter is present but malformed.
func queryID(c echo.Context, name string) (*uint64, bool) {
    raw := c.QueryParam(name)
    if raw == "" {
        return nil, true
    }
    n, err := strconv.ParseUint(raw, 10, 64)
    if err != nil || n == 0 {
        return nil, false
    }
    return &n, true
}

func statusFor(k service.Kind) int {
    switch k {
    case service.KindValidation:
        return http.StatusBadRequest
    case service.KindUnauthorized:
        return http.StatusUnauthorized
    case service.KindForbidden:
        return http.StatusForbidden
    case service.KindNotFound:
        return http.StatusNotFound
    case service.KindConflict:
        return http.StatusConflict
    case service.KindUnavailable:
        return http.StatusServiceUnavailable
    }
    return http.StatusInternalServerError
}

// errorWriter renders service failures as {"error": code, "message": msg}.
// Internal causes are logged and only exposed in dev.
type errorWriter struct {
    dev bool
    log *zap.Logger
}

func (w errorWriter) write(c echo.Context, err error) error {
    var se *service.Error
    if !errors.As(err, &se) {
        se = &service.Error{Kind: service.KindInternal, Code: service.ErrInternal.Code, Message: service.ErrInternal.Message, Err: err}
    }
    body := echo.Map{"error": se.Code, "message": se.Message}
    if se.Kind == service.KindInternal {
        w.log.Error("request failed",
            zap.String("method", c.Request().Method),
            zap.String("route", c.Path()),
            zap.Error(err))
        if w.dev && se.Err != nil {
            body["detail"] = se.Err.Error()
        }
    }
    return c.JSON(statusFor(se.Kind), body)
}

func unauthenticated(c echo.Context) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "message": msg})
}
