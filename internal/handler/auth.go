package handler

import (
    "context"  // provides context with cancellation for DB calls
    "database/sql"
    "errors"
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // timeouts for DB calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "go.uber.org/zap"

    "github.com/iliyamo/dormboard/internal/config"     // app configuration
    "github.com/iliyamo/dormboard/internal/model"      // membership and user types
    "github.com/iliyamo/dormboard/internal/repository" // refresh token store
    "github.com/iliyamo/dormboard/internal/service"    // credentials, membership and enrollment
    "github.com/iliyamo/dormboard/internal/utils"      // token issuing and hashing
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Creds  *service.CredentialStore
    Gate   *service.Gate
    Enroll *service.EnrollmentService
    Tokens *repository.TokenRepo
    Log    *zap.Logger
    errs   errorWriter
}

func NewAuthHandler(cfg config.Config, creds *service.CredentialStore, gate *service.Gate,
    enroll *service.EnrollmentService, tokens *repository.TokenRepo, log *zap.Logger) *AuthHandler {
    return &AuthHandler{
        Cfg: cfg, Creds: creds, Gate: gate, Enroll: enroll, Tokens: tokens, Log: log,
        errs: errorWriter{dev: cfg.IsDev(), log: log},
    }
}

// ----- DTOs -----

type signupReq struct {
    Email       string  `json:"email"`
    Username    string  `json:"username"`
    Password    string  `json:"password"`
    InviteCode  string  `json:"invite_code"`
    RoomNumber  *string `json:"room_number"`
    FloorNumber *string `json:"floor_number"`
}
type loginReq struct {
    Identifier string `json:"identifier"` // username or email
    Password   string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID         uint64     `json:"id"`
    Username   string     `json:"username"`
    Email      string     `json:"email"`
    Role       model.Role `json:"role"`
    BuildingID *uint64    `json:"building_id,omitempty"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

// issue signs an access token for role and stores a fresh refresh token.
func (h *AuthHandler) issue(ctx context.Context, uid uint64, role model.Role) (tokenPart, tokenPart, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, string(role), h.Cfg.AccessTTLMin)
    if err != nil {
        return tokenPart{}, tokenPart{}, err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return tokenPart{}, tokenPart{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, uid, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return tokenPart{}, tokenPart{}, err
    }
    return tokenPart{Token: access.Token, Expires: access.Exp},
        tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, nil // raw back to client
}

// session resolves the membership of u and returns a complete auth response.
func (h *AuthHandler) session(ctx context.Context, c echo.Context, status int, u model.User) error {
    m, err := h.Gate.Confirm(ctx, service.Actor{UserID: u.ID})
    if err != nil {
        return h.errs.write(c, err)
    }
    access, refresh, err := h.issue(ctx, u.ID, m.Role)
    if err != nil {
        h.Log.Error("issue tokens failed", zap.Uint64("user_id", u.ID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
    }
    return c.JSON(status, authResp{
        User:    userPart{ID: u.ID, Username: u.Username, Email: u.Email, Role: m.Role, BuildingID: m.BuildingID},
        Access:  access,
        Refresh: refresh,
    })
}

// Signup: enroll a student with an invite code and return tokens immediately.
func (h *AuthHandler) Signup(c echo.Context) error {
    var req signupReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    en, err := h.Enroll.EnrollStudent(ctx, service.EnrollStudentInput{
        Email:       req.Email,
        Username:    req.Username,
        Password:    req.Password,
        InviteCode:  req.InviteCode,
        RoomNumber:  req.RoomNumber,
        FloorNumber: req.FloorNumber,
    })
    if err != nil {
        return h.errs.write(c, err)
    }

    access, refresh, err := h.issue(ctx, en.UserID, model.RoleStudent)
    if err != nil {
        // The account exists; the client can still sign in normally.
        h.Log.Error("issue tokens after signup failed", zap.Uint64("user_id", en.UserID), zap.Error(err))
        return c.JSON(http.StatusCreated, echo.Map{"user_id": en.UserID, "building_id": en.BuildingID})
    }
    bid := en.BuildingID
    return c.JSON(http.StatusCreated, authResp{
        User: userPart{
            ID:         en.UserID,
            Username:   strings.TrimSpace(req.Username),
            Email:      strings.ToLower(strings.TrimSpace(req.Email)),
            Role:       model.RoleStudent,
            BuildingID: &bid,
        },
        Access:  access,
        Refresh: refresh,
    })
}

// Login: verify and return a new pair carrying the resolved role.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    req.Identifier = strings.TrimSpace(req.Identifier)
    if req.Identifier == "" || req.Password == "" {
        return badRequest(c, "identifier/password required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Creds.Authenticate(ctx, req.Identifier, req.Password)
    if err != nil {
        return h.errs.write(c, err)
    }
    return h.session(ctx, c, http.StatusOK, u)
}

// Refresh: validate by hash, revoke old, issue new.  The role is resolved
// again so a changed membership is reflected in the new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return badRequest(c, "refresh_token required")
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        return h.errs.write(c, err)
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            // lost a race with another rotation of the same token
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        return h.errs.write(c, err)
    }

    u, err := h.Creds.User(ctx, userID)
    if err != nil {
        return h.errs.write(c, err)
    }
    return h.session(ctx, c, http.StatusOK, u)
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the bearer when only an access token is supplied.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if refreshToken != "" {
        hash := utils.HashRefreshRaw(refreshToken)
        if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil && !errors.Is(err, sql.ErrNoRows) {
            return h.errs.write(c, err)
        }
        return c.NoContent(http.StatusNoContent)
    }

    auth := c.Request().Header.Get("Authorization")
    if strings.HasPrefix(auth, "Bearer ") {
        claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
        if err != nil {
            return unauthenticated(c)
        }
        if err := h.Tokens.RevokeAllForUser(ctx, claims.UserID); err != nil {
            return h.errs.write(c, err)
        }
        return c.NoContent(http.StatusNoContent)
    }
    return badRequest(c, "provide Authorization header or refresh_token")
}

// Me returns the caller's stored membership.
func (h *AuthHandler) Me(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthenticated(c)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    m, err := h.Gate.Confirm(ctx, actor)
    if err != nil {
        return h.errs.write(c, err)
    }
    u, err := h.Creds.User(ctx, actor.UserID)
    if err != nil {
        return h.errs.write(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "user_id":     u.ID,
        "username":    u.Username,
        "email":       u.Email,
        "role":        m.Role,
        "building_id": m.BuildingID,
        "admin_level": m.AdminLevel,
    })
}
