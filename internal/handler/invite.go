package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/service"
)

// InviteHandler issues, validates, lists and deactivates invite codes.
type InviteHandler struct {
	Invites *service.InviteAuthority
	errs    errorWriter
}

func NewInviteHandler(invites *service.InviteAuthority, dev bool, log *zap.Logger) *InviteHandler {
	return &InviteHandler{Invites: invites, errs: errorWriter{dev: dev, log: log}}
}

type issueReq struct {
	BuildingID    *uint64 `json:"building_id"`
	ExpiresInDays *int    `json:"expires_in_days"`
}

// Validate is public: it tells a prospective student which building a
// code enrolls into.
func (h *InviteHandler) Validate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Invites.Validate(ctx, c.Param("code"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"valid":         true,
		"code":          v.Code,
		"building_id":   v.BuildingID,
		"building_name": v.BuildingName,
	})
}

func (h *InviteHandler) Issue(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	var req issueReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ic, err := h.Invites.Issue(ctx, actor, req.BuildingID, req.ExpiresInDays)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusCreated, ic)
}

func (h *InviteHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	bid, ok := queryID(c, "building_id")
	if !ok {
		return h.errs.write(c, service.ErrInvalidBuildingID)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Invites.List(ctx, actor, bid)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"invite_codes": out})
}

func (h *InviteHandler) Deactivate(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid invite code id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Invites.Deactivate(ctx, actor, id); err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"invite_code_id": id, "is_active": false})
}
