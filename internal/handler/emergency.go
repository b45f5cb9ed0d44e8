package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/service"
)

// EmergencyHandler exposes the report and verify workflow.
type EmergencyHandler struct {
	Emergencies *service.EmergencyService
	errs        errorWriter
}

func NewEmergencyHandler(emergencies *service.EmergencyService, dev bool, log *zap.Logger) *EmergencyHandler {
	return &EmergencyHandler{Emergencies: emergencies, errs: errorWriter{dev: dev, log: log}}
}

type reportReq struct {
	BuildingID    uint64 `json:"building_id"`
	EmergencyType string `json:"emergency_type"`
	Location      string `json:"location"`
	Description   string `json:"description"`
}

type verifyReq struct {
	Notes *string `json:"verification_notes"`
}

// Report files a new emergency for the caller's building.
func (h *EmergencyHandler) Report(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	var req reportReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rep, err := h.Emergencies.Report(ctx, actor, service.ReportInput{
		BuildingID:  req.BuildingID,
		Type:        req.EmergencyType,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusCreated, rep)
}

// List returns reports newest first.  Query: building_id, unverified_only.
func (h *EmergencyHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	bid, ok := queryID(c, "building_id")
	if !ok {
		return h.errs.write(c, service.ErrInvalidBuildingID)
	}
	unverified := false
	if raw := c.QueryParam("unverified_only"); raw != "" {
		unverified, err = strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "unverified_only must be a boolean")
		}
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Emergencies.List(ctx, actor, bid, unverified)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"emergencies": out})
}

// Verify marks a report verified and pins it to the building.
func (h *EmergencyHandler) Verify(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid emergency id")
	}
	var req verifyReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Emergencies.Verify(ctx, actor, id, req.Notes)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusOK, v)
}
