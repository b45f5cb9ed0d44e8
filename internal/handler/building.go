package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/middleware"
	"github.com/iliyamo/dormboard/internal/service"
)

// BuildingHandler covers building administration and RA provisioning.
type BuildingHandler struct {
	Buildings   *service.BuildingService
	Enroll      *service.EnrollmentService
	Redis       *redis.Client
	CachePrefix string
	log         *zap.Logger
	errs        errorWriter
}

func NewBuildingHandler(buildings *service.BuildingService, enroll *service.EnrollmentService,
	rdb *redis.Client, cachePrefix string, dev bool, log *zap.Logger) *BuildingHandler {
	return &BuildingHandler{
		Buildings:   buildings,
		Enroll:      enroll,
		Redis:       rdb,
		CachePrefix: cachePrefix,
		log:         log,
		errs:        errorWriter{dev: dev, log: log},
	}
}

type createBuildingReq struct {
	Name        string  `json:"building_name"`
	Description *string `json:"description"`
}

type createRAReq struct {
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	BuildingID     uint64  `json:"building_id"`
	PhoneNumber    *string `json:"phone_number"`
	OfficeLocation *string `json:"office_location"`
}

func (h *BuildingHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Buildings.List(ctx, actor)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"buildings": out})
}

// Create adds a building and drops the cached building listings.
func (h *BuildingHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	var req createBuildingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Buildings.Create(ctx, actor, req.Name, req.Description)
	if err != nil {
		return h.errs.write(c, err)
	}
	if err := middleware.PurgeCache(ctx, h.Redis, h.CachePrefix); err != nil {
		h.log.Warn("purge building cache failed", zap.Error(err))
	}
	return c.JSON(http.StatusCreated, b)
}

// StaffBuilding returns the building the calling RA manages.
func (h *BuildingHandler) StaffBuilding(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Buildings.StaffBuilding(ctx, actor)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BuildingHandler) CreateRA(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	var req createRAReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Enroll.CreateRA(ctx, actor, service.CreateRAInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		BuildingID:     req.BuildingID,
		PhoneNumber:    req.PhoneNumber,
		OfficeLocation: req.OfficeLocation,
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"user_id": uid, "building_id": req.BuildingID})
}

func (h *BuildingHandler) ListRAs(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Buildings.ListRAs(ctx, actor)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ras": out})
}
