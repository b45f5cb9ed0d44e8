package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/service"
)

// BoardHandler serves building message boards, pinned announcements and
// building stats.
type BoardHandler struct {
	Board     *service.BoardService
	Buildings *service.BuildingService
	errs      errorWriter
}

func NewBoardHandler(board *service.BoardService, buildings *service.BuildingService, dev bool, log *zap.Logger) *BoardHandler {
	return &BoardHandler{Board: board, Buildings: buildings, errs: errorWriter{dev: dev, log: log}}
}

type postMessageReq struct {
	Content     string `json:"content"`
	IsAnonymous bool   `json:"is_anonymous"`
}

type pinReq struct {
	Content string `json:"content"`
}

func (h *BoardHandler) ListMessages(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	bid, ok := pathID(c, "id")
	if !ok {
		return h.errs.write(c, service.ErrInvalidBuildingID)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	msgs, err := h.Board.ListMessages(ctx, actor, bid)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

func (h *BoardHandler) PostMessage(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	bid, ok := pathID(c, "id")
	if !ok {
		return h.errs.write(c, service.ErrInvalidBuildingID)
	}
	var req postMessageReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	msg, err := h.Board.PostMessage(ctx, actor, bid, req.Content, req.IsAnonymous)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *BoardHandler) ListPinned(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	bid, ok := pathID(c, "id")
	if !ok {
		return h.errs.write(c, service.ErrInvalidBuildingID)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pins, err := h.Board.ListPinned(ctx, actor, bid)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pinned_messages": pins})
}

func (h *BoardHandler) Pin(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	bid, ok := pathID(c, "id")
	if !ok {
		return h.errs.write(c, service.ErrInvalidBuildingID)
	}
	var req pinReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Board.Pin(ctx, actor, bid, req.Content)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *BoardHandler) Unpin(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid pinned message id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Board.Unpin(ctx, actor, id); err != nil {
		return h.errs.write(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BoardHandler) Stats(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	bid, ok := pathID(c, "id")
	if !ok {
		return h.errs.write(c, service.ErrInvalidBuildingID)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	st, err := h.Buildings.Stats(ctx, actor, bid)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
