package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/model"
	"github.com/iliyamo/dormboard/internal/repository"
	"github.com/iliyamo/dormboard/internal/utils"
)

const maxContentLength = 5000

// BoardService serves a building's message board and pinned announcements.
type BoardService struct {
	messages *repository.MessageRepo
	pins     *repository.PinnedMessageRepo
	gate     *Gate
	log      *zap.Logger
}

func NewBoardService(messages *repository.MessageRepo, pins *repository.PinnedMessageRepo, gate *Gate, log *zap.Logger) *BoardService {
	return &BoardService{messages: messages, pins: pins, gate: gate, log: log}
}

func cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalid("content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return "", invalid("content is too long")
	}
	return content, nil
}

// PostMessage appends a message to the board.  Anonymous posts still
// record the author; only listings hide the name.
func (s *BoardService) PostMessage(ctx context.Context, actor Actor, buildingID uint64, content string, anonymous bool) (*model.Message, error) {
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	m, err := s.gate.Authorize(ctx, actor, buildingID, OpPostMessage)
	if err != nil {
		return nil, err
	}
	msg := &model.Message{
		UserID:      actor.UserID,
		BuildingID:  buildingID,
		Content:     content,
		ContentHash: utils.ContentHash(content),
		IsAnonymous: anonymous,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		s.log.Error("create message failed", zap.Uint64("building_id", buildingID), zap.Uint64("user_id", actor.UserID), zap.Error(err))
		return nil, internal("create message", err)
	}
	role := string(m.Role)
	msg.AuthorRole = &role
	if anonymous {
		msg.Author = "Anonymous"
	}
	return msg, nil
}

// ListMessages returns the board newest first.
func (s *BoardService) ListMessages(ctx context.Context, actor Actor, buildingID uint64) ([]model.Message, error) {
	if _, err := s.gate.Authorize(ctx, actor, buildingID, OpReadMessages); err != nil {
		return nil, err
	}
	out, err := s.messages.ListByBuilding(ctx, buildingID)
	if err != nil {
		return nil, internal("list messages", err)
	}
	return out, nil
}

// Pin posts a manual announcement.
func (s *BoardService) Pin(ctx context.Context, actor Actor, buildingID uint64, content string) (*model.PinnedMessage, error) {
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.Authorize(ctx, actor, buildingID, OpPin); err != nil {
		return nil, err
	}
	p := &model.PinnedMessage{
		UserID:      actor.UserID,
		BuildingID:  buildingID,
		Content:     content,
		ContentHash: utils.ContentHash(content),
	}
	if err := s.pins.Create(ctx, p); err != nil {
		return nil, internal("create pinned message", err)
	}
	return p, nil
}

// ListPinned returns a building's announcements newest first.
func (s *BoardService) ListPinned(ctx context.Context, actor Actor, buildingID uint64) ([]model.PinnedMessage, error) {
	if _, err := s.gate.Authorize(ctx, actor, buildingID, OpReadPinned); err != nil {
		return nil, err
	}
	out, err := s.pins.ListByBuilding(ctx, buildingID)
	if err != nil {
		return nil, internal("list pinned messages", err)
	}
	return out, nil
}

// Unpin deletes an announcement from the actor's building.
func (s *BoardService) Unpin(ctx context.Context, actor Actor, pinnedID uint64) error {
	p, err := s.pins.GetByID(ctx, pinnedID)
	if errors.Is(err, repository.ErrPinnedMessageNotFound) {
		return ErrPinnedNotFound
	}
	if err != nil {
		return internal("load pinned message", err)
	}
	if _, err := s.gate.Authorize(ctx, actor, p.BuildingID, OpUnpin); err != nil {
		return err
	}
	if err := s.pins.Delete(ctx, pinnedID); err != nil {
		if errors.Is(err, repository.ErrPinnedMessageNotFound) {
			return ErrPinnedNotFound
		}
		return internal("delete pinned message", err)
	}
	s.log.Info("pinned message removed", zap.Uint64("pinned_message_id", pinnedID), zap.Uint64("user_id", actor.UserID))
	return nil
}
