package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/model"
	"github.com/iliyamo/dormboard/internal/repository"
)

// BuildingService manages buildings and their staff listings.
type BuildingService struct {
	buildings *repository.BuildingRepo
	members   *repository.MembershipRepo
	gate      *Gate
	log       *zap.Logger
}

func NewBuildingService(buildings *repository.BuildingRepo, members *repository.MembershipRepo, gate *Gate, log *zap.Logger) *BuildingService {
	return &BuildingService{buildings: buildings, members: members, gate: gate, log: log}
}

// Create adds a building.  Admin only; names are unique.
func (s *BuildingService) Create(ctx context.Context, actor Actor, name string, description *string) (*model.Building, error) {
	if _, err := s.gate.RequireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("building_name is required")
	}
	if description != nil {
		if d := strings.TrimSpace(*description); d == "" {
			description = nil
		} else {
			description = &d
		}
	}
	b := &model.Building{Name: name, Description: description}
	err := s.buildings.Create(ctx, b)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrBuildingNameTaken
	}
	if err != nil {
		return nil, internal("create building", err)
	}
	s.log.Info("building created", zap.Uint64("building_id", b.ID), zap.Uint64("user_id", actor.UserID))
	return b, nil
}

// List returns every building ordered by name.  Admin only.
func (s *BuildingService) List(ctx context.Context, actor Actor) ([]model.Building, error) {
	if _, err := s.gate.RequireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	out, err := s.buildings.List(ctx)
	if err != nil {
		return nil, internal("list buildings", err)
	}
	return out, nil
}

// StaffBuilding returns the building an RA manages.  Admins, who are not
// bound to one building, get the first building by name.
func (s *BuildingService) StaffBuilding(ctx context.Context, actor Actor) (*model.Building, error) {
	m, err := s.gate.RequireStaff(ctx, actor)
	if err != nil {
		return nil, err
	}
	var b *model.Building
	if m.Role == model.RoleRA {
		if m.BuildingID == nil {
			return nil, ErrBuildingNotFound
		}
		b, err = s.buildings.GetByID(ctx, *m.BuildingID)
	} else {
		b, err = s.buildings.First(ctx)
	}
	if errors.Is(err, repository.ErrBuildingNotFound) {
		return nil, ErrBuildingNotFound
	}
	if err != nil {
		return nil, internal("load building", err)
	}
	return b, nil
}

// Stats counts a building's members and messages.
func (s *BuildingService) Stats(ctx context.Context, actor Actor, buildingID uint64) (model.BuildingStats, error) {
	if _, err := s.gate.Authorize(ctx, actor, buildingID, OpStats); err != nil {
		return model.BuildingStats{}, err
	}
	st, err := s.buildings.Stats(ctx, buildingID)
	if errors.Is(err, repository.ErrBuildingNotFound) {
		return model.BuildingStats{}, ErrBuildingNotFound
	}
	if err != nil {
		return model.BuildingStats{}, internal("building stats", err)
	}
	return st, nil
}

// ListRAs returns every RA with their building.  Admin only.
func (s *BuildingService) ListRAs(ctx context.Context, actor Actor) ([]model.RA, error) {
	if _, err := s.gate.RequireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	out, err := s.members.ListRAs(ctx)
	if err != nil {
		return nil, internal("list RAs", err)
	}
	return out, nil
}
