package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/model"
	"github.com/iliyamo/dormboard/internal/repository"
)

// Resolver maps a user onto exactly one role.
type Resolver struct {
	repo *repository.MembershipRepo
	log  *zap.Logger
}

func NewResolver(repo *repository.MembershipRepo, log *zap.Logger) *Resolver {
	return &Resolver{repo: repo, log: log}
}

// Resolve returns the user's membership.  A user in no extension table
// gets RoleNone.  A user in more than one is refused with ErrRoleConflict
// rather than silently picking the strongest role.
func (r *Resolver) Resolve(ctx context.Context, userID uint64) (model.Membership, error) {
	rows, err := r.repo.Resolve(ctx, userID)
	if err != nil {
		return model.Membership{}, internal("resolve membership", err)
	}
	m := model.Membership{UserID: userID, Role: model.RoleNone}
	switch len(rows) {
	case 0:
		return m, nil
	case 1:
		m.Role = rows[0].Role
		m.BuildingID = rows[0].BuildingID
		m.AdminLevel = rows[0].AdminLevel
		return m, nil
	}

	roles := make([]string, 0, len(rows))
	strongest := model.RoleNone
	for _, row := range rows {
		roles = append(roles, string(row.Role))
		if row.Role.Rank() > strongest.Rank() {
			strongest = row.Role
		}
	}
	r.log.Error("user matches several role tables",
		zap.Uint64("user_id", userID),
		zap.Strings("roles", roles),
		zap.String("precedence_role", string(strongest)))
	return model.Membership{}, ErrRoleConflict
}
