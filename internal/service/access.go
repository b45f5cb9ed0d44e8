package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/model"
	"github.com/iliyamo/dormboard/internal/repository"
)

// Actor is the caller of a service operation.  UserID comes from a
// verified session token; Role is the role the token was issued for and
// is only compared against the stored membership, never trusted alone.
type Actor struct {
	UserID uint64
	Role   model.Role
}

// Operation names a building-scoped action checked by the Gate.
type Operation string

const (
	OpReadMessages    Operation = "read_messages"
	OpPostMessage     Operation = "post_message"
	OpReadPinned      Operation = "read_pinned"
	OpPin             Operation = "pin"
	OpUnpin           Operation = "unpin"
	OpStats           Operation = "stats"
	OpReportEmergency Operation = "report_emergency"
	OpVerifyEmergency Operation = "verify_emergency"
)

// staffOnly reports whether op needs an RA or admin.
func (op Operation) staffOnly() bool {
	switch op {
	case OpPin, OpUnpin, OpVerifyEmergency:
		return true
	}
	return false
}

// Gate authorizes building-scoped operations from stored membership.
type Gate struct {
	resolver *Resolver
	members  *repository.MembershipRepo
	log      *zap.Logger
}

func NewGate(resolver *Resolver, members *repository.MembershipRepo, log *zap.Logger) *Gate {
	return &Gate{resolver: resolver, members: members, log: log}
}

// Confirm resolves the actor's membership and checks it still matches the
// role the session was issued for.  Users without a role are refused.
func (g *Gate) Confirm(ctx context.Context, a Actor) (model.Membership, error) {
	m, err := g.resolver.Resolve(ctx, a.UserID)
	if err != nil {
		return model.Membership{}, err
	}
	if m.Role == model.RoleNone {
		return model.Membership{}, forbidden("account has no role")
	}
	if a.Role != model.RoleNone && a.Role != m.Role {
		g.log.Warn("session role does not match stored role",
			zap.Uint64("user_id", a.UserID),
			zap.String("claimed", string(a.Role)),
			zap.String("stored", string(m.Role)))
		return model.Membership{}, forbidden("role changed, sign in again")
	}
	return m, nil
}

// RequireStaff confirms the actor is an RA or admin.
func (g *Gate) RequireStaff(ctx context.Context, a Actor) (model.Membership, error) {
	m, err := g.Confirm(ctx, a)
	if err != nil {
		return model.Membership{}, err
	}
	if !m.Role.IsStaff() {
		return model.Membership{}, forbidden("RA or admin role required")
	}
	return m, nil
}

// RequireAdmin confirms the actor is an admin.
func (g *Gate) RequireAdmin(ctx context.Context, a Actor) (model.Membership, error) {
	m, err := g.Confirm(ctx, a)
	if err != nil {
		return model.Membership{}, err
	}
	if m.Role != model.RoleAdmin {
		return model.Membership{}, forbidden("admin role required")
	}
	return m, nil
}

// Authorize allows op on buildingID when the actor is an admin, the RA of
// that building, or a student linked to it.
func (g *Gate) Authorize(ctx context.Context, a Actor, buildingID uint64, op Operation) (model.Membership, error) {
	m, err := g.Confirm(ctx, a)
	if err != nil {
		return model.Membership{}, err
	}
	if op.staffOnly() && !m.Role.IsStaff() {
		return model.Membership{}, forbidden("RA or admin role required")
	}
	switch m.Role {
	case model.RoleAdmin:
		return m, nil
	case model.RoleRA:
		if m.InBuilding(buildingID) {
			return m, nil
		}
	case model.RoleStudent:
		linked, err := g.members.StudentInBuilding(ctx, a.UserID, buildingID)
		if err != nil {
			return model.Membership{}, internal("check building link", err)
		}
		if linked {
			return m, nil
		}
	}
	return model.Membership{}, forbidden("you can only act on your assigned building")
}
