package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/model"
	"github.com/iliyamo/dormboard/internal/repository"
)

const (
	// inviteAlphabet drops 0, O, 1 and I.  Its length divides 256 so a
	// random byte maps onto it uniformly.
	inviteAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodeLength = 8
	maxIssueAttempts = 10
)

// InviteValidation is what an enrolling student learns about a code.
type InviteValidation struct {
	Code         string `json:"code"`
	BuildingID   uint64 `json:"building_id"`
	BuildingName string `json:"building_name"`
}

// InviteAuthority issues, validates, consumes and deactivates invite codes.
type InviteAuthority struct {
	codes     *repository.InviteCodeRepo
	buildings *repository.BuildingRepo
	gate      *Gate
	log       *zap.Logger
	now       func() time.Time
	generate  func() (string, error)
}

func NewInviteAuthority(codes *repository.InviteCodeRepo, buildings *repository.BuildingRepo, gate *Gate, log *zap.Logger) *InviteAuthority {
	return &InviteAuthority{
		codes:     codes,
		buildings: buildings,
		gate:      gate,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		generate:  generateInviteCode,
	}
}

func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
	}
	return string(buf), nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Issue creates a code for a building.  An admin must name the building;
// an RA may only issue for their own.  ttlDays > 0 sets an expiry.
func (a *InviteAuthority) Issue(ctx context.Context, actor Actor, buildingID *uint64, ttlDays *int) (*model.InviteCode, error) {
	m, err := a.gate.RequireStaff(ctx, actor)
	if err != nil {
		return nil, err
	}

	var target uint64
	switch m.Role {
	case model.RoleRA:
		if m.BuildingID == nil {
			return nil, forbidden("no building assigned")
		}
		if buildingID != nil && *buildingID != *m.BuildingID {
			return nil, forbidden("cannot generate codes for other buildings")
		}
		target = *m.BuildingID
	default:
		if buildingID == nil || *buildingID == 0 {
			return nil, invalid("building_id is required")
		}
		if _, err := a.buildings.GetByID(ctx, *buildingID); err != nil {
			if errors.Is(err, repository.ErrBuildingNotFound) {
				return nil, ErrBuildingNotFound
			}
			return nil, internal("load building", err)
		}
		target = *buildingID
	}

	ic := &model.InviteCode{BuildingID: target, CreatedBy: actor.UserID}
	if ttlDays != nil && *ttlDays > 0 {
		exp := a.now().AddDate(0, 0, *ttlDays)
		ic.ExpiresAt = &exp
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := a.generate()
		if err != nil {
			return nil, internal("generate invite code", err)
		}
		taken, err := a.codes.CodeExists(ctx, code)
		if err != nil {
			return nil, internal("check invite code", err)
		}
		if taken {
			continue
		}
		ic.Code = code
		err = a.codes.Create(ctx, ic)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, internal("create invite code", err)
		}
		a.log.Info("invite code issued",
			zap.Uint64("invite_code_id", ic.ID),
			zap.Uint64("building_id", target),
			zap.Uint64("user_id", actor.UserID))
		return ic, nil
	}
	a.log.Error("invite code space exhausted", zap.Uint64("building_id", target), zap.Int("attempts", maxIssueAttempts))
	return nil, ErrCodeSpaceExhausted
}

// statusError maps a code's state onto its specific error.
func statusError(s model.InviteStatus) error {
	switch s {
	case model.InviteUsed:
		return ErrInviteAlreadyUsed
	case model.InviteInactive:
		return ErrInviteInactive
	case model.InviteExpired:
		return ErrInviteExpired
	}
	return nil
}

// Validate reports the building a usable code enrolls into.
func (a *InviteAuthority) Validate(ctx context.Context, code string) (InviteValidation, error) {
	code = normalizeCode(code)
	if code == "" {
		return InviteValidation{}, ErrInviteNotFound
	}
	ic, err := a.codes.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrInviteCodeNotFound) {
		return InviteValidation{}, ErrInviteNotFound
	}
	if err != nil {
		return InviteValidation{}, internal("load invite code", err)
	}
	if err := statusError(ic.StatusAt(a.now())); err != nil {
		return InviteValidation{}, err
	}
	return InviteValidation{Code: ic.Code, BuildingID: ic.BuildingID, BuildingName: ic.BuildingName}, nil
}

// ConsumeTx re-checks the code under a row lock and marks it used by
// userID.  The update is conditional, so of two racing transactions only
// one succeeds; the other gets ErrInviteAlreadyUsed.
func (a *InviteAuthority) ConsumeTx(ctx context.Context, tx *sql.Tx, code string, userID uint64) (uint64, error) {
	ic, err := a.codes.GetByCodeForUpdateTx(ctx, tx, normalizeCode(code))
	if errors.Is(err, repository.ErrInviteCodeNotFound) {
		return 0, ErrInviteNotFound
	}
	if err != nil {
		return 0, internal("lock invite code", err)
	}
	now := a.now()
	if err := statusError(ic.StatusAt(now)); err != nil {
		return 0, err
	}
	err = a.codes.MarkUsedTx(ctx, tx, ic.ID, userID, now)
	if errors.Is(err, repository.ErrConflict) {
		return 0, ErrInviteAlreadyUsed
	}
	if err != nil {
		return 0, internal("mark invite code used", err)
	}
	return ic.BuildingID, nil
}

// Deactivate disables a code.  RAs may only touch their building's codes.
func (a *InviteAuthority) Deactivate(ctx context.Context, actor Actor, codeID uint64) error {
	m, err := a.gate.RequireStaff(ctx, actor)
	if err != nil {
		return err
	}
	ic, err := a.codes.GetByID(ctx, codeID)
	if errors.Is(err, repository.ErrInviteCodeNotFound) {
		return ErrInviteNotFound
	}
	if err != nil {
		return internal("load invite code", err)
	}
	if m.Role == model.RoleRA && !m.InBuilding(ic.BuildingID) {
		return forbidden("cannot deactivate codes for other buildings")
	}
	if err := a.codes.Deactivate(ctx, codeID); err != nil {
		if errors.Is(err, repository.ErrInviteCodeNotFound) {
			return ErrInviteNotFound
		}
		return internal("deactivate invite code", err)
	}
	return nil
}

// List returns codes newest first.  An RA always sees only their own
// building; an admin sees every building unless buildingID filters.
func (a *InviteAuthority) List(ctx context.Context, actor Actor, buildingID *uint64) ([]model.InviteCode, error) {
	m, err := a.gate.RequireStaff(ctx, actor)
	if err != nil {
		return nil, err
	}
	filter := buildingID
	if m.Role == model.RoleRA {
		if m.BuildingID == nil {
			return nil, forbidden("no building assigned")
		}
		filter = m.BuildingID
	}
	out, err := a.codes.List(ctx, filter)
	if err != nil {
		return nil, internal("list invite codes", err)
	}
	return out, nil
}
