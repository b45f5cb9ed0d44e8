package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/database"
	"github.com/iliyamo/dormboard/internal/model"
	"github.com/iliyamo/dormboard/internal/queue"
	"github.com/iliyamo/dormboard/internal/repository"
	"github.com/iliyamo/dormboard/internal/utils"
)

// EventPublisher delivers emergency events after they commit.
type EventPublisher interface {
	PublishEmergency(ctx context.Context, ev queue.EmergencyEvent) error
}

// ReportInput is a new emergency report.
type ReportInput struct {
	BuildingID  uint64
	Type        string
	Location    string
	Description string
}

// Verification is the outcome of verifying a report.
type Verification struct {
	Emergency     *model.EmergencyReport `json:"emergency"`
	PinnedMessage *model.PinnedMessage   `json:"pinned_message"`
}

// EmergencyService runs the Reported -> Verified workflow.
type EmergencyService struct {
	db        *sql.DB
	reports   *repository.EmergencyRepo
	pins      *repository.PinnedMessageRepo
	buildings *repository.BuildingRepo
	gate      *Gate
	events    EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

func NewEmergencyService(db *sql.DB, reports *repository.EmergencyRepo, pins *repository.PinnedMessageRepo,
	buildings *repository.BuildingRepo, gate *Gate, events EventPublisher, log *zap.Logger) *EmergencyService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &EmergencyService{
		db:        db,
		reports:   reports,
		pins:      pins,
		buildings: buildings,
		gate:      gate,
		events:    events,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PinnedContent is the announcement text produced by verifying a report.
func PinnedContent(t model.EmergencyType, location, description string) string {
	return fmt.Sprintf("🚨 %s - %s\n\n%s", t.Label(), location, description)
}

// Report records an unverified emergency in a building the reporter
// belongs to.  Location and description are hashed for integrity.
func (s *EmergencyService) Report(ctx context.Context, actor Actor, in ReportInput) (*model.EmergencyReport, error) {
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	if in.Location == "" || in.Description == "" {
		return nil, invalid("location and description are required")
	}
	etype := model.EmergencyType(strings.ToLower(strings.TrimSpace(in.Type)))
	if !etype.Valid() {
		return nil, ErrInvalidEmergencyType
	}
	if in.BuildingID == 0 {
		return nil, ErrInvalidBuildingID
	}
	if _, err := s.buildings.GetByID(ctx, in.BuildingID); err != nil {
		if errors.Is(err, repository.ErrBuildingNotFound) {
			return nil, ErrInvalidBuildingID
		}
		return nil, internal("load building", err)
	}
	if _, err := s.gate.Authorize(ctx, actor, in.BuildingID, OpReportEmergency); err != nil {
		return nil, err
	}

	e := &model.EmergencyReport{
		ReporterID:      actor.UserID,
		BuildingID:      in.BuildingID,
		Type:            etype,
		Location:        in.Location,
		LocationHash:    utils.ContentHash(in.Location),
		Description:     in.Description,
		DescriptionHash: utils.ContentHash(in.Description),
	}
	if err := s.reports.Create(ctx, e); err != nil {
		s.log.Error("create emergency failed", zap.Uint64("building_id", in.BuildingID), zap.Uint64("user_id", actor.UserID), zap.Error(err))
		return nil, internal("create emergency", err)
	}
	s.log.Warn("emergency reported",
		zap.Uint64("emergency_id", e.ID),
		zap.Uint64("building_id", e.BuildingID),
		zap.String("emergency_type", string(e.Type)))
	s.publish(ctx, queue.EmergencyEvent{
		Kind:          queue.KindEmergencyReported,
		EmergencyID:   e.ID,
		BuildingID:    e.BuildingID,
		EmergencyType: string(e.Type),
		ActorID:       actor.UserID,
		OccurredAt:    e.CreatedAt,
	})
	return e, nil
}

// Verify marks a report verified, appends the audit row and pins the
// announcement in one transaction.  RAs may only verify reports from
// their own building; a report is verified at most once.
func (s *EmergencyService) Verify(ctx context.Context, actor Actor, emergencyID uint64, notes *string) (*Verification, error) {
	m, err := s.gate.RequireStaff(ctx, actor)
	if err != nil {
		return nil, err
	}
	if notes != nil {
		if n := strings.TrimSpace(*notes); n == "" {
			notes = nil
		} else {
			notes = &n
		}
	}

	var out Verification
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		e, err := s.reports.GetForUpdateTx(ctx, tx, emergencyID)
		if errors.Is(err, repository.ErrEmergencyNotFound) {
			return ErrEmergencyNotFound
		}
		if err != nil {
			return internal("load emergency", err)
		}
		if m.Role == model.RoleRA && !m.InBuilding(e.BuildingID) {
			return forbidden("cannot verify outside your assigned building")
		}
		if e.IsVerified {
			return ErrEmergencyAlreadyVerified
		}

		at := s.now()
		if err := s.reports.MarkVerifiedTx(ctx, tx, e.ID, actor.UserID, at); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrEmergencyAlreadyVerified
			}
			return internal("mark emergency verified", err)
		}
		if err := s.reports.InsertVerificationTx(ctx, tx, &model.EmergencyVerification{
			EmergencyID: e.ID,
			VerifiedBy:  actor.UserID,
			Notes:       notes,
		}); err != nil {
			return internal("insert verification", err)
		}

		content := PinnedContent(e.Type, e.Location, e.Description)
		etype := e.Type
		pin := &model.PinnedMessage{
			UserID:        actor.UserID,
			BuildingID:    e.BuildingID,
			Content:       content,
			ContentHash:   utils.ContentHash(content),
			EmergencyID:   &e.ID,
			EmergencyType: &etype,
			CreatedAt:     at,
		}
		if err := s.pins.CreateTx(ctx, tx, pin); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmergencyAlreadyVerified
			}
			return internal("pin emergency", err)
		}

		verifier := actor.UserID
		e.IsVerified = true
		e.VerifiedBy = &verifier
		e.VerifiedAt = &at
		e.PinnedMessageID = &pin.ID
		out = Verification{Emergency: e, PinnedMessage: pin}
		return nil
	})
	if err != nil {
		return nil, txError(s.log, "verify emergency", err)
	}

	s.log.Info("emergency verified",
		zap.Uint64("emergency_id", emergencyID),
		zap.Uint64("building_id", out.Emergency.BuildingID),
		zap.Uint64("user_id", actor.UserID),
		zap.Uint64("pinned_message_id", out.PinnedMessage.ID))
	s.publish(ctx, queue.EmergencyEvent{
		Kind:            queue.KindEmergencyVerified,
		EmergencyID:     emergencyID,
		BuildingID:      out.Emergency.BuildingID,
		EmergencyType:   string(out.Emergency.Type),
		ActorID:         actor.UserID,
		PinnedMessageID: &out.PinnedMessage.ID,
		OccurredAt:      *out.Emergency.VerifiedAt,
	})
	return &out, nil
}

// List returns reports newest first.  An RA always sees only their own
// building; an admin sees all buildings unless buildingID filters.
// Students cannot list reports.
func (s *EmergencyService) List(ctx context.Context, actor Actor, buildingID *uint64, unverifiedOnly bool) ([]model.EmergencyReport, error) {
	m, err := s.gate.RequireStaff(ctx, actor)
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
	out, err := s.reports.List(ctx, filter, unverifiedOnly)
	if err != nil {
		return nil, internal("list emergencies", err)
	}
	return out, nil
}

// publish sends ev without letting a broker failure reach the caller.
func (s *EmergencyService) publish(ctx context.Context, ev queue.EmergencyEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.events.PublishEmergency(ctx, ev); err != nil {
		s.log.Warn("publish emergency event failed",
			zap.String("kind", ev.Kind),
			zap.Uint64("emergency_id", ev.EmergencyID),
			zap.Error(err))
	}
}
