package service

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/database"
	"github.com/iliyamo/dormboard/internal/repository"
)

// EnrollStudentInput is a self-service student signup.
type EnrollStudentInput struct {
	Email       string
	Username    string
	Password    string
	InviteCode  string
	RoomNumber  *string
	FloorNumber *string
}

// Enrollment is the result of a successful signup.
type Enrollment struct {
	UserID     uint64 `json:"user_id"`
	BuildingID uint64 `json:"building_id"`
}

// CreateRAInput describes a new resident assistant.
type CreateRAInput struct {
	Username       string
	Email          string
	Password       string
	BuildingID     uint64
	PhoneNumber    *string
	OfficeLocation *string
}

// EnrollmentPolicy holds the account rules shared by both signup paths.
type EnrollmentPolicy struct {
	EmailSuffixes  []string
	MinPasswordLen int
}

// EnrollmentService creates student and RA accounts as single units of
// work.
type EnrollmentService struct {
	db        *sql.DB
	creds     *CredentialStore
	members   *repository.MembershipRepo
	buildings *repository.BuildingRepo
	invites   *InviteAuthority
	gate      *Gate
	policy    EnrollmentPolicy
	log       *zap.Logger
}

func NewEnrollmentService(db *sql.DB, creds *CredentialStore, members *repository.MembershipRepo,
	buildings *repository.BuildingRepo, invites *InviteAuthority, gate *Gate, policy EnrollmentPolicy, log *zap.Logger) *EnrollmentService {
	return &EnrollmentService{
		db:        db,
		creds:     creds,
		members:   members,
		buildings: buildings,
		invites:   invites,
		gate:      gate,
		policy:    policy,
		log:       log,
	}
}

// checkAccount validates the identity fields common to students and RAs.
// The email domain is checked before anything touches the store.
func (s *EnrollmentService) checkAccount(username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return invalid("username, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("email is not a valid address")
	}
	if !s.institutional(email) {
		return ErrInvalidEmailDomain
	}
	if utf8.RuneCountInString(password) < s.policy.MinPasswordLen {
		return invalid("password is too short")
	}
	return nil
}

func (s *EnrollmentService) institutional(email string) bool {
	email = strings.ToLower(email)
	for _, suffix := range s.policy.EmailSuffixes {
		if strings.HasSuffix(email, suffix) {
			return true
		}
	}
	return false
}

// EnrollStudent registers a student into the building named by an invite
// code.  The user, student row, invite consumption and building link
// commit together or not at all.
func (s *EnrollmentService) EnrollStudent(ctx context.Context, in EnrollStudentInput) (Enrollment, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.checkAccount(in.Username, in.Email, in.Password); err != nil {
		return Enrollment{}, err
	}
	if strings.TrimSpace(in.InviteCode) == "" {
		return Enrollment{}, invalid("invite code is required")
	}
	if err := s.creds.CheckAvailable(ctx, in.Username, in.Email); err != nil {
		return Enrollment{}, err
	}
	if _, err := s.invites.Validate(ctx, in.InviteCode); err != nil {
		return Enrollment{}, err
	}
	digest, err := s.creds.Digest(in.Password)
	if err != nil {
		return Enrollment{}, err
	}

	var out Enrollment
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		uid, err := s.creds.RegisterTx(ctx, tx, in.Username, in.Email, digest)
		if err != nil {
			return err
		}
		if err := s.members.CreateStudentTx(ctx, tx, uid, in.RoomNumber, in.FloorNumber); err != nil {
			return internal("create student", err)
		}
		bid, err := s.invites.ConsumeTx(ctx, tx, in.InviteCode, uid)
		if err != nil {
			return err
		}
		if err := s.members.LinkBuildingTx(ctx, tx, uid, bid); err != nil {
			return internal("link building", err)
		}
		out = Enrollment{UserID: uid, BuildingID: bid}
		return nil
	})
	if err != nil {
		return Enrollment{}, txError(s.log, "enroll student", err)
	}
	s.log.Info("student enrolled", zap.Uint64("user_id", out.UserID), zap.Uint64("building_id", out.BuildingID))
	return out, nil
}

// CreateRA registers the resident assistant of a building.  Only admins
// may call it and a building holds at most one RA; the building row is
// locked while the check and insert run.
func (s *EnrollmentService) CreateRA(ctx context.Context, actor Actor, in CreateRAInput) (uint64, error) {
	if _, err := s.gate.RequireAdmin(ctx, actor); err != nil {
		return 0, err
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.checkAccount(in.Username, in.Email, in.Password); err != nil {
		return 0, err
	}
	if in.BuildingID == 0 {
		return 0, invalid("building_id is required")
	}
	if err := s.creds.CheckAvailable(ctx, in.Username, in.Email); err != nil {
		return 0, err
	}
	if _, err := s.buildings.GetByID(ctx, in.BuildingID); err != nil {
		if errors.Is(err, repository.ErrBuildingNotFound) {
			return 0, ErrBuildingNotFound
		}
		return 0, internal("load building", err)
	}
	staffed, err := s.members.RAExistsForBuilding(ctx, in.BuildingID)
	if err != nil {
		return 0, internal("check building staff", err)
	}
	if staffed {
		return 0, ErrBuildingAlreadyStaffed
	}
	digest, err := s.creds.Digest(in.Password)
	if err != nil {
		return 0, err
	}

	var uid uint64
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.buildings.LockTx(ctx, tx, in.BuildingID); err != nil {
			if errors.Is(err, repository.ErrBuildingNotFound) {
				return ErrBuildingNotFound
			}
			return internal("lock building", err)
		}
		staffed, err := s.members.RAExistsForBuildingTx(ctx, tx, in.BuildingID)
		if err != nil {
			return internal("check building staff", err)
		}
		if staffed {
			return ErrBuildingAlreadyStaffed
		}
		uid, err = s.creds.RegisterTx(ctx, tx, in.Username, in.Email, digest)
		if err != nil {
			return err
		}
		if _, err := s.members.CreateRATx(ctx, tx, uid, in.BuildingID, in.PhoneNumber, in.OfficeLocation); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrBuildingAlreadyStaffed
			}
			return internal("create RA", err)
		}
		return nil
	})
	if err != nil {
		return 0, txError(s.log, "create RA", err)
	}
	s.log.Info("RA created",
		zap.Uint64("user_id", uid),
		zap.Uint64("building_id", in.BuildingID),
		zap.Uint64("admin_id", actor.UserID))
	return uid, nil
}

// txError passes classified errors through and wraps the rest, which come
// from begin or commit.  Internal failures are logged.
func txError(log *zap.Logger, op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		if se.Kind == KindInternal {
			log.Error(op+" failed", zap.Error(err))
		}
		return err
	}
	log.Error(op+" failed", zap.Error(err))
	return internal(op, err)
}
