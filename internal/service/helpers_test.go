package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/queue"
	"github.com/iliyamo/dormboard/internal/repository"
)

func duplicateEntry() error {
	return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	events []queue.EmergencyEvent
	err    error
}

func (p *recordingPublisher) PublishEmergency(_ context.Context, ev queue.EmergencyEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

type testEnv struct {
	db          *sql.DB
	mock        sqlmock.Sqlmock
	creds       *CredentialStore
	gate        *Gate
	invites     *InviteAuthority
	enroll      *EnrollmentService
	emergencies *EmergencyService
	board       *BoardService
	buildings   *BuildingService
	events      *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zap.NewNop()
	users := repository.NewUserRepo(db)
	members := repository.NewMembershipRepo(db)
	buildings := repository.NewBuildingRepo(db)
	codes := repository.NewInviteCodeRepo(db)
	reports := repository.NewEmergencyRepo(db)
	pins := repository.NewPinnedMessageRepo(db)
	messages := repository.NewMessageRepo(db)

	env := &testEnv{db: db, mock: mock, events: &recordingPublisher{}}
	env.creds = NewCredentialStore(users, 4, log)
	env.gate = NewGate(NewResolver(members, log), members, log)
	env.invites = NewInviteAuthority(codes, buildings, env.gate, log)
	env.invites.now = func() time.Time { return testNow }
	env.enroll = NewEnrollmentService(db, env.creds, members, buildings, env.invites, env.gate,
		EnrollmentPolicy{EmailSuffixes: []string{".edu"}, MinPasswordLen: 8}, log)
	env.emergencies = NewEmergencyService(db, reports, pins, buildings, env.gate, env.events, log)
	env.emergencies.now = func() time.Time { return testNow }
	env.board = NewBoardService(messages, pins, env.gate, log)
	env.buildings = NewBuildingService(buildings, members, env.gate, log)
	return env
}

// expectRole queues the membership lookup for uid.  An empty role means
// the user is in no extension table.
func (e *testEnv) expectRole(uid uint64, role string, buildingID interface{}) {
	rows := sqlmock.NewRows([]string{"role", "building_id", "admin_level"})
	if role != "" {
		rows.AddRow(role, buildingID, nil)
	}
	e.mock.ExpectQuery("UNION ALL").WithArgs(uid, uid, uid).WillReturnRows(rows)
}

func (e *testEnv) expectBuilding(id uint64, name string) {
	e.mock.ExpectQuery("FROM buildings WHERE building_id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"building_id", "building_name", "description", "created_at"}).
			AddRow(id, name, nil, testNow))
}

func (e *testEnv) expectNoBuilding(id uint64) {
	e.mock.ExpectQuery("FROM buildings WHERE building_id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"building_id", "building_name", "description", "created_at"}))
}

func (e *testEnv) expectIdentityFree(username, email string) {
	e.mock.ExpectQuery("SELECT user_id FROM users").
		WithArgs(email, username).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
}

// inviteState describes a stored invite code row.
type inviteState struct {
	id         uint64
	code       string
	buildingID uint64
	usedBy     interface{}
	active     bool
	expiresAt  interface{}
}

var inviteCols = []string{
	"invite_code_id", "code", "building_id", "created_by", "used_by",
	"used_at", "expires_at", "is_active", "created_at",
}

func (e *testEnv) expectInviteLookup(s inviteState, buildingName string) {
	var usedAt interface{}
	if s.usedBy != nil {
		usedAt = testNow.Add(-time.Hour)
	}
	e.mock.ExpectQuery("INNER JOIN buildings b ON ic.building_id").
		WithArgs(s.code).
		WillReturnRows(sqlmock.NewRows(append(inviteCols, "building_name")).
			AddRow(s.id, s.code, s.buildingID, 1, s.usedBy, usedAt, s.expiresAt, s.active, testNow.Add(-24*time.Hour), buildingName))
}

func (e *testEnv) expectInviteLock(s inviteState) {
	var usedAt interface{}
	if s.usedBy != nil {
		usedAt = testNow.Add(-time.Hour)
	}
	e.mock.ExpectQuery("FOR UPDATE").
		WithArgs(s.code).
		WillReturnRows(sqlmock.NewRows(inviteCols).
			AddRow(s.id, s.code, s.buildingID, 1, s.usedBy, usedAt, s.expiresAt, s.active, testNow.Add(-24*time.Hour)))
}

var emergencyCols = []string{
	"emergency_id", "user_id", "building_id", "emergency_type", "location", "location_hash",
	"description", "description_hash", "is_verified", "verified_by", "verified_at", "created_at",
}

func (e *testEnv) expectEmergencyLock(id, buildingID uint64, etype string, verified bool) {
	var verifiedBy, verifiedAt interface{}
	if verified {
		verifiedBy, verifiedAt = 9, testNow.Add(-time.Minute)
	}
	e.mock.ExpectQuery("FROM emergency_messages WHERE emergency_id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(emergencyCols).
			AddRow(id, 42, buildingID, etype, "3rd floor kitchen", "lh", "smoke from oven", "dh",
				verified, verifiedBy, verifiedAt, testNow.Add(-time.Hour)))
}
