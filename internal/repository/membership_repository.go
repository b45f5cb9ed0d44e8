package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/dormboard/internal/model"
)

// MembershipRepo reads and writes the role extension tables (students,
// ras, admins) and the student building links in user_buildings.
type MembershipRepo struct {
	db *sql.DB
}

func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

// MembershipRow is one extension-table match for a user.
type MembershipRow struct {
	Role       model.Role
	BuildingID *uint64
	AdminLevel *string
}

// resolveQuery probes all three extension tables in a single round trip.
// A student's building is the first link by insertion order.
const resolveQuery = `
SELECT 'admin' AS role, NULL AS building_id, a.admin_level
  FROM admins a WHERE a.user_id = ?
UNION ALL
SELECT 'RA', r.building_id, NULL
  FROM ras r WHERE r.user_id = ?
UNION ALL
SELECT 'student',
       (SELECT ub.building_id FROM user_buildings ub
         WHERE ub.user_id = s.user_id ORDER BY ub.user_building_id LIMIT 1),
       NULL
  FROM students s WHERE s.user_id = ?`

// Resolve returns every extension-table row that references userID.  An
// empty slice means the user has no role.
func (r *MembershipRepo) Resolve(ctx context.Context, userID uint64) ([]MembershipRow, error) {
	rows, err := r.db.QueryContext(ctx, resolveQuery, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MembershipRow
	for rows.Next() {
		var (
			role       string
			buildingID sql.NullInt64
			adminLevel sql.NullString
		)
		if err := rows.Scan(&role, &buildingID, &adminLevel); err != nil {
			return nil, err
		}
		row := MembershipRow{Role: model.ParseRole(role)}
		if buildingID.Valid {
			b := uint64(buildingID.Int64)
			row.BuildingID = &b
		}
		if adminLevel.Valid {
			lvl := adminLevel.String
			row.AdminLevel = &lvl
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// StudentInBuilding reports whether a building link joins userID to buildingID.
func (r *MembershipRepo) StudentInBuilding(ctx context.Context, userID, buildingID uint64) (bool, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT building_id FROM user_buildings WHERE user_id = ? AND building_id = ? LIMIT 1",
		userID, buildingID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// CreateStudentTx inserts the student extension row.
func (r *MembershipRepo) CreateStudentTx(ctx context.Context, tx *sql.Tx, userID uint64, room, floor *string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO students (user_id, room_number, floor_number) VALUES (?, ?, ?)",
		userID, room, floor)
	return mapDuplicate(err)
}

// LinkBuildingTx links a student to a building.
func (r *MembershipRepo) LinkBuildingTx(ctx context.Context, tx *sql.Tx, userID, buildingID uint64) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO user_buildings (user_id, building_id) VALUES (?, ?)",
		userID, buildingID)
	return mapDuplicate(err)
}

// RAExistsForBuilding reports whether a building already has an RA.
func (r *MembershipRepo) RAExistsForBuilding(ctx context.Context, buildingID uint64) (bool, error) {
	return raExists(r.db.QueryRowContext(ctx, "SELECT ra_id FROM ras WHERE building_id = ? LIMIT 1", buildingID))
}

// RAExistsForBuildingTx is RAExistsForBuilding inside tx; callers lock the
// building row first so the check and the insert cannot interleave.
func (r *MembershipRepo) RAExistsForBuildingTx(ctx context.Context, tx *sql.Tx, buildingID uint64) (bool, error) {
	return raExists(tx.QueryRowContext(ctx, "SELECT ra_id FROM ras WHERE building_id = ? LIMIT 1", buildingID))
}

func raExists(row *sql.Row) (bool, error) {
	var id uint64
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// CreateRATx inserts an RA record for userID in buildingID.
func (r *MembershipRepo) CreateRATx(ctx context.Context, tx *sql.Tx, userID, buildingID uint64, phone, office *string) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO ras (user_id, building_id, phone_number, office_location) VALUES (?, ?, ?, ?)",
		userID, buildingID, phone, office)
	if err != nil {
		return 0, mapDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListRAs returns every RA with user and building details ordered by
// building name then username.
func (r *MembershipRepo) ListRAs(ctx context.Context) ([]model.RA, error) {
	const q = `SELECT r.ra_id, r.user_id, r.building_id, r.phone_number, r.office_location, r.created_at,
	                  u.username, u.student_email, b.building_name
	           FROM ras r
	           INNER JOIN users u ON r.user_id = u.user_id
	           INNER JOIN buildings b ON r.building_id = b.building_id
	           ORDER BY b.building_name, u.username`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.RA{}
	for rows.Next() {
		var (
			ra            model.RA
			phone, office sql.NullString
		)
		if err := rows.Scan(&ra.RAID, &ra.UserID, &ra.BuildingID, &phone, &office, &ra.CreatedAt,
			&ra.Username, &ra.Email, &ra.BuildingName); err != nil {
			return nil, err
		}
		ra.PhoneNumber = nullString(phone)
		ra.OfficeLocation = nullString(office)
		out = append(out, ra)
	}
	return out, rows.Err()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullUint(ni sql.NullInt64) *uint64 {
	if !ni.Valid {
		return nil
	}
	v := uint64(ni.Int64)
	return &v
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
