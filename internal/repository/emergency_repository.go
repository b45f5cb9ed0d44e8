package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/dormboard/internal/model"
)

// ErrEmergencyNotFound is returned when an emergency report is unknown.
var ErrEmergencyNotFound = errors.New("emergency not found")

// EmergencyRepo persists emergency reports and their verification audit
// trail.
type EmergencyRepo struct {
	db *sql.DB
}

func NewEmergencyRepo(db *sql.DB) *EmergencyRepo { return &EmergencyRepo{db: db} }

// Create inserts an unverified report and fills ID and CreatedAt.
func (r *EmergencyRepo) Create(ctx context.Context, e *model.EmergencyReport) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO emergency_messages
		   (user_id, building_id, emergency_type, location, location_hash, description, description_hash, is_verified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		e.ReporterID, e.BuildingID, string(e.Type), e.Location, e.LocationHash, e.Description, e.DescriptionHash)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.IsVerified = false
	return r.db.QueryRowContext(ctx,
		"SELECT created_at FROM emergency_messages WHERE emergency_id = ?", e.ID).Scan(&e.CreatedAt)
}

// GetForUpdateTx loads and row-locks a report inside tx so concurrent
// verifications of the same report serialise.
func (r *EmergencyRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.EmergencyReport, error) {
	const q = `SELECT emergency_id, user_id, building_id, emergency_type, location, location_hash,
	                  description, description_hash, is_verified, verified_by, verified_at, created_at
	           FROM emergency_messages WHERE emergency_id = ? FOR UPDATE`
	var (
		e          model.EmergencyReport
		etype      string
		verifiedBy sql.NullInt64
		verifiedAt sql.NullTime
	)
	err := tx.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.ReporterID, &e.BuildingID, &etype, &e.Location,
		&e.LocationHash, &e.Description, &e.DescriptionHash, &e.IsVerified, &verifiedBy, &verifiedAt, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmergencyNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Type = model.EmergencyType(etype)
	e.VerifiedBy = nullUint(verifiedBy)
	e.VerifiedAt = nullTime(verifiedAt)
	return &e, nil
}

// MarkVerifiedTx flips an unverified report to verified.  It returns
// ErrConflict when the report was already verified.
func (r *EmergencyRepo) MarkVerifiedTx(ctx context.Context, tx *sql.Tx, id, verifierID uint64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE emergency_messages SET is_verified = 1, verified_by = ?, verified_at = ? WHERE emergency_id = ? AND is_verified = 0",
		verifierID, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// InsertVerificationTx appends an audit row for a verify call.
func (r *EmergencyRepo) InsertVerificationTx(ctx context.Context, tx *sql.Tx, v *model.EmergencyVerification) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO emergency_verifications (emergency_id, verified_by, verification_notes) VALUES (?, ?, ?)",
		v.EmergencyID, v.VerifiedBy, v.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// List returns reports newest first, optionally restricted to a building
// and to unverified reports.  Verified reports carry the id of the pinned
// message their verification produced.
func (r *EmergencyRepo) List(ctx context.Context, buildingID *uint64, unverifiedOnly bool) ([]model.EmergencyReport, error) {
	q := `SELECT e.emergency_id, e.user_id, e.building_id, e.emergency_type, e.location, e.location_hash,
	             e.description, e.description_hash, e.is_verified, e.verified_by, e.verified_at, e.created_at,
	             u.username, b.building_name, v.username, pm.pinned_message_id
	      FROM emergency_messages e
	      INNER JOIN users u ON e.user_id = u.user_id
	      INNER JOIN buildings b ON e.building_id = b.building_id
	      LEFT JOIN users v ON e.verified_by = v.user_id
	      LEFT JOIN pinned_messages pm ON pm.emergency_id = e.emergency_id
	      WHERE 1 = 1`
	var args []interface{}
	if buildingID != nil {
		q += " AND e.building_id = ?"
		args = append(args, *buildingID)
	}
	if unverifiedOnly {
		q += " AND e.is_verified = 0"
	}
	q += " ORDER BY e.created_at DESC, e.emergency_id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.EmergencyReport{}
	for rows.Next() {
		var (
			e          model.EmergencyReport
			etype      string
			verifiedBy sql.NullInt64
			verifiedAt sql.NullTime
			verifier   sql.NullString
			pinnedID   sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.ReporterID, &e.BuildingID, &etype, &e.Location, &e.LocationHash,
			&e.Description, &e.DescriptionHash, &e.IsVerified, &verifiedBy, &verifiedAt, &e.CreatedAt,
			&e.ReportedBy, &e.BuildingName, &verifier, &pinnedID); err != nil {
			return nil, err
		}
		e.Type = model.EmergencyType(etype)
		e.VerifiedBy = nullUint(verifiedBy)
		e.VerifiedAt = nullTime(verifiedAt)
		e.VerifiedByUsername = nullString(verifier)
		e.PinnedMessageID = nullUint(pinnedID)
		out = append(out, e)
	}
	return out, rows.Err()
}
