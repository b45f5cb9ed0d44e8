package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/dormboard/internal/model"
)

// ErrInviteCodeNotFound is returned when a code or code ID is unknown.
var ErrInviteCodeNotFound = errors.New("invite code not found")

// InviteCodeRepo provides data access to the invite_codes table.  All
// timestamps are UTC.
type InviteCodeRepo struct {
	db *sql.DB
}

func NewInviteCodeRepo(db *sql.DB) *InviteCodeRepo { return &InviteCodeRepo{db: db} }

const inviteColumns = `ic.invite_code_id, ic.code, ic.building_id, ic.created_by, ic.used_by,
	ic.used_at, ic.expires_at, ic.is_active, ic.created_at`

// CodeExists reports whether code is already taken.
func (r *InviteCodeRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT invite_code_id FROM invite_codes WHERE code = ? LIMIT 1", code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Create inserts an active, unused code and fills ID and CreatedAt.  A
// unique-key race on code is reported as ErrDuplicate.
func (r *InviteCodeRepo) Create(ctx context.Context, c *model.InviteCode) error {
	var expires interface{}
	if c.ExpiresAt != nil {
		expires = c.ExpiresAt.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO invite_codes (code, building_id, created_by, expires_at, is_active) VALUES (?, ?, ?, ?, 1)",
		c.Code, c.BuildingID, c.CreatedBy, expires)
	if err != nil {
		return mapDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	c.IsActive = true
	return r.db.QueryRowContext(ctx,
		"SELECT created_at FROM invite_codes WHERE invite_code_id = ?", c.ID).Scan(&c.CreatedAt)
}

// GetByCode loads a code with its building name.
func (r *InviteCodeRepo) GetByCode(ctx context.Context, code string) (*model.InviteCode, error) {
	const q = `SELECT ` + inviteColumns + `, b.building_name
	           FROM invite_codes ic
	           INNER JOIN buildings b ON ic.building_id = b.building_id
	           WHERE ic.code = ?`
	row := r.db.QueryRowContext(ctx, q, code)
	var (
		c    model.InviteCode
		name string
	)
	if err := scanInvite(row, &c, &name); err != nil {
		return nil, err
	}
	c.BuildingName = name
	return &c, nil
}

// GetByCodeForUpdateTx loads a code and locks its row for the rest of tx.
func (r *InviteCodeRepo) GetByCodeForUpdateTx(ctx context.Context, tx *sql.Tx, code string) (*model.InviteCode, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invite_codes ic WHERE ic.code = ? FOR UPDATE`, code)
	var c model.InviteCode
	if err := scanInvite(row, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID loads a code by primary key.
func (r *InviteCodeRepo) GetByID(ctx context.Context, id uint64) (*model.InviteCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invite_codes ic WHERE ic.invite_code_id = ?`, id)
	var c model.InviteCode
	if err := scanInvite(row, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkUsedTx consumes the code as a compare-and-swap: the update only
// applies while the code is unused, active and unexpired at now.  When
// another transaction won the race no row is affected and ErrConflict is
// returned.
func (r *InviteCodeRepo) MarkUsedTx(ctx context.Context, tx *sql.Tx, id, userID uint64, now time.Time) error {
	const q = `UPDATE invite_codes
	           SET used_by = ?, used_at = ?
	           WHERE invite_code_id = ? AND used_by IS NULL AND is_active = 1
	             AND (expires_at IS NULL OR expires_at >= ?)`
	now = now.UTC()
	res, err := tx.ExecContext(ctx, q, userID, now, id, now)
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

// Deactivate clears is_active.  Used codes stay used.
func (r *InviteCodeRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE invite_codes SET is_active = 0 WHERE invite_code_id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 when the value is unchanged, so confirm existence.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// List returns codes newest first, optionally filtered by building, with
// creator, consumer and building names.
func (r *InviteCodeRepo) List(ctx context.Context, buildingID *uint64) ([]model.InviteCode, error) {
	q := `SELECT ` + inviteColumns + `, b.building_name, u.username, used_user.username
	      FROM invite_codes ic
	      INNER JOIN users u ON ic.created_by = u.user_id
	      INNER JOIN buildings b ON ic.building_id = b.building_id
	      LEFT JOIN users used_user ON ic.used_by = used_user.user_id`
	var args []interface{}
	if buildingID != nil {
		q += " WHERE ic.building_id = ?"
		args = append(args, *buildingID)
	}
	q += " ORDER BY ic.created_at DESC, ic.invite_code_id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.InviteCode{}
	for rows.Next() {
		var (
			c                 model.InviteCode
			usedBy            sql.NullInt64
			usedAt, expiresAt sql.NullTime
			usedByName        sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Code, &c.BuildingID, &c.CreatedBy, &usedBy, &usedAt, &expiresAt,
			&c.IsActive, &c.CreatedAt, &c.BuildingName, &c.CreatedByUsername, &usedByName); err != nil {
			return nil, err
		}
		c.UsedBy = nullUint(usedBy)
		c.UsedAt = nullTime(usedAt)
		c.ExpiresAt = nullTime(expiresAt)
		c.UsedByUsername = nullString(usedByName)
		out = append(out, c)
	}
	return out, rows.Err()
}

// scanInvite scans inviteColumns followed by any extra destinations.
func scanInvite(row *sql.Row, c *model.InviteCode, extra ...interface{}) error {
	var (
		usedBy            sql.NullInt64
		usedAt, expiresAt sql.NullTime
	)
	dest := []interface{}{&c.ID, &c.Code, &c.BuildingID, &c.CreatedBy, &usedBy, &usedAt, &expiresAt, &c.IsActive, &c.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInviteCodeNotFound
		}
		return err
	}
	c.UsedBy = nullUint(usedBy)
	c.UsedAt = nullTime(usedAt)
	c.ExpiresAt = nullTime(expiresAt)
	return nil
}
