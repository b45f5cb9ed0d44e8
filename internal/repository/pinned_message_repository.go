package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/dormboard/internal/model"
)

// ErrPinnedMessageNotFound is returned when a pinned message is unknown.
var ErrPinnedMessageNotFound = errors.New("pinned message not found")

// PinnedMessageRepo persists building announcements, including those
// produced by emergency verification.
type PinnedMessageRepo struct {
	db *sql.DB
}

func NewPinnedMessageRepo(db *sql.DB) *PinnedMessageRepo { return &PinnedMessageRepo{db: db} }

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Create inserts a manually pinned message.
func (r *PinnedMessageRepo) Create(ctx context.Context, p *model.PinnedMessage) error {
	return insertPinned(ctx, r.db, p)
}

// CreateTx inserts a pinned message inside tx; emergency verification uses
// this so the pin commits together with the verified flag.
func (r *PinnedMessageRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.PinnedMessage) error {
	return insertPinned(ctx, tx, p)
}

func insertPinned(ctx context.Context, q execer, p *model.PinnedMessage) error {
	var etype interface{}
	if p.EmergencyType != nil {
		etype = string(*p.EmergencyType)
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO pinned_messages (user_id, building_id, content, content_hash, emergency_id, emergency_type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.UserID, p.BuildingID, p.Content, p.ContentHash, p.EmergencyID, etype)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID loads the building and author of a pinned message.
func (r *PinnedMessageRepo) GetByID(ctx context.Context, id uint64) (*model.PinnedMessage, error) {
	var p model.PinnedMessage
	err := r.db.QueryRowContext(ctx,
		"SELECT pinned_message_id, user_id, building_id FROM pinned_messages WHERE pinned_message_id = ?", id).
		Scan(&p.ID, &p.UserID, &p.BuildingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPinnedMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a pinned message.
func (r *PinnedMessageRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM pinned_messages WHERE pinned_message_id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPinnedMessageNotFound
	}
	return nil
}

// ListByBuilding returns a building's pinned messages newest first.
func (r *PinnedMessageRepo) ListByBuilding(ctx context.Context, buildingID uint64) ([]model.PinnedMessage, error) {
	q := `SELECT pm.pinned_message_id, pm.user_id, pm.building_id, pm.content, pm.content_hash,
	             pm.emergency_id, pm.emergency_type, pm.created_at, u.username,
	             ` + authorRoleExpr + `
	      FROM pinned_messages pm
	      INNER JOIN users u ON pm.user_id = u.user_id
	      LEFT JOIN students s ON u.user_id = s.user_id
	      LEFT JOIN ras r ON u.user_id = r.user_id
	      LEFT JOIN admins a ON u.user_id = a.user_id
	      WHERE pm.building_id = ?
	      ORDER BY pm.created_at DESC, pm.pinned_message_id DESC`
	rows, err := r.db.QueryContext(ctx, q, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PinnedMessage{}
	for rows.Next() {
		var (
			p           model.PinnedMessage
			emergencyID sql.NullInt64
			etype, role sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.BuildingID, &p.Content, &p.ContentHash,
			&emergencyID, &etype, &p.CreatedAt, &p.Author, &role); err != nil {
			return nil, err
		}
		p.EmergencyID = nullUint(emergencyID)
		if etype.Valid {
			t := model.EmergencyType(etype.String)
			p.EmergencyType = &t
		}
		p.AuthorRole = nullString(role)
		out = append(out, p)
	}
	return out, rows.Err()
}
