package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/dormboard/internal/model"
)

// MessageRepo persists the append-only building message board.
type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// authorRoleExpr derives a poster's role from the extension tables for
// display purposes only.
const authorRoleExpr = `CASE
	WHEN a.user_id IS NOT NULL THEN 'admin'
	WHEN r.user_id IS NOT NULL THEN 'RA'
	WHEN s.user_id IS NOT NULL THEN 'student'
	ELSE NULL END`

// Create inserts a message and fills ID and CreatedAt.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (user_id, building_id, content, content_hash, is_anonymous) VALUES (?, ?, ?, ?, ?)",
		m.UserID, m.BuildingID, m.Content, m.ContentHash, m.IsAnonymous)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		"SELECT created_at FROM messages WHERE message_id = ?", m.ID).Scan(&m.CreatedAt)
}

// ListByBuilding returns a building's messages newest first.  Anonymous
// posts carry the author name "Anonymous".
func (r *MessageRepo) ListByBuilding(ctx context.Context, buildingID uint64) ([]model.Message, error) {
	q := `SELECT m.message_id, m.user_id, m.building_id, m.content, m.content_hash, m.is_anonymous, m.created_at,
	             CASE WHEN m.is_anonymous THEN 'Anonymous' ELSE u.username END,
	             ` + authorRoleExpr + `
	      FROM messages m
	      INNER JOIN users u ON m.user_id = u.user_id
	      LEFT JOIN students s ON u.user_id = s.user_id
	      LEFT JOIN ras r ON u.user_id = r.user_id
	      LEFT JOIN admins a ON u.user_id = a.user_id
	      WHERE m.building_id = ?
	      ORDER BY m.created_at DESC, m.message_id DESC`
	rows, err := r.db.QueryContext(ctx, q, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Message{}
	for rows.Next() {
		var (
			m    model.Message
			role sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.BuildingID, &m.Content, &m.ContentHash, &m.IsAnonymous,
			&m.CreatedAt, &m.Author, &role); err != nil {
			return nil, err
		}
		m.AuthorRole = nullString(role)
		out = append(out, m)
	}
	return out, rows.Err()
}
