package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/dormboard/internal/model"
)

// ErrBuildingNotFound is returned when a building cannot be found in the DB.
var ErrBuildingNotFound = errors.New("building not found")

// BuildingRepo encapsulates all database queries related to buildings.
type BuildingRepo struct {
	db *sql.DB
}

func NewBuildingRepo(db *sql.DB) *BuildingRepo { return &BuildingRepo{db: db} }

// Create inserts a building.  The legacy building_password column is
// written empty; enrollment uses invite codes instead.
func (r *BuildingRepo) Create(ctx context.Context, b *model.Building) error {
	b.Name = strings.TrimSpace(b.Name)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO buildings (building_name, building_password, description) VALUES (?, '', ?)",
		b.Name, b.Description)
	if err != nil {
		return mapDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		"SELECT created_at FROM buildings WHERE building_id = ?", b.ID).Scan(&b.CreatedAt)
}

// GetByID fetches a building or returns ErrBuildingNotFound.
func (r *BuildingRepo) GetByID(ctx context.Context, id uint64) (*model.Building, error) {
	return scanBuilding(r.db.QueryRowContext(ctx,
		"SELECT building_id, building_name, description, created_at FROM buildings WHERE building_id = ?", id))
}

// LockTx takes a row lock on the building for the rest of tx.
func (r *BuildingRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx,
		"SELECT building_id FROM buildings WHERE building_id = ? FOR UPDATE", id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBuildingNotFound
	}
	return err
}

// ExistsByName reports whether a building with this name exists.
func (r *BuildingRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT building_id FROM buildings WHERE building_name = ? LIMIT 1", strings.TrimSpace(name)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// List returns all buildings ordered by name.
func (r *BuildingRepo) List(ctx context.Context) ([]model.Building, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT building_id, building_name, description, created_at FROM buildings ORDER BY building_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Building{}
	for rows.Next() {
		var (
			b    model.Building
			desc sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Name, &desc, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Description = nullString(desc)
		out = append(out, b)
	}
	return out, rows.Err()
}

// First returns the alphabetically first building.
func (r *BuildingRepo) First(ctx context.Context) (*model.Building, error) {
	return scanBuilding(r.db.QueryRowContext(ctx,
		"SELECT building_id, building_name, description, created_at FROM buildings ORDER BY building_name LIMIT 1"))
}

// Stats counts distinct members and messages of a building.
func (r *BuildingRepo) Stats(ctx context.Context, id uint64) (model.BuildingStats, error) {
	const q = `SELECT b.building_name,
	                  (SELECT COUNT(DISTINCT ub.user_id) FROM user_buildings ub WHERE ub.building_id = b.building_id),
	                  (SELECT COUNT(*) FROM messages m WHERE m.building_id = b.building_id)
	           FROM buildings b WHERE b.building_id = ?`
	st := model.BuildingStats{BuildingID: id}
	err := r.db.QueryRowContext(ctx, q, id).Scan(&st.BuildingName, &st.MemberCount, &st.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return st, ErrBuildingNotFound
	}
	return st, err
}

func scanBuilding(row *sql.Row) (*model.Building, error) {
	var (
		b    model.Building
		desc sql.NullString
	)
	if err := row.Scan(&b.ID, &b.Name, &desc, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBuildingNotFound
		}
		return nil, err
	}
	b.Description = nullString(desc)
	return &b, nil
}
