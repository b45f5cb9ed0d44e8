package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/iliyamo/dormboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var inviteRowColumns = []string{
	"invite_code_id", "code", "building_id", "created_by", "used_by",
	"used_at", "expires_at", "is_active", "created_at",
}

func TestInviteCreate_MapsDuplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInviteCodeRepo(db)

	mock.ExpectExec("INSERT INTO invite_codes").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.InviteCode{Code: "AB23CD45", BuildingID: 7, CreatedBy: 2})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteGetByCode_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInviteCodeRepo(db)

	mock.ExpectQuery("FROM invite_codes ic").
		WithArgs("NOPE2345").
		WillReturnError(sql.ErrNoRows)

	c, err := repo.GetByCode(context.Background(), "NOPE2345")
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrInviteCodeNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteGetByCode_ScansBuildingName(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInviteCodeRepo(db)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows(append(inviteRowColumns, "building_name")).
		AddRow(11, "AB23CD45", 7, 2, nil, nil, nil, true, created, "Maple Hall")
	mock.ExpectQuery("FROM invite_codes ic").WithArgs("AB23CD45").WillReturnRows(rows)

	c, err := repo.GetByCode(context.Background(), "AB23CD45")
	require.NoError(t, err)
	assert.Equal(t, uint64(11), c.ID)
	assert.Equal(t, uint64(7), c.BuildingID)
	assert.Equal(t, "Maple Hall", c.BuildingName)
	assert.True(t, c.IsActive)
	assert.Nil(t, c.UsedBy)
	assert.Nil(t, c.ExpiresAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteMarkUsedTx(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("applies", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewInviteCodeRepo(db)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE invite_codes").
			WithArgs(42, now, 11, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.Begin()
		require.NoError(t, err)
		require.NoError(t, repo.MarkUsedTx(context.Background(), tx, 11, 42, now))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewInviteCodeRepo(db)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE invite_codes").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.Begin()
		require.NoError(t, err)
		err = repo.MarkUsedTx(context.Background(), tx, 11, 43, now)
		assert.ErrorIs(t, err, ErrConflict)
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInviteDeactivate_Unknown(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInviteCodeRepo(db)

	mock.ExpectExec("UPDATE invite_codes SET is_active = 0").
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM invite_codes ic WHERE ic.invite_code_id").
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	err := repo.Deactivate(context.Background(), 99)
	assert.ErrorIs(t, err, ErrInviteCodeNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteList_FiltersByBuilding(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInviteCodeRepo(db)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	used := created.Add(time.Hour)

	rows := sqlmock.NewRows(append(inviteRowColumns, "building_name", "username", "used_username")).
		AddRow(12, "ZX98YW76", 7, 2, 42, used, nil, true, created, "Maple Hall", "ra_maple", "newbie").
		AddRow(11, "AB23CD45", 7, 2, nil, nil, nil, false, created, "Maple Hall", "ra_maple", nil)
	mock.ExpectQuery("WHERE ic.building_id").WithArgs(7).WillReturnRows(rows)

	bid := uint64(7)
	codes, err := repo.List(context.Background(), &bid)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	require.NotNil(t, codes[0].UsedBy)
	assert.Equal(t, uint64(42), *codes[0].UsedBy)
	assert.Equal(t, "newbie", *codes[0].UsedByUsername)
	assert.Equal(t, "ra_maple", codes[1].CreatedByUsername)
	assert.False(t, codes[1].IsActive)
	assert.Nil(t, codes[1].UsedByUsername)
	require.NoError(t, mock.ExpectationsWereMet())
}
