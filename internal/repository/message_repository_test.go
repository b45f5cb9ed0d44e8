package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/iliyamo/dormboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

func TestMessageListByBuilding_AnonymousAuthor(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMessageRepo(db)

	rows := sqlmock.NewRows([]string{
		"message_id", "user_id", "building_id", "content", "content_hash", "is_anonymous", "created_at",
		"author", "author_role",
	}).
		AddRow(2, 42, 7, "quiet hours?", "h2", true, fixedTime, "Anonymous", "student").
		AddRow(1, 7, 7, "welcome", "h1", false, fixedTime.Add(-time.Hour), "ra_maple", "RA")
	mock.ExpectQuery("FROM messages m").WithArgs(7).WillReturnRows(rows)

	out, err := repo.ListByBuilding(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Anonymous", out[0].Author)
	assert.True(t, out[0].IsAnonymous)
	assert.Equal(t, "RA", *out[1].AuthorRole)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageCreate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(42, 7, "hello", "hh", false).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectQuery("SELECT created_at FROM messages").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(fixedTime))

	m := &model.Message{UserID: 42, BuildingID: 7, Content: "hello", ContentHash: "hh"}
	require.NoError(t, repo.Create(context.Background(), m))
	assert.Equal(t, uint64(10), m.ID)
	assert.Equal(t, fixedTime, m.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPinnedCreateTx_WithEmergency(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPinnedMessageRepo(db)
	eid := uint64(501)
	etype := model.EmergencyFire

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO pinned_messages").
		WithArgs(7, 3, "body", "hash", 501, "fire").
		WillReturnResult(sqlmock.NewResult(88, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	p := &model.PinnedMessage{UserID: 7, BuildingID: 3, Content: "body", ContentHash: "hash", EmergencyID: &eid, EmergencyType: &etype}
	require.NoError(t, repo.CreateTx(context.Background(), tx, p))
	require.NoError(t, tx.Commit())
	assert.Equal(t, uint64(88), p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPinnedDelete_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPinnedMessageRepo(db)

	mock.ExpectExec("DELETE FROM pinned_messages").WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 5), ErrPinnedMessageNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPinnedListByBuilding(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPinnedMessageRepo(db)

	rows := sqlmock.NewRows([]string{
		"pinned_message_id", "user_id", "building_id", "content", "content_hash",
		"emergency_id", "emergency_type", "created_at", "username", "author_role",
	}).
		AddRow(88, 7, 3, "alert", "h", 501, "fire", fixedTime, "ra_maple", "RA").
		AddRow(80, 7, 3, "laundry closed", "h2", nil, nil, fixedTime.Add(-time.Hour), "ra_maple", "RA")
	mock.ExpectQuery("FROM pinned_messages pm").WithArgs(3).WillReturnRows(rows)

	out, err := repo.ListByBuilding(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].EmergencyType)
	assert.Equal(t, model.EmergencyFire, *out[0].EmergencyType)
	assert.Equal(t, uint64(501), *out[0].EmergencyID)
	assert.Nil(t, out[1].EmergencyID)
	assert.Nil(t, out[1].EmergencyType)
	require.NoError(t, mock.ExpectationsWereMet())
}
