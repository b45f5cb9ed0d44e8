package service

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/dormboard/internal/utils"
)

func TestPostMessage_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	env.expectRole(42, "student", 7)
	env.mock.ExpectQuery("FROM user_buildings").WithArgs(42, 7).
		WillReturnRows(sqlmock.NewRows([]string{"building_id"}).AddRow(7))
	env.mock.ExpectExec("INSERT INTO messages").
		WithArgs(42, 7, "quiet hours?", utils.ContentHash("quiet hours?"), true).
		WillReturnResult(sqlmock.NewResult(5, 1))
	env.mock.ExpectQuery("SELECT created_at FROM messages").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(testNow))

	m, err := env.board.PostMessage(context.Background(), Actor{UserID: 42, Role: "student"}, 7, " quiet hours? ", true)
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", m.Author)
	assert.Equal(t, "student", *m.AuthorRole)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestPostMessage_Rejects(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.board.PostMessage(context.Background(), Actor{UserID: 42}, 7, "   ", false)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = env.board.PostMessage(context.Background(), Actor{UserID: 42}, 7, strings.Repeat("x", maxContentLength+1), false)
	assert.Equal(t, KindValidation, KindOf(err))
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestPin_StudentForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.expectRole(42, "student", 7)
	_, err := env.board.Pin(context.Background(), Actor{UserID: 42, Role: "student"}, 7, "hello")
	assert.ErrorIs(t, err, ErrForbidden)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUnpin(t *testing.T) {
	pinCols := []string{"pinned_message_id", "user_id", "building_id"}

	t.Run("RA other building", func(t *testing.T) {
		env := newTestEnv(t)
		env.mock.ExpectQuery("FROM pinned_messages WHERE pinned_message_id").WithArgs(88).
			WillReturnRows(sqlmock.NewRows(pinCols).AddRow(88, 1, 5))
		env.expectRole(7, "RA", 3)

		err := env.board.Unpin(context.Background(), Actor{UserID: 7, Role: "RA"}, 88)
		assert.ErrorIs(t, err, ErrForbidden)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("RA own building", func(t *testing.T) {
		env := newTestEnv(t)
		env.mock.ExpectQuery("FROM pinned_messages WHERE pinned_message_id").WithArgs(88).
			WillReturnRows(sqlmock.NewRows(pinCols).AddRow(88, 1, 3))
		env.expectRole(7, "RA", 3)
		env.mock.ExpectExec("DELETE FROM pinned_messages").WithArgs(88).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, env.board.Unpin(context.Background(), Actor{UserID: 7, Role: "RA"}, 88))
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		env := newTestEnv(t)
		env.mock.ExpectQuery("FROM pinned_messages WHERE pinned_message_id").WithArgs(404).
			WillReturnRows(sqlmock.NewRows(pinCols))

		err := env.board.Unpin(context.Background(), Actor{UserID: 1, Role: "admin"}, 404)
		assert.ErrorIs(t, err, ErrPinnedNotFound)
	})
}

func TestBuildings(t *testing.T) {
	t.Run("create duplicate name", func(t *testing.T) {
		env := newTestEnv(t)
		env.expectRole(1, "admin", nil)
		env.mock.ExpectExec("INSERT INTO buildings").
			WithArgs("Maple Hall", nil).
			WillReturnError(duplicateEntry())

		_, err := env.buildings.Create(context.Background(), Actor{UserID: 1, Role: "admin"}, " Maple Hall ", nil)
		assert.ErrorIs(t, err, ErrBuildingNameTaken)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("RA gets own building", func(t *testing.T) {
		env := newTestEnv(t)
		env.expectRole(7, "RA", 3)
		env.expectBuilding(3, "Maple Hall")

		b, err := env.buildings.StaffBuilding(context.Background(), Actor{UserID: 7, Role: "RA"})
		require.NoError(t, err)
		assert.Equal(t, "Maple Hall", b.Name)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("admin gets first by name", func(t *testing.T) {
		env := newTestEnv(t)
		env.expectRole(1, "admin", nil)
		env.mock.ExpectQuery("ORDER BY building_name LIMIT 1").
			WillReturnRows(sqlmock.NewRows([]string{"building_id", "building_name", "description", "created_at"}).
				AddRow(2, "Ash Hall", nil, testNow))

		b, err := env.buildings.StaffBuilding(context.Background(), Actor{UserID: 1, Role: "admin"})
		require.NoError(t, err)
		assert.Equal(t, "Ash Hall", b.Name)
	})

	t.Run("stats", func(t *testing.T) {
		env := newTestEnv(t)
		env.expectRole(7, "RA", 3)
		env.mock.ExpectQuery("COUNT").WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"building_name", "members", "messages"}).AddRow("Maple Hall", 41, 230))

		st, err := env.buildings.Stats(context.Background(), Actor{UserID: 7, Role: "RA"}, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(41), st.MemberCount)
		assert.Equal(t, int64(230), st.MessageCount)
	})

	t.Run("list RAs admin only", func(t *testing.T) {
		env := newTestEnv(t)
		env.expectRole(7, "RA", 3)
		_, err := env.buildings.ListRAs(context.Background(), Actor{UserID: 7, Role: "RA"})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}
