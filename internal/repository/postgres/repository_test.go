package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherfav/internal/domain"
	"weatherfav/internal/repository"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var userColumns = []string{"id", "name", "username", "email", "password_hash", "created_at", "updated_at"}

func TestUserRepository_Init(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewUserRepository(db).Init(context.Background()))
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the new id", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs("Alice", "alice1", "alice@x.com", "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

		u := &domain.User{Name: "Alice", Username: "alice1", Email: "alice@x.com", PasswordHash: "hash"}
		id, err := NewUserRepository(db).Create(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.Equal(t, int64(7), u.ID)
		assert.False(t, u.CreatedAt.IsZero())
	})

	t.Run("unique violation is a conflict", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

		_, err := NewUserRepository(db).Create(ctx, &domain.User{Email: "alice@x.com"})
		assert.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		db, mock := newMock(t)
		boom := errors.New("connection reset")
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).WillReturnError(boom)

		_, err := NewUserRepository(db).Create(ctx, &domain.User{Email: "alice@x.com"})
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, repository.ErrConflict)
	})
}

func TestUserRepository_Get(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("by email", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
			WithArgs("alice@x.com").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(int64(1), "Alice", "alice1", "alice@x.com", "hash", now, now))

		u, err := NewUserRepository(db).GetByEmail(ctx, "alice@x.com")
		require.NoError(t, err)
		assert.Equal(t, int64(1), u.ID)
		assert.Equal(t, "alice1", u.Username)
		assert.Equal(t, "hash", u.PasswordHash)
	})

	t.Run("by id not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
			WithArgs(int64(9)).
			WillReturnError(sql.ErrNoRows)

		_, err := NewUserRepository(db).GetByID(ctx, 9)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("store error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
			WillReturnError(errors.New("timeout"))

		_, err := NewUserRepository(db).GetByID(ctx, 9)
		require.Error(t, err)
		assert.NotErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestFavoriteRepository_Init(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS favorites")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS favorites_user_id_idx")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewFavoriteRepository(db).Init(context.Background()))
}

func TestFavoriteRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("create", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO favorites")).
			WithArgs("Rome", int64(1), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

		fav := &domain.Favorite{City: "Rome", UserID: 1}
		id, err := NewFavoriteRepository(db).Create(ctx, fav)
		require.NoError(t, err)
		assert.Equal(t, int64(3), id)
		assert.Equal(t, int64(3), fav.ID)
	})

	t.Run("list", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM favorites")).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "city", "user_id", "created_at"}).
				AddRow(int64(3), "Rome", int64(1), now).
				AddRow(int64(4), "Oslo", int64(1), now))

		favs, err := NewFavoriteRepository(db).ListByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, favs, 2)
		assert.Equal(t, "Rome", favs[0].City)
		assert.Equal(t, "Oslo", favs[1].City)
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM favorites")).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "city", "user_id", "created_at"}))

		favs, err := NewFavoriteRepository(db).ListByUser(ctx, 2)
		require.NoError(t, err)
		assert.NotNil(t, favs)
		assert.Empty(t, favs)
	})
}

func TestFavoriteRepository_DeleteOwned(t *testing.T) {
	ctx := context.Background()
	deleteQuery := regexp.QuoteMeta("DELETE FROM favorites WHERE id = $1 AND user_id = $2")

	t.Run("owned row", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(deleteQuery).
			WithArgs(int64(3), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewFavoriteRepository(db).DeleteOwned(ctx, 3, 1))
	})

	t.Run("absent or foreign row", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(deleteQuery).
			WithArgs(int64(3), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewFavoriteRepository(db).DeleteOwned(ctx, 3, 2)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("store error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(deleteQuery).WillReturnError(errors.New("boom"))

		err := NewFavoriteRepository(db).DeleteOwned(ctx, 3, 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, repository.ErrNotFound)
	})
}
