package profiles

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

const (
	getQ    = `(?s)^SELECT\s+user_id,\s*display_name,\s*email,\s*phone,\s*address,\s*updated_at\s+FROM\s+profiles\s+WHERE\s+user_id\s*=\s*\$1$`
	upsertQ = `(?s)^INSERT\s+INTO\s+profiles\b.*ON\s+CONFLICT\s*\(user_id\)\s*DO\s+UPDATE\b.*RETURNING\s+updated_at$`
)

func TestGet_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	at := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(getQ).WithArgs("u1").WillReturnRows(
		sqlmock.NewRows([]string{"user_id", "display_name", "email", "phone", "address", "updated_at"}).
			AddRow("u1", "Ann", "ann@example.com", "", "Main st", at))

	got, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, &models.Profile{UserID: "u1", DisplayName: "Ann", Email: "ann@example.com", Address: "Main st", UpdatedAt: at}, got)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(getQ).WithArgs("u1").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGet_Unavailable(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(getQ).WithArgs("u1").WillReturnError(sql.ErrConnDone)

	_, err := repo.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, common.ErrUnavailable)
	assert.Contains(t, err.Error(), "db error")
}

func TestUpsert(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	at := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(upsertQ).
		WithArgs("u1", "ann", "ann@example.com", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(at))

	in := models.NewProfile("u1", "ann@example.com")
	got, err := repo.Upsert(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, at, got.UpdatedAt)
	assert.True(t, in.UpdatedAt.IsZero(), "input must not be modified")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(upsertQ).WillReturnError(errors.New("boom"))

	_, err := repo.Upsert(context.Background(), models.NewProfile("u1", "a@b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: boom")
}
