package roles

import (
	"context"
	"database/sql"
	"errors"
	"testing"

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
	hasQ   = `^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+user_roles\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+role\s*=\s*\$2\)$`
	grantQ = `(?s)^INSERT\s+INTO\s+user_roles\b.*ON\s+CONFLICT\s*\(user_id,\s*role\)\s*DO\s+NOTHING$`
)

func TestHasRole(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(hasQ).WithArgs("u1", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(hasQ).WithArgs("u2", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.HasRole(context.Background(), "u1", models.RolePrivileged)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasRole(context.Background(), "u2", models.RolePrivileged)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasRole_Error(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(hasQ).WillReturnError(sql.ErrConnDone)

	ok, err := repo.HasRole(context.Background(), "u1", models.RolePrivileged)
	assert.False(t, ok)
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestGrant(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(grantQ).WithArgs("u1", "standard").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Grant(context.Background(), "u1", models.RoleStandard))

	mock.ExpectExec(grantQ).WithArgs("u1", "standard").WillReturnError(errors.New("boom"))
	assert.Error(t, repo.Grant(context.Background(), "u1", models.RoleStandard))

	require.NoError(t, mock.ExpectationsWereMet())
}
