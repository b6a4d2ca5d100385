package role

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockRepo(t *testing.T) (RoleRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRoleRepo(db, zap.NewNop()), mock
}

func roleColumns() []string {
	return []string{"id", "name", "description", "is_active", "created_at", "updated_at"}
}

func permissionColumns() []string {
	return []string{"id", "name", "api_path", "method", "module"}
}

func TestGetByIDPopulatesPermissions(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(selectRoleByIDQuery)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(roleColumns()).
			AddRow(int64(2), "USER", "Normal User", true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(selectRolePermissionsQuery)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(permissionColumns()).
			AddRow(int64(11), "Fetch jobs with pagination", "/api/v1/jobs", "GET", "JOBS").
			AddRow(int64(12), "Fetch a job by id", "/api/v1/jobs/{id}", "GET", "JOBS"))

	rec, err := repo.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "USER", rec.Name)
	assert.True(t, rec.IsActive)
	require.Len(t, rec.Permissions, 2)
	assert.Equal(t, Permission{ID: 11, Name: "Fetch jobs with pagination", APIPath: "/api/v1/jobs", Method: "GET", Module: "JOBS"}, rec.Permissions[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDUnknownRole(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectRoleByIDQuery)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(roleColumns()))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestGetByNameEmptyPermissionSet(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(selectRoleByNameQuery)).
		WithArgs("USER").
		WillReturnRows(sqlmock.NewRows(roleColumns()).
			AddRow(int64(2), "USER", "Normal User", true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(selectRolePermissionsQuery)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(permissionColumns()))

	rec, err := repo.GetByName(context.Background(), "USER")
	require.NoError(t, err)
	assert.NotNil(t, rec.Permissions)
	assert.Empty(t, rec.Permissions)
}
