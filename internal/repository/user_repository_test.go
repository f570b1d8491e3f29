package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

var userRowColumns = []string{"id", "name", "email", "password_hash", "deleted", "created_at", "updated_at", "role_id", "role_name"}

func TestUserRepository_GetByEmailLoadsPermissions(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectQuery(`FROM users u JOIN roles r ON r.id = u.role_id\s+WHERE u.email=\$1 AND u.deleted=FALSE`).
		WithArgs("alice@example.com").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(int64(1), "Alice", "alice@example.com", "hash", false, now, now, int64(2), "USER"))
	mock.ExpectQuery(`FROM permissions p`).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("USER_READ").AddRow("USER_UPDATE"))

	user, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "USER", user.Role.Name)
	assert.Equal(t, []string{"USER_READ", "USER_UPDATE"}, user.Role.Permissions)
}

func TestUserRepository_UpdateMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectExec(`UPDATE users SET name=\$1`).
		WithArgs("Bob", "bob@example.com", "hash", int64(2), int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &domain.User{
		ID: 9, Name: "Bob", Email: "bob@example.com", PasswordHash: "hash", Role: domain.Role{ID: 2},
	})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestUserRepository_ListSanitizesSort(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WithArgs("%example%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`ORDER BY u.id DESC\s+LIMIT \$2 OFFSET \$3`).
		WithArgs("%example%", 10, 10).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(int64(3), "Carol", "carol@example.com", "hash", false, now, now, int64(2), "USER"))
	mock.ExpectQuery(`FROM permissions p`).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("USER_READ"))

	page, err := repo.List(context.Background(), domain.UserFilter{
		Page: 1, Size: 10, SortBy: "password_hash; DROP TABLE users", Descending: true, EmailFilter: "example",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalItems)
	require.Len(t, page.Items, 1)
	assert.Equal(t, []string{"USER_READ"}, page.Items[0].Role.Permissions)
}

func TestUserRepository_ListMatchesEmailFilterLiterally(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	pattern := `%a\_b\%c\\%`

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users u WHERE u.deleted=FALSE AND u.email ILIKE \$1 ESCAPE`).
		WithArgs(pattern).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`u.email ILIKE \$1 ESCAPE`).
		WithArgs(pattern, 10, 0).
		WillReturnRows(pgxmock.NewRows(userRowColumns))

	page, err := repo.List(context.Background(), domain.UserFilter{Size: 10, EmailFilter: `a_b%c\`})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepository_ReplacePermissionsIsTransactional(t *testing.T) {
	mock := newMock(t)
	repo := NewRoleRepository(mock)
	perms := []string{"USER_READ", "REPORTS_VIEW"}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO permissions`).WithArgs(perms).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM role_permissions`).WithArgs(int64(4)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`INSERT INTO role_permissions`).WithArgs(int64(4), perms).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplacePermissions(context.Background(), 4, perms))
}

func TestRoleRepository_AddPermissionsNeverDeletes(t *testing.T) {
	mock := newMock(t)
	repo := NewRoleRepository(mock)
	perms := []string{"REPORTS_VIEW"}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO permissions`).WithArgs(perms).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO role_permissions .*\s+ON CONFLICT DO NOTHING`).WithArgs(int64(4), perms).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AddPermissions(context.Background(), 4, perms))
	require.NoError(t, mock.ExpectationsWereMet())
}
