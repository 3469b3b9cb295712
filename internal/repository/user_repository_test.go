package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/siga-ar/siga-api/internal/models"
)

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "password_hash", "role", "active", "last_login_at", "created_at"}).
		AddRow(1, "staff@siga.edu.ar", "Ana García", "hash", models.RoleRegistrar, true, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("staff@siga.edu.ar").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "staff@siga.edu.ar")
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)
	require.Equal(t, models.RoleRegistrar, user.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRevokeRefreshToken(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	revokedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1")).
		WithArgs("token-id", revokedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RevokeRefreshToken(context.Background(), "token-id", revokedAt)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
