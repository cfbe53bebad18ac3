package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func TestGetFirstByRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	operatorID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "username", "email", "phone", "role", "department", "created_at"}).
		AddRow(operatorID, "storekeeper", "store@court.gov.vn", "+84907654321", model.RoleOperator, "Logistics", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE role = $1 AND "users"."deleted_at" IS NULL ORDER BY created_at asc,"users"."id" LIMIT $2`)).
		WithArgs(model.RoleOperator, 1).
		WillReturnRows(rows)

	user, err := repo.GetFirstByRole(context.Background(), model.RoleOperator)
	require.NoError(t, err)
	assert.Equal(t, operatorID, user.ID)
	assert.Equal(t, "storekeeper", user.Username)
	assert.Equal(t, "+84907654321", user.Phone)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFirstByRoleNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WithArgs(model.ApproverRoleForLevel(2), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetFirstByRole(context.Background(), model.ApproverRoleForLevel(2))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	id := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "username", "email", "role"}).
		AddRow(id, "clerk1", "clerk1@court.gov.vn", model.RoleStaff)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE username = \$1`).
		WithArgs("clerk1", 1).
		WillReturnRows(rows)

	user, err := repo.GetByUsername(context.Background(), "clerk1")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, model.RoleStaff, user.Role)
}
