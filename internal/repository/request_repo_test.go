package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRequestNumber(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRequestRepository(db)

	prefix := "REQ-" + time.Now().Format("20060102") + "-"

	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(prefix).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "item_requests"`).
		WithArgs(prefix + "%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	number, err := repo.NextRequestNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s%05d", prefix, 5), number)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextRequestNumberLockFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRequestRepository(db)

	lockErr := errors.New("canceling statement due to lock timeout")
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WillReturnError(lockErr)

	// A failed lock acquisition must surface, not fall through to an
	// unserialized count.
	_, err := repo.NextRequestNumber(context.Background())
	assert.ErrorIs(t, err, lockErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}
