package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchRepositoryListActiveOrdersMainFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBranchRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE active = TRUE ORDER BY is_main DESC, name ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "address", "phone", "email", "is_main", "active", "created_at", "updated_at"}).
			AddRow("b-1", "CEN", "Centro", nil, nil, nil, true, true, now, now).
			AddRow("b-2", "NOR", "Norte", nil, nil, nil, false, true, now, now))

	branches, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.True(t, branches[0].IsMain)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBranchRepositoryExistsByCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBranchRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM branches WHERE code = $1 AND id <> $2 LIMIT 1")).
		WithArgs("CEN", "b-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM branches WHERE code = $1 LIMIT 1")).
		WithArgs("CEN").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByCode(context.Background(), "CEN", "b-1")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByCode(context.Background(), "CEN", "")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBranchRepositoryExistsActiveMain(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBranchRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM branches WHERE is_main = TRUE AND active = TRUE AND id <> $1 LIMIT 1")).
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsActiveMain(context.Background(), "b-1")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
