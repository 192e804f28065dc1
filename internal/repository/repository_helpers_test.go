package repository

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

var enrollmentRowColumns = []string{"id", "student_id", "course_id", "branch_id", "enrollment_date", "status", "total_amount", "paid_amount", "active", "created_at", "updated_at"}

var paymentRowColumns = []string{"id", "enrollment_id", "branch_id", "amount", "payment_date", "type", "status", "payment_method_id", "transaction_reference", "notes", "created_at", "updated_at"}

func strPtr(v string) *string { return &v }
