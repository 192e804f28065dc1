package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinancialRepositoryActiveEnrollmentTotals(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinancialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments")).
		WithArgs("branch-1").
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_count", "total_billed", "total_paid"}).
			AddRow(2, "900000.00", "350000.00"))

	totals, err := repo.ActiveEnrollmentTotals(context.Background(), strPtr("branch-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.EnrollmentCount)
	assert.True(t, totals.TotalBilled.Equal(decimal.NewFromInt(900000)))
	assert.True(t, totals.TotalPaid.Equal(decimal.NewFromInt(350000)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinancialRepositoryCountActiveStudentsUnscoped(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinancialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE active = TRUE")).
		WithArgs(nil).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountActiveStudents(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinancialRepositoryStudentsWithDebtFiltersOnStudentBranch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinancialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("OR s.branch_id = $1")).
		WithArgs("branch-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "full_name", "total_debt"}).
			AddRow("stu-1", "Ana Ruiz", "300000.00").
			AddRow("stu-2", "Luis Mora", "50000.00"))

	debts, err := repo.StudentsWithDebt(context.Background(), strPtr("branch-1"))
	require.NoError(t, err)
	require.Len(t, debts, 2)
	assert.Equal(t, "Ana Ruiz", debts[0].FullName)
	assert.True(t, debts[0].TotalDebt.Equal(decimal.NewFromInt(300000)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinancialRepositoryCourseTotalsMissingCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinancialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses c")).
		WithArgs("course-404", nil).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.CourseTotals(context.Background(), "course-404", nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinancialRepositoryMonthlyIncome(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinancialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'CONFIRMADO'")).
		WithArgs(2024, nil).
		WillReturnRows(sqlmock.NewRows([]string{"year", "month_number", "branch_id", "branch_name", "total_income", "payment_count", "total_sales", "total_paid"}).
			AddRow(2024, 3, "branch-1", "Centro", "450000.00", 3, "1000000.00", "450000.00").
			AddRow(2024, 1, "branch-1", "Centro", "0", 0, "500000.00", "0.00"))

	rows, err := repo.MonthlyIncome(context.Background(), 2024, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[0].MonthNumber)
	assert.Equal(t, int64(3), rows[0].PaymentCount)
	assert.True(t, rows[1].TotalIncome.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinancialRepositoryLedgerDrift(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFinancialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.paid_amount <> COALESCE(p.confirmed_total, 0)")).
		WithArgs(nil).
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id", "branch_id", "paid_amount", "confirmed_total", "drift"}).
			AddRow("enr-9", "branch-2", "300000.00", "200000.00", "100000.00"))

	drifts, err := repo.LedgerDrift(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.True(t, drifts[0].Drift.Equal(decimal.NewFromInt(100000)))
	require.NoError(t, mock.ExpectationsWereMet())
}
