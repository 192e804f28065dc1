package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/haperez86/EduPay/internal/models"
)

// FinancialRepository runs read only aggregates over the ledger.
// Every method takes an optional branch filter; nil means all branches.
type FinancialRepository struct {
	db *sqlx.DB
}

// NewFinancialRepository constructs the repository.
func NewFinancialRepository(db *sqlx.DB) *FinancialRepository {
	return &FinancialRepository{db: db}
}

// CountActiveStudents counts active students registered at the branch.
func (r *FinancialRepository) CountActiveStudents(ctx context.Context, branchID *string) (int64, error) {
	const query = `SELECT COUNT(*) FROM students WHERE active = TRUE AND ($1::text IS NULL OR branch_id = $1)`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, branchID); err != nil {
		return 0, fmt.Errorf("count active students: %w", err)
	}
	return count, nil
}

// ActiveEnrollmentTotals sums billed and paid amounts of active enrollments.
func (r *FinancialRepository) ActiveEnrollmentTotals(ctx context.Context, branchID *string) (models.EnrollmentTotals, error) {
	const query = `SELECT COUNT(*) AS enrollment_count,
        COALESCE(SUM(total_amount), 0) AS total_billed,
        COALESCE(SUM(paid_amount), 0) AS total_paid
        FROM enrollments
        WHERE active = TRUE AND ($1::text IS NULL OR branch_id = $1)`
	var totals models.EnrollmentTotals
	if err := r.db.GetContext(ctx, &totals, query, branchID); err != nil {
		return models.EnrollmentTotals{}, fmt.Errorf("sum active enrollments: %w", err)
	}
	return totals, nil
}

// StudentsWithDebt lists students with outstanding active enrollments, filtered on the student's branch.
func (r *FinancialRepository) StudentsWithDebt(ctx context.Context, branchID *string) ([]models.StudentDebt, error) {
	const query = `SELECT s.id AS student_id,
        s.first_name || ' ' || s.last_name AS full_name,
        SUM(e.total_amount - e.paid_amount) AS total_debt
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE e.active = TRUE
        AND e.total_amount > e.paid_amount
        AND ($1::text IS NULL OR s.branch_id = $1)
        GROUP BY s.id, s.first_name, s.last_name
        ORDER BY total_debt DESC, full_name ASC`
	var debts []models.StudentDebt
	if err := r.db.SelectContext(ctx, &debts, query, branchID); err != nil {
		return nil, fmt.Errorf("list students with debt: %w", err)
	}
	return debts, nil
}

// CourseTotals aggregates the enrollments of a course. It returns sql.ErrNoRows when the course does not exist.
func (r *FinancialRepository) CourseTotals(ctx context.Context, courseID string, branchID *string) (*models.CourseTotals, error) {
	const query = `SELECT c.id AS course_id, c.name AS course_name, c.active AS course_active,
        COUNT(e.id) AS enrollment_count,
        COALESCE(SUM(e.total_amount), 0) AS total_billed,
        COALESCE(SUM(e.paid_amount), 0) AS total_paid
        FROM courses c
        LEFT JOIN enrollments e ON e.course_id = c.id AND ($2::text IS NULL OR e.branch_id = $2)
        WHERE c.id = $1
        GROUP BY c.id, c.name, c.active`
	var totals models.CourseTotals
	if err := r.db.GetContext(ctx, &totals, query, courseID, branchID); err != nil {
		return nil, err
	}
	return &totals, nil
}

// MonthlyIncome groups enrollments by year, month of enrollment date and branch.
// Confirmed payments are pre-aggregated per enrollment so enrollment sums are not multiplied by the join.
func (r *FinancialRepository) MonthlyIncome(ctx context.Context, year int, branchID *string) ([]models.MonthlyIncomeRow, error) {
	const query = `SELECT CAST(EXTRACT(YEAR FROM e.enrollment_date) AS INTEGER) AS year,
        CAST(EXTRACT(MONTH FROM e.enrollment_date) AS INTEGER) AS month_number,
        b.id AS branch_id,
        b.name AS branch_name,
        COALESCE(SUM(p.income), 0) AS total_income,
        COALESCE(SUM(p.payment_count), 0) AS payment_count,
        COALESCE(SUM(e.total_amount), 0) AS total_sales,
        COALESCE(SUM(e.paid_amount), 0) AS total_paid
        FROM enrollments e
        JOIN branches b ON b.id = e.branch_id
        LEFT JOIN (
            SELECT enrollment_id, SUM(amount) AS income, COUNT(*) AS payment_count
            FROM payments
            WHERE status = 'CONFIRMADO'
            GROUP BY enrollment_id
        ) p ON p.enrollment_id = e.id
        WHERE EXTRACT(YEAR FROM e.enrollment_date) = $1
        AND ($2::text IS NULL OR b.id = $2)
        GROUP BY 1, 2, b.id, b.name
        ORDER BY year DESC, month_number DESC, b.name ASC`
	var rows []models.MonthlyIncomeRow
	if err := r.db.SelectContext(ctx, &rows, query, year, branchID); err != nil {
		return nil, fmt.Errorf("monthly income: %w", err)
	}
	return rows, nil
}

// LedgerDrift lists enrollments whose paid amount disagrees with their confirmed payments.
func (r *FinancialRepository) LedgerDrift(ctx context.Context, branchID *string) ([]models.LedgerDrift, error) {
	const query = `SELECT e.id AS enrollment_id, e.branch_id, e.paid_amount,
        COALESCE(p.confirmed_total, 0) AS confirmed_total,
        e.paid_amount - COALESCE(p.confirmed_total, 0) AS drift
        FROM enrollments e
        LEFT JOIN (
            SELECT enrollment_id, SUM(amount) AS confirmed_total
            FROM payments
            WHERE status = 'CONFIRMADO'
            GROUP BY enrollment_id
        ) p ON p.enrollment_id = e.id
        WHERE e.paid_amount <> COALESCE(p.confirmed_total, 0)
        AND ($1::text IS NULL OR e.branch_id = $1)
        ORDER BY e.id`
	var drifts []models.LedgerDrift
	if err := r.db.SelectContext(ctx, &drifts, query, branchID); err != nil {
		return nil, fmt.Errorf("ledger drift: %w", err)
	}
	return drifts, nil
}
