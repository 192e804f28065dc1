package models

import "github.com/shopspring/decimal"

// EnrollmentTotals aggregates active enrollments within a scope.
type EnrollmentTotals struct {
	EnrollmentCount int64           `db:"enrollment_count"`
	TotalBilled     decimal.Decimal `db:"total_billed"`
	TotalPaid       decimal.Decimal `db:"total_paid"`
}

// DashboardSummary is the headline financial view for a scope.
type DashboardSummary struct {
	ActiveStudentCount    int64           `json:"active_student_count"`
	ActiveEnrollmentCount int64           `json:"active_enrollment_count"`
	TotalBilled           decimal.Decimal `json:"total_billed"`
	TotalPaid             decimal.Decimal `json:"total_paid"`
	TotalPending          decimal.Decimal `json:"total_pending"`
}

// StudentDebt is the outstanding balance of a student across active enrollments.
type StudentDebt struct {
	StudentID string          `db:"student_id" json:"student_id"`
	FullName  string          `db:"full_name" json:"full_name"`
	TotalDebt decimal.Decimal `db:"total_debt" json:"total_debt"`
}

// EnrollmentFinancialStatus describes the balance of one enrollment.
type EnrollmentFinancialStatus struct {
	EnrollmentID string          `json:"enrollment_id"`
	StudentName  string          `json:"student_name"`
	CourseName   string          `json:"course_name"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	Balance      decimal.Decimal `json:"balance"`
	Active       bool            `json:"active"`
}

// CourseTotals is the raw course aggregate produced by the store.
type CourseTotals struct {
	CourseID        string          `db:"course_id"`
	CourseName      string          `db:"course_name"`
	CourseActive    bool            `db:"course_active"`
	EnrollmentCount int64           `db:"enrollment_count"`
	TotalBilled     decimal.Decimal `db:"total_billed"`
	TotalPaid       decimal.Decimal `db:"total_paid"`
}

// CourseFinancialSummary reports billing totals for a course.
type CourseFinancialSummary struct {
	CourseID        string          `json:"course_id"`
	CourseName      string          `json:"course_name"`
	TotalBilled     decimal.Decimal `json:"total_billed"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	TotalPending    decimal.Decimal `json:"total_pending"`
	EnrollmentCount int64           `json:"enrollment_count"`
	Active          bool            `json:"active"`
}

// MonthlyIncomeRow is one (year, month, branch) group as read from the store.
type MonthlyIncomeRow struct {
	Year         int             `db:"year"`
	MonthNumber  int             `db:"month_number"`
	BranchID     *string         `db:"branch_id"`
	BranchName   string          `db:"branch_name"`
	TotalIncome  decimal.Decimal `db:"total_income"`
	PaymentCount int64           `db:"payment_count"`
	TotalSales   decimal.Decimal `db:"total_sales"`
	TotalPaid    decimal.Decimal `db:"total_paid"`
}

// MonthlyIncome is the reported income line for a month and branch.
type MonthlyIncome struct {
	Month        string          `json:"month"`
	Year         int             `json:"year"`
	MonthNumber  int             `json:"month_number"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	PaymentCount int64           `json:"payment_count"`
	BranchID     *string         `json:"branch_id,omitempty"`
	BranchName   string          `json:"branch_name"`
	TotalSales   decimal.Decimal `json:"total_sales"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalPending decimal.Decimal `json:"total_pending"`
}

// LedgerDrift flags an enrollment whose running balance disagrees with its payment history.
type LedgerDrift struct {
	EnrollmentID   string          `db:"enrollment_id" json:"enrollment_id"`
	BranchID       *string         `db:"branch_id" json:"branch_id,omitempty"`
	PaidAmount     decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	ConfirmedTotal decimal.Decimal `db:"confirmed_total" json:"confirmed_total"`
	Drift          decimal.Decimal `db:"drift" json:"drift"`
}
