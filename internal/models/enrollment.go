package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// Enrollment captures a student's registration to a course and its running balance.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	CourseID       string           `db:"course_id" json:"course_id"`
	BranchID       *string          `db:"branch_id" json:"branch_id,omitempty"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	TotalAmount    decimal.Decimal  `db:"total_amount" json:"total_amount"`
	PaidAmount     decimal.Decimal  `db:"paid_amount" json:"paid_amount"`
	Active         bool             `db:"active" json:"active"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// Payable reports whether new payments may be recorded against the enrollment.
func (e *Enrollment) Payable() bool {
	return e.Active && e.Status == EnrollmentStatusActive
}

// Remaining is the outstanding balance.
func (e *Enrollment) Remaining() decimal.Decimal {
	return e.TotalAmount.Sub(e.PaidAmount)
}

// EnrollmentDetail enriches Enrollment with student, course and branch names.
type EnrollmentDetail struct {
	Enrollment
	StudentName string  `db:"student_name" json:"student_name"`
	CourseName  string  `db:"course_name" json:"course_name"`
	BranchName  *string `db:"branch_name" json:"branch_name,omitempty"`
}

// EnrollmentPaymentStatus summarises how far an enrollment has been paid.
type EnrollmentPaymentStatus string

const (
	EnrollmentPaid       EnrollmentPaymentStatus = "PAGADO"
	EnrollmentInProgress EnrollmentPaymentStatus = "EN_PROGRESO"
	EnrollmentPending    EnrollmentPaymentStatus = "PENDIENTE"
)

// PaymentStatusFor classifies a balance.
func PaymentStatusFor(total, paid decimal.Decimal) EnrollmentPaymentStatus {
	switch {
	case !total.Sub(paid).IsPositive():
		return EnrollmentPaid
	case paid.IsPositive():
		return EnrollmentInProgress
	default:
		return EnrollmentPending
	}
}

// EnrollmentSummary reports the balance and payment status of an enrollment.
type EnrollmentSummary struct {
	EnrollmentID  string                  `json:"enrollment_id"`
	TotalAmount   decimal.Decimal         `json:"total_amount"`
	PaidAmount    decimal.Decimal         `json:"paid_amount"`
	PendingAmount decimal.Decimal         `json:"pending_amount"`
	Status        EnrollmentPaymentStatus `json:"status"`
}

// EnrollmentFilter carries enrollment listing query parameters.
type EnrollmentFilter struct {
	BranchID  *string `form:"branchId"`
	StudentID string  `form:"studentId"`
	CourseID  string  `form:"courseId"`
	Page      int     `form:"page"`
	PageSize  int     `form:"pageSize"`
}
