package models

import "time"

// Audit actions recorded for ledger mutations.
const (
	AuditActionPaymentRegister   = "PAYMENT_REGISTER"
	AuditActionPaymentVoid       = "PAYMENT_VOID"
	AuditActionEnrollmentCreate  = "ENROLLMENT_CREATE"
	AuditActionEnrollmentDisable = "ENROLLMENT_DEACTIVATE"
	AuditActionBranchCreate      = "BRANCH_CREATE"
	AuditActionBranchUpdate      = "BRANCH_UPDATE"
	AuditActionBranchDisable     = "BRANCH_DEACTIVATE"
	AuditActionStudentCreate     = "STUDENT_CREATE"
	AuditActionStudentUpdate     = "STUDENT_UPDATE"
	AuditActionStudentToggle     = "STUDENT_TOGGLE_STATUS"
	AuditActionStudentDelete     = "STUDENT_DELETE"
	AuditActionCourseCreate      = "COURSE_CREATE"
	AuditActionCourseUpdate      = "COURSE_UPDATE"
	AuditActionCourseToggle      = "COURSE_TOGGLE_STATUS"
	AuditActionCourseDisable     = "COURSE_DEACTIVATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
