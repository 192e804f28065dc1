package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course is an offering students enroll in. A nil branch means it is offered everywhere.
type Course struct {
	ID          string          `db:"id" json:"id"`
	BranchID    *string         `db:"branch_id" json:"branch_id,omitempty"`
	Name        string          `db:"name" json:"name"`
	Description *string         `db:"description" json:"description,omitempty"`
	TotalHours  int             `db:"total_hours" json:"total_hours"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Active      bool            `db:"active" json:"active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// IsGlobal reports whether the course is offered at every branch.
func (c *Course) IsGlobal() bool {
	return c.BranchID == nil
}

// CourseFilter carries course listing query parameters.
type CourseFilter struct {
	BranchID *string `form:"branchId"`
	Active   *bool   `form:"active"`
	Name     string  `form:"name"`
	Page     int     `form:"page"`
	PageSize int     `form:"pageSize"`
}
