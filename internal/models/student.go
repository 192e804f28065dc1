package models

import "time"

// Student represents a learner registered at a branch.
type Student struct {
	ID             string    `db:"id" json:"id"`
	BranchID       *string   `db:"branch_id" json:"branch_id,omitempty"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	DocumentNumber string    `db:"document_number" json:"document_number"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Email          *string   `db:"email" json:"email,omitempty"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// StudentDetail enriches Student with the branch name.
type StudentDetail struct {
	Student
	BranchName *string `db:"branch_name" json:"branch_name,omitempty"`
}

// StudentFilter carries student listing query parameters. Document and Name match substrings, case insensitive.
type StudentFilter struct {
	BranchID *string `form:"branchId"`
	Active   *bool   `form:"active"`
	Document string  `form:"document"`
	Name     string  `form:"name"`
	Page     int     `form:"page"`
	PageSize int     `form:"pageSize"`
}

// StudentDirectoryEntry is the reduced record shown by the student directory.
type StudentDirectoryEntry struct {
	ID             string  `db:"id" json:"id"`
	DocumentNumber string  `db:"document_number" json:"document_number"`
	FirstName      string  `db:"first_name" json:"first_name"`
	LastName       string  `db:"last_name" json:"last_name"`
	BranchID       *string `db:"branch_id" json:"branch_id,omitempty"`
	BranchName     *string `db:"branch_name" json:"branch_name,omitempty"`
}
