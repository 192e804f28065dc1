package models

import "strings"

// UserRole represents the available roles for branch scoped access.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleStudent    UserRole = "STUDENT"
)

// ParseRole maps a raw claim value onto the closed role set.
func ParseRole(raw string) (UserRole, bool) {
	switch UserRole(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleStudent:
		return RoleStudent, true
	default:
		return "", false
	}
}

// Actor identifies the authenticated caller of a ledger operation.
type Actor struct {
	UserID   string
	Role     UserRole
	BranchID *string
}

// HasBranch reports whether the actor is assigned to a branch.
func (a Actor) HasBranch() bool {
	return a.BranchID != nil && *a.BranchID != ""
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
