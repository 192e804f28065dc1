package service

import (
	"context"

	"github.com/haperez86/EduPay/internal/models"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

// ResolveScope maps a caller and an optional requested branch onto the rows they may see.
//
//	SUPER_ADMIN: the requested branch when given, otherwise every branch.
//	ADMIN:       always their own branch; nothing when unassigned.
//	other roles: Forbidden.
func ResolveScope(actor models.Actor, requestedBranchID *string) (models.ScopeFilter, error) {
	switch actor.Role {
	case models.RoleSuperAdmin:
		if requestedBranchID != nil && *requestedBranchID != "" {
			return models.BranchScope(*requestedBranchID), nil
		}
		return models.UnrestrictedScope(), nil
	case models.RoleAdmin:
		if actor.HasBranch() {
			return models.BranchScope(*actor.BranchID), nil
		}
		return models.EmptyScope(), nil
	case models.RoleStudent:
		return models.ScopeFilter{}, appErrors.Clone(appErrors.ErrForbidden, "role has no access to financial data")
	default:
		return models.ScopeFilter{}, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
}

// resolveWriteScope is ResolveScope for mutations, where an empty scope is a refusal.
func resolveWriteScope(actor models.Actor) (models.ScopeFilter, error) {
	scope, err := ResolveScope(actor, nil)
	if err != nil {
		return scope, err
	}
	if scope.IsEmpty() {
		return scope, appErrors.Clone(appErrors.ErrForbidden, "admin has no branch assigned")
	}
	return scope, nil
}

// authorizeRow checks single row visibility: empty scopes hide the row, mismatches are refused.
func authorizeRow(scope models.ScopeFilter, branchID *string, notFound string) error {
	if scope.IsEmpty() {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	if !scope.Allows(branchID) {
		return appErrors.Clone(appErrors.ErrForbidden, "resource belongs to another branch")
	}
	return nil
}

// writeBranch picks the branch a student or course is written to. Admins are pinned to their own
// branch; super admins may name an active branch, otherwise current is kept.
func writeBranch(ctx context.Context, branches branchReader, actor models.Actor, scope models.ScopeFilter, requested, current *string) (*string, error) {
	if actor.Role != models.RoleSuperAdmin {
		return scope.BranchParam(), nil
	}
	if requested == nil || *requested == "" {
		return current, nil
	}
	branch, err := branches.FindByID(ctx, *requested)
	if err != nil {
		return nil, translateStoreError(err, "branch not found", "failed to load branch")
	}
	if !branch.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "branch inactive")
	}
	return &branch.ID, nil
}
