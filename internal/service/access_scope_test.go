package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haperez86/EduPay/internal/models"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

func strPtr(v string) *string { return &v }

func TestResolveScope(t *testing.T) {
	cases := []struct {
		name      string
		actor     models.Actor
		requested *string
		want      models.ScopeFilter
		wantErr   *appErrors.Error
	}{
		{name: "super admin unrestricted", actor: models.Actor{Role: models.RoleSuperAdmin}, want: models.UnrestrictedScope()},
		{name: "super admin empty request", actor: models.Actor{Role: models.RoleSuperAdmin}, requested: strPtr(""), want: models.UnrestrictedScope()},
		{name: "super admin requested branch", actor: models.Actor{Role: models.RoleSuperAdmin}, requested: strPtr("b-2"), want: models.BranchScope("b-2")},
		{name: "admin own branch", actor: models.Actor{Role: models.RoleAdmin, BranchID: strPtr("b-1")}, want: models.BranchScope("b-1")},
		{name: "admin ignores requested branch", actor: models.Actor{Role: models.RoleAdmin, BranchID: strPtr("b-1")}, requested: strPtr("b-2"), want: models.BranchScope("b-1")},
		{name: "admin without branch", actor: models.Actor{Role: models.RoleAdmin}, requested: strPtr("b-2"), want: models.EmptyScope()},
		{name: "student forbidden", actor: models.Actor{Role: models.RoleStudent}, wantErr: appErrors.ErrForbidden},
		{name: "unknown forbidden", actor: models.Actor{Role: "TEACHER"}, wantErr: appErrors.ErrForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveScope(tc.actor, tc.requested)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.Equal(t, tc.wantErr.Code, appErrors.FromError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveWriteScopeRejectsUnassignedAdmin(t *testing.T) {
	_, err := resolveWriteScope(models.Actor{Role: models.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	scope, err := resolveWriteScope(models.Actor{Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.UnrestrictedScope(), scope)
}

func TestAuthorizeRow(t *testing.T) {
	err := authorizeRow(models.EmptyScope(), strPtr("b-1"), "enrollment not found")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = authorizeRow(models.BranchScope("b-1"), strPtr("b-2"), "enrollment not found")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	assert.NoError(t, authorizeRow(models.BranchScope("b-1"), strPtr("b-1"), "enrollment not found"))
	assert.NoError(t, authorizeRow(models.UnrestrictedScope(), nil, "enrollment not found"))
}
