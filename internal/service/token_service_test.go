package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haperez86/EduPay/internal/models"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "edupay", Expiry: time.Hour})
	branch := "branch-1"

	token, expiresAt, err := svc.Issue(models.Actor{UserID: "u-1", Role: models.RoleAdmin, BranchID: &branch})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	actor := claims.Actor()
	require.True(t, actor.HasBranch())
	assert.Equal(t, "branch-1", *actor.BranchID)
}

func TestTokenServiceRejectsWrongSecretAndExpired(t *testing.T) {
	issuer := NewTokenService(TokenConfig{Secret: "other", Issuer: "edupay"})
	token, _, err := issuer.Issue(models.Actor{UserID: "u-1", Role: models.RoleSuperAdmin})
	require.NoError(t, err)

	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "edupay"})
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	expired := NewTokenService(TokenConfig{Secret: "secret", Issuer: "edupay", Expiry: time.Minute})
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err = expired.Issue(models.Actor{UserID: "u-1", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenServiceRejectsUnknownRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u-1", Role: "TEACHER", RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "edupay",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "edupay"})
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}
