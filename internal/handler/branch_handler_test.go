package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/haperez86/EduPay/internal/models"
	"github.com/haperez86/EduPay/internal/service"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

type fakeBranchSrv struct {
	updatedID string
}

func (f *fakeBranchSrv) ListActive(context.Context) ([]models.Branch, error) {
	return []models.Branch{{ID: "main", IsMain: true}}, nil
}

func (f *fakeBranchSrv) Create(_ context.Context, actor models.Actor, req service.BranchRequest) (*models.Branch, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.ErrForbidden
	}
	return &models.Branch{ID: "b1", Code: req.Code}, nil
}

func (f *fakeBranchSrv) Update(_ context.Context, _ models.Actor, id string, req service.BranchRequest) (*models.Branch, error) {
	f.updatedID = id
	return &models.Branch{ID: id, Code: req.Code}, nil
}

func (f *fakeBranchSrv) Deactivate(context.Context, models.Actor, string) error { return nil }

func TestBranchHandlerCreateForbiddenForAdmin(t *testing.T) {
	h := NewBranchHandler(&fakeBranchSrv{})

	c, rec := newTestContext(http.MethodPost, "/branches", map[string]string{"code": "SUR", "name": "Sur"}, &branchAdmin)
	h.Create(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/branches", map[string]string{"code": "SUR", "name": "Sur"}, &superAdminActor)
	h.Create(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestBranchHandlerUpdateAndList(t *testing.T) {
	fake := &fakeBranchSrv{}
	h := NewBranchHandler(fake)

	c, rec := newTestContext(http.MethodPut, "/branches/b9", map[string]string{"code": "NOR", "name": "Norte"}, &superAdminActor)
	c.Params = gin.Params{{Key: "id", Value: "b9"}}
	h.Update(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b9", fake.updatedID)

	c, rec = newTestContext(http.MethodPut, "/branches/b9", "not json", &superAdminActor)
	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/branches", nil, nil)
	h.List(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}
