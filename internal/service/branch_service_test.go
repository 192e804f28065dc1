package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haperez86/EduPay/internal/models"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

type memoryBranchRepo struct {
	items map[string]models.Branch
	seq   int
}

func (m *memoryBranchRepo) ListActive(context.Context) ([]models.Branch, error) {
	var out []models.Branch
	for _, b := range m.items {
		if b.Active {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memoryBranchRepo) FindByID(_ context.Context, id string) (*models.Branch, error) {
	b, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (m *memoryBranchRepo) ExistsByCode(_ context.Context, code, excludeID string) (bool, error) {
	for id, b := range m.items {
		if id != excludeID && b.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryBranchRepo) ExistsActiveMain(_ context.Context, excludeID string) (bool, error) {
	for id, b := range m.items {
		if id != excludeID && b.IsMain && b.Active {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryBranchRepo) Create(_ context.Context, branch *models.Branch) error {
	m.seq++
	branch.ID = fmt.Sprintf("b%d", m.seq)
	m.items[branch.ID] = *branch
	return nil
}

func (m *memoryBranchRepo) Update(_ context.Context, branch *models.Branch) error {
	m.items[branch.ID] = *branch
	return nil
}

func (m *memoryBranchRepo) Deactivate(_ context.Context, id string) error {
	b := m.items[id]
	b.Active = false
	m.items[id] = b
	return nil
}

func TestBranchServiceCreateRules(t *testing.T) {
	repo := &memoryBranchRepo{items: map[string]models.Branch{}}
	svc := NewBranchService(repo, nil, nil)
	ctx := context.Background()

	main, err := svc.Create(ctx, superAdmin, BranchRequest{Code: " cen ", Name: "Centro", IsMain: true})
	require.NoError(t, err)
	assert.Equal(t, "CEN", main.Code)
	assert.True(t, main.Active)

	_, err = svc.Create(ctx, superAdmin, BranchRequest{Code: "CEN", Name: "Otra"})
	assertCode(t, err, appErrors.ErrConflict)

	_, err = svc.Create(ctx, superAdmin, BranchRequest{Code: "NOR", Name: "Norte", IsMain: true})
	assertCode(t, err, appErrors.ErrConflict)

	_, err = svc.Create(ctx, northAdmin, BranchRequest{Code: "SUR", Name: "Sur"})
	assertCode(t, err, appErrors.ErrForbidden)

	_, err = svc.Create(ctx, superAdmin, BranchRequest{Code: "WAYTOOLONGCODE", Name: "Sur"})
	assertCode(t, err, appErrors.ErrValidation)

	branches, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, branches, 1)
}

func TestBranchServiceUpdateKeepsOwnMainFlag(t *testing.T) {
	repo := &memoryBranchRepo{items: map[string]models.Branch{
		"main":  {ID: "main", Code: "CEN", Name: "Centro", IsMain: true, Active: true},
		"north": {ID: "north", Code: "NOR", Name: "Norte", Active: true},
	}}
	svc := NewBranchService(repo, nil, nil)
	ctx := context.Background()

	updated, err := svc.Update(ctx, superAdmin, "main", BranchRequest{Code: "CEN", Name: "Centro Principal", IsMain: true})
	require.NoError(t, err)
	assert.Equal(t, "Centro Principal", updated.Name)

	_, err = svc.Update(ctx, superAdmin, "north", BranchRequest{Code: "NOR", Name: "Norte", IsMain: true})
	assertCode(t, err, appErrors.ErrConflict)

	_, err = svc.Update(ctx, superAdmin, "north", BranchRequest{Code: "CEN", Name: "Norte"})
	assertCode(t, err, appErrors.ErrConflict)

	_, err = svc.Update(ctx, superAdmin, "ghost", BranchRequest{Code: "GHO", Name: "Fantasma"})
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestBranchServiceDeactivate(t *testing.T) {
	repo := &memoryBranchRepo{items: map[string]models.Branch{
		"north": {ID: "north", Code: "NOR", Name: "Norte", Active: true},
	}}
	svc := NewBranchService(repo, nil, nil)
	ctx := context.Background()

	assertCode(t, svc.Deactivate(ctx, northAdmin, "north"), appErrors.ErrForbidden)
	require.NoError(t, svc.Deactivate(ctx, superAdmin, "north"))
	assertCode(t, svc.Deactivate(ctx, superAdmin, "north"), appErrors.ErrInvalidState)
	assertCode(t, svc.Deactivate(ctx, superAdmin, "ghost"), appErrors.ErrNotFound)
}
