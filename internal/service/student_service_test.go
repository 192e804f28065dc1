package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haperez86/EduPay/internal/models"
	"github.com/haperez86/EduPay/internal/repository"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

type mockStudentRepo struct {
	items      map[string]models.Student
	enrolled   map[string]bool
	listParams repository.StudentListParams
	listCalls  int
	deleted    []string
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{items: map[string]models.Student{}, enrolled: map[string]bool{}}
}

func (m *mockStudentRepo) List(_ context.Context, params repository.StudentListParams) ([]models.StudentDetail, int, error) {
	m.listCalls++
	m.listParams = params
	var out []models.StudentDetail
	for _, s := range m.items {
		out = append(out, models.StudentDetail{Student: s})
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) Directory(_ context.Context, branchID *string, _ string) ([]models.StudentDirectoryEntry, error) {
	var out []models.StudentDirectoryEntry
	for _, s := range m.items {
		if s.Active && (branchID == nil || (s.BranchID != nil && *s.BranchID == *branchID)) {
			out = append(out, models.StudentDirectoryEntry{ID: s.ID, BranchID: s.BranchID})
		}
	}
	return out, nil
}

func (m *mockStudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (m *mockStudentRepo) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	s, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.StudentDetail{Student: *s}, nil
}

func (m *mockStudentRepo) ExistsByDocument(_ context.Context, document, excludeID string) (bool, error) {
	for _, s := range m.items {
		if s.DocumentNumber == document && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) HasEnrollments(_ context.Context, id string) (bool, error) {
	return m.enrolled[id], nil
}

func (m *mockStudentRepo) Create(_ context.Context, student *models.Student) error {
	student.ID = "stu-new"
	m.items[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(_ context.Context, student *models.Student) error {
	m.items[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) SetActive(_ context.Context, id string, active bool) error {
	s := m.items[id]
	s.Active = active
	m.items[id] = s
	return nil
}

func (m *mockStudentRepo) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func newStudentServiceForTest(repo *mockStudentRepo, cache cacheInvalidator) *StudentService {
	branches := stubBranches{
		"north":  {ID: "north", Name: "Norte", Active: true},
		"south":  {ID: "south", Name: "Sur", Active: true},
		"closed": {ID: "closed", Name: "Cerrada", Active: false},
	}
	return NewStudentService(repo, branches, cache, nil, nil)
}

func studentReq(document string) StudentRequest {
	return StudentRequest{FirstName: " Ana ", LastName: "Ruiz", DocumentNumber: document}
}

func TestStudentServiceCreatePinsAdminBranch(t *testing.T) {
	repo := newMockStudentRepo()
	cache := &countingInvalidator{}
	svc := newStudentServiceForTest(repo, cache)
	ctx := context.Background()

	req := studentReq("1020304")
	req.BranchID = strPtr("south")
	student, err := svc.Create(ctx, northAdmin, req)
	require.NoError(t, err)
	assert.Equal(t, "north", *student.BranchID)
	assert.Equal(t, "Ana", student.FirstName)
	assert.True(t, student.Active)
	assert.Equal(t, []string{dashboardCachePattern}, cache.patterns)
}

func TestStudentServiceCreateSuperAdminBranchChoice(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newStudentServiceForTest(repo, nil)
	ctx := context.Background()

	req := studentReq("1")
	req.BranchID = strPtr("south")
	student, err := svc.Create(ctx, superAdmin, req)
	require.NoError(t, err)
	assert.Equal(t, "south", *student.BranchID)

	req = studentReq("2")
	req.BranchID = strPtr("ghost")
	_, err = svc.Create(ctx, superAdmin, req)
	assertCode(t, err, appErrors.ErrNotFound)

	req.BranchID = strPtr("closed")
	_, err = svc.Create(ctx, superAdmin, req)
	assertCode(t, err, appErrors.ErrInvalidState)

	student, err = svc.Create(ctx, superAdmin, studentReq("3"))
	require.NoError(t, err)
	assert.Nil(t, student.BranchID)
}

func TestStudentServiceCreateRejections(t *testing.T) {
	repo := newMockStudentRepo()
	repo.items["s1"] = models.Student{ID: "s1", DocumentNumber: "1020304", BranchID: strPtr("south")}
	svc := newStudentServiceForTest(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, northAdmin, studentReq("1020304"))
	assertCode(t, err, appErrors.ErrConflict)

	_, err = svc.Create(ctx, northAdmin, StudentRequest{FirstName: "Ana"})
	assertCode(t, err, appErrors.ErrValidation)

	_, err = svc.Create(ctx, orphanAdmin, studentReq("555"))
	assertCode(t, err, appErrors.ErrForbidden)

	_, err = svc.Create(ctx, student, studentReq("555"))
	assertCode(t, err, appErrors.ErrForbidden)
	assert.Len(t, repo.items, 1)
}

func TestStudentServiceListScopes(t *testing.T) {
	repo := newMockStudentRepo()
	repo.items["s1"] = models.Student{ID: "s1", BranchID: strPtr("north")}
	svc := newStudentServiceForTest(repo, nil)
	ctx := context.Background()
	active := true

	_, pagination, err := svc.List(ctx, northAdmin, models.StudentFilter{BranchID: strPtr("south"), Active: &active, Name: " ana "})
	require.NoError(t, err)
	assert.Equal(t, "north", *repo.listParams.BranchID)
	assert.Equal(t, "ana", repo.listParams.Name)
	assert.True(t, *repo.listParams.Active)
	assert.Equal(t, 1, pagination.TotalCount)

	_, _, err = svc.List(ctx, superAdmin, models.StudentFilter{})
	require.NoError(t, err)
	assert.Nil(t, repo.listParams.BranchID)

	items, _, err := svc.List(ctx, orphanAdmin, models.StudentFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 2, repo.listCalls)

	_, _, err = svc.List(ctx, student, models.StudentFilter{})
	assertCode(t, err, appErrors.ErrForbidden)
}

func TestStudentServiceGetAndUpdateScoped(t *testing.T) {
	repo := newMockStudentRepo()
	repo.items["s1"] = models.Student{ID: "s1", BranchID: strPtr("north"), DocumentNumber: "111", Active: true}
	repo.items["s2"] = models.Student{ID: "s2", BranchID: strPtr("south"), DocumentNumber: "222", Active: true}
	svc := newStudentServiceForTest(repo, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, northAdmin, "s1")
	require.NoError(t, err)
	_, err = svc.Get(ctx, northAdmin, "s2")
	assertCode(t, err, appErrors.ErrForbidden)
	_, err = svc.Get(ctx, northAdmin, "missing")
	assertCode(t, err, appErrors.ErrNotFound)

	req := studentReq("222")
	_, err = svc.Update(ctx, northAdmin, "s1", req)
	assertCode(t, err, appErrors.ErrConflict)

	req = studentReq("111")
	req.BranchID = strPtr("south")
	updated, err := svc.Update(ctx, northAdmin, "s1", req)
	require.NoError(t, err)
	assert.Equal(t, "north", *updated.BranchID)

	moved, err := svc.Update(ctx, superAdmin, "s1", req)
	require.NoError(t, err)
	assert.Equal(t, "south", *moved.BranchID)

	_, err = svc.Update(ctx, northAdmin, "s1", studentReq("111"))
	assertCode(t, err, appErrors.ErrForbidden)
}

func TestStudentServiceToggleAndDelete(t *testing.T) {
	repo := newMockStudentRepo()
	repo.items["s1"] = models.Student{ID: "s1", BranchID: strPtr("north"), Active: true}
	repo.items["s2"] = models.Student{ID: "s2", BranchID: strPtr("north"), Active: true}
	repo.enrolled["s2"] = true
	cache := &countingInvalidator{}
	svc := newStudentServiceForTest(repo, cache)
	ctx := context.Background()

	active, err := svc.ToggleStatus(ctx, northAdmin, "s1")
	require.NoError(t, err)
	assert.False(t, active)
	active, err = svc.ToggleStatus(ctx, northAdmin, "s1")
	require.NoError(t, err)
	assert.True(t, active)

	assertCode(t, svc.Delete(ctx, northAdmin, "s2"), appErrors.ErrConflict)
	assertCode(t, svc.Delete(ctx, orphanAdmin, "s1"), appErrors.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, northAdmin, "s1"))
	assert.Equal(t, []string{"s1"}, repo.deleted)
	assert.Len(t, cache.patterns, 3)
}

func TestStudentServiceDirectory(t *testing.T) {
	repo := newMockStudentRepo()
	repo.items["s1"] = models.Student{ID: "s1", BranchID: strPtr("north"), Active: true}
	repo.items["s2"] = models.Student{ID: "s2", BranchID: strPtr("south"), Active: true}
	repo.items["s3"] = models.Student{ID: "s3", BranchID: strPtr("north"), Active: false}
	svc := newStudentServiceForTest(repo, nil)

	entries, err := svc.Directory(context.Background(), strPtr("north"), "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "s1", entries[0].ID)

	entries, err = svc.Directory(context.Background(), strPtr(""), "")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
