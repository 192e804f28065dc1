package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/haperez86/EduPay/internal/models"
	"github.com/haperez86/EduPay/internal/repository"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, params repository.StudentListParams) ([]models.StudentDetail, int, error)
	Directory(ctx context.Context, branchID *string, document string) ([]models.StudentDirectoryEntry, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByDocument(ctx context.Context, document, excludeID string) (bool, error)
	HasEnrollments(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

// StudentRequest is the payload for creating or updating a student.
// BranchID is honoured for super admins only. A nil Active keeps the current state.
type StudentRequest struct {
	FirstName      string  `json:"first_name" validate:"required,max=100"`
	LastName       string  `json:"last_name" validate:"required,max=100"`
	DocumentNumber string  `json:"document_number" validate:"required,max=30"`
	Phone          *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email,max=120"`
	Active         *bool   `json:"active,omitempty"`
	BranchID       *string `json:"branch_id,omitempty"`
}

func (r *StudentRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
}

// StudentService manages students within the caller's branch scope.
type StudentService struct {
	repo      studentRepository
	branches  branchReader
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, branches branchReader, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, branches: branches, cache: cache, validator: validate, logger: logger}
}

// List returns students visible to the actor with pagination metadata.
func (s *StudentService) List(ctx context.Context, actor models.Actor, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	scope, err := ResolveScope(actor, filter.BranchID)
	if err != nil {
		return nil, nil, err
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	if scope.IsEmpty() {
		return []models.StudentDetail{}, &models.Pagination{Page: page, PageSize: size}, nil
	}

	students, total, err := s.repo.List(ctx, repository.StudentListParams{
		BranchID: scope.BranchParam(),
		Active:   filter.Active,
		Document: strings.TrimSpace(filter.Document),
		Name:     strings.TrimSpace(filter.Name),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.StudentDetail{}
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Directory lists active students with reduced fields. Any authenticated role may read it.
func (s *StudentService) Directory(ctx context.Context, branchID *string, document string) ([]models.StudentDirectoryEntry, error) {
	if branchID != nil && *branchID == "" {
		branchID = nil
	}
	entries, err := s.repo.Directory(ctx, branchID, strings.TrimSpace(document))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if entries == nil {
		entries = []models.StudentDirectoryEntry{}
	}
	return entries, nil
}

// Get returns a student the actor may see.
func (s *StudentService) Get(ctx context.Context, actor models.Actor, id string) (*models.StudentDetail, error) {
	scope, err := ResolveScope(actor, nil)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "student not found", "failed to load student")
	}
	if err := authorizeRow(scope, detail.BranchID, "student not found"); err != nil {
		return nil, err
	}
	return detail, nil
}

// Create registers a student. Admins always register into their own branch.
func (s *StudentService) Create(ctx context.Context, actor models.Actor, req StudentRequest) (*models.Student, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	scope, err := resolveWriteScope(actor)
	if err != nil {
		return nil, err
	}
	branchID, err := writeBranch(ctx, s.branches, actor, scope, req.BranchID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueDocument(ctx, req.DocumentNumber, ""); err != nil {
		return nil, err
	}

	student := &models.Student{
		BranchID:       branchID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		DocumentNumber: req.DocumentNumber,
		Phone:          req.Phone,
		Email:          req.Email,
		Active:         true,
	}
	if req.Active != nil {
		student.Active = *req.Active
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	invalidateDashboards(ctx, s.cache, s.logger)
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("actor_id", actor.UserID))
	return student, nil
}

// Update overwrites a student's attributes. Only super admins may move a student between branches.
func (s *StudentService) Update(ctx context.Context, actor models.Actor, id string, req StudentRequest) (*models.Student, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	scope, err := resolveWriteScope(actor)
	if err != nil {
		return nil, err
	}
	student, err := s.load(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	branchID, err := writeBranch(ctx, s.branches, actor, scope, req.BranchID, student.BranchID)
	if err != nil {
		return nil, err
	}
	if req.DocumentNumber != student.DocumentNumber {
		if err := s.ensureUniqueDocument(ctx, req.DocumentNumber, id); err != nil {
			return nil, err
		}
	}

	student.BranchID = branchID
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.DocumentNumber = req.DocumentNumber
	student.Phone = req.Phone
	student.Email = req.Email
	if req.Active != nil {
		student.Active = *req.Active
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	invalidateDashboards(ctx, s.cache, s.logger)
	s.logger.Info("student updated", zap.String("student_id", id), zap.String("actor_id", actor.UserID))
	return student, nil
}

// ToggleStatus inverts the student's active flag and returns the new value.
func (s *StudentService) ToggleStatus(ctx context.Context, actor models.Actor, id string) (bool, error) {
	scope, err := resolveWriteScope(actor)
	if err != nil {
		return false, err
	}
	student, err := s.load(ctx, scope, id)
	if err != nil {
		return false, err
	}
	active := !student.Active
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle student")
	}
	invalidateDashboards(ctx, s.cache, s.logger)
	s.logger.Info("student status toggled", zap.String("student_id", id), zap.Bool("active", active), zap.String("actor_id", actor.UserID))
	return active, nil
}

// Delete removes a student that has never been enrolled. Enrolled students must be deactivated instead.
func (s *StudentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	scope, err := resolveWriteScope(actor)
	if err != nil {
		return err
	}
	if _, err := s.load(ctx, scope, id); err != nil {
		return err
	}
	enrolled, err := s.repo.HasEnrollments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student enrollments")
	}
	if enrolled {
		return appErrors.Clone(appErrors.ErrConflict, "student has enrollments; deactivate instead")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	invalidateDashboards(ctx, s.cache, s.logger)
	s.logger.Info("student deleted", zap.String("student_id", id), zap.String("actor_id", actor.UserID))
	return nil
}

func (s *StudentService) load(ctx context.Context, scope models.ScopeFilter, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "student not found", "failed to load student")
	}
	if !scope.Allows(student.BranchID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another branch")
	}
	return student, nil
}

func (s *StudentService) ensureUniqueDocument(ctx context.Context, document, excludeID string) error {
	exists, err := s.repo.ExistsByDocument(ctx, document, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate document number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "document number already registered")
	}
	return nil
}
