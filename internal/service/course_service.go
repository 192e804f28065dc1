package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/haperez86/EduPay/internal/models"
	"github.com/haperez86/EduPay/internal/repository"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, params repository.CourseListParams) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SetActive(ctx context.Context, id string, active bool) error
}

// CourseRequest is the payload for creating or updating a course.
// A missing price is stored as zero. BranchID is honoured for super admins only; nil creates a global course.
type CourseRequest struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=255"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	TotalHours  int              `json:"total_hours" validate:"gte=0,lte=10000"`
	Active      *bool            `json:"active,omitempty"`
	BranchID    *string          `json:"branch_id,omitempty"`
}

func (r CourseRequest) price() (decimal.Decimal, error) {
	if r.Price == nil {
		return decimal.Zero, nil
	}
	p := *r.Price
	if p.IsNegative() {
		return decimal.Zero, appErrors.Clone(appErrors.ErrInvalidArgument, "price cannot be negative")
	}
	if !p.Equal(p.Round(2)) {
		return decimal.Zero, appErrors.Clone(appErrors.ErrInvalidArgument, "price supports at most two decimal places")
	}
	return p, nil
}

// CourseService manages the course catalogue. Courses without a branch are offered everywhere.
type CourseService struct {
	repo      courseRepository
	branches  branchReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, branches branchReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, branches: branches, validator: validate, logger: logger}
}

// List returns global courses plus those of the branches visible to the actor.
func (s *CourseService) List(ctx context.Context, actor models.Actor, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
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
		return []models.Course{}, &models.Pagination{Page: page, PageSize: size}, nil
	}

	courses, total, err := s.repo.List(ctx, repository.CourseListParams{
		BranchID: scope.BranchParam(),
		Active:   filter.Active,
		Name:     strings.TrimSpace(filter.Name),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a course the actor may see.
func (s *CourseService) Get(ctx context.Context, actor models.Actor, id string) (*models.Course, error) {
	scope, err := ResolveScope(actor, nil)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "course not found", "failed to load course")
	}
	if scope.IsEmpty() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if !course.IsGlobal() && !scope.Allows(course.BranchID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "resource belongs to another branch")
	}
	return course, nil
}

// Create adds a course. Admins always create courses for their own branch.
func (s *CourseService) Create(ctx context.Context, actor models.Actor, req CourseRequest) (*models.Course, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	price, err := req.price()
	if err != nil {
		return nil, err
	}
	scope, err := resolveWriteScope(actor)
	if err != nil {
		return nil, err
	}
	branchID, err := writeBranch(ctx, s.branches, actor, scope, req.BranchID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, req.Name, ""); err != nil {
		return nil, err
	}

	course := &models.Course{
		BranchID:    branchID,
		Name:        req.Name,
		Description: req.Description,
		TotalHours:  req.TotalHours,
		Price:       price,
		Active:      true,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("actor_id", actor.UserID))
	return course, nil
}

// Update overwrites a course. Existing enrollments keep the price they were created with.
func (s *CourseService) Update(ctx context.Context, actor models.Actor, id string, req CourseRequest) (*models.Course, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	price, err := req.price()
	if err != nil {
		return nil, err
	}
	scope, err := resolveWriteScope(actor)
	if err != nil {
		return nil, err
	}
	course, err := s.loadWritable(ctx, actor, scope, id)
	if err != nil {
		return nil, err
	}
	branchID, err := writeBranch(ctx, s.branches, actor, scope, req.BranchID, course.BranchID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, req.Name, id); err != nil {
		return nil, err
	}

	course.BranchID = branchID
	course.Name = req.Name
	course.Description = req.Description
	course.TotalHours = req.TotalHours
	course.Price = price
	if req.Active != nil {
		course.Active = *req.Active
	}
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.logger.Info("course updated", zap.String("course_id", id), zap.String("actor_id", actor.UserID))
	return course, nil
}

// ToggleStatus inverts the course's active flag and returns the new value.
func (s *CourseService) ToggleStatus(ctx context.Context, actor models.Actor, id string) (bool, error) {
	scope, err := resolveWriteScope(actor)
	if err != nil {
		return false, err
	}
	course, err := s.loadWritable(ctx, actor, scope, id)
	if err != nil {
		return false, err
	}
	active := !course.Active
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle course")
	}
	s.logger.Info("course status toggled", zap.String("course_id", id), zap.Bool("active", active), zap.String("actor_id", actor.UserID))
	return active, nil
}

// Deactivate stops new enrollments in a course.
func (s *CourseService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	scope, err := resolveWriteScope(actor)
	if err != nil {
		return err
	}
	course, err := s.loadWritable(ctx, actor, scope, id)
	if err != nil {
		return err
	}
	if !course.Active {
		return appErrors.Clone(appErrors.ErrInvalidState, "course already inactive")
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}
	s.logger.Info("course deactivated", zap.String("course_id", id), zap.String("actor_id", actor.UserID))
	return nil
}

// loadWritable fetches a course the actor may change. Global courses belong to super admins.
func (s *CourseService) loadWritable(ctx context.Context, actor models.Actor, scope models.ScopeFilter, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "course not found", "failed to load course")
	}
	if course.IsGlobal() && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "global courses are managed by super admins")
	}
	if !course.IsGlobal() && !scope.Allows(course.BranchID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another branch")
	}
	return course, nil
}

func (s *CourseService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "a course with this name already exists")
	}
	return nil
}
