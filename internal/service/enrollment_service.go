package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/haperez86/EduPay/internal/models"
	"github.com/haperez86/EduPay/internal/repository"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, params repository.EnrollmentListParams) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Deactivate(ctx context.Context, id string) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type branchReader interface {
	FindByID(ctx context.Context, id string) (*models.Branch, error)
}

// CreateEnrollmentRequest describes enrollment creation request.
type CreateEnrollmentRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	CourseID  string  `json:"course_id" validate:"required"`
	BranchID  *string `json:"branch_id,omitempty"`
}

// EnrollmentService orchestrates enrollment workflows.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	courses   courseReader
	branches  branchReader
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService. loc fixes the calendar used for enrollment dates.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, courses courseReader, branches branchReader, cache cacheInvalidator, loc *time.Location, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &EnrollmentService{
		repo:      repo,
		students:  students,
		courses:   courses,
		branches:  branches,
		cache:     cache,
		validator: validate,
		logger:    logger,
		location:  loc,
		now:       time.Now,
	}
}

// List returns enrollments visible to the actor with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, actor models.Actor, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
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
		return []models.EnrollmentDetail{}, &models.Pagination{Page: page, PageSize: size}, nil
	}

	enrollments, total, err := s.repo.List(ctx, repository.EnrollmentListParams{
		BranchID:  scope.BranchParam(),
		StudentID: filter.StudentID,
		CourseID:  filter.CourseID,
		Page:      page,
		PageSize:  size,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if enrollments == nil {
		enrollments = []models.EnrollmentDetail{}
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create enrolls a student in a course, snapshotting the course price as the amount owed.
func (s *EnrollmentService) Create(ctx context.Context, actor models.Actor, req CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := resolveWriteScope(actor); err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, translateStoreError(err, "student not found", "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "student inactive")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, translateStoreError(err, "course not found", "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "course inactive")
	}

	branchID, err := s.enrollmentBranch(ctx, actor, req.BranchID, student)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.location)
	enrollment := &models.Enrollment{
		StudentID:      student.ID,
		CourseID:       course.ID,
		BranchID:       branchID,
		EnrollmentDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Status:         models.EnrollmentStatusActive,
		TotalAmount:    course.Price,
		PaidAmount:     decimal.Zero,
		Active:         true,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	invalidateDashboards(ctx, s.cache, s.logger)
	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", student.ID),
		zap.String("course_id", course.ID),
		zap.String("actor_id", actor.UserID),
	)

	return &models.EnrollmentDetail{
		Enrollment:  *enrollment,
		StudentName: student.FullName(),
		CourseName:  course.Name,
	}, nil
}

func (s *EnrollmentService) enrollmentBranch(ctx context.Context, actor models.Actor, requested *string, student *models.Student) (*string, error) {
	switch actor.Role {
	case models.RoleSuperAdmin:
		if requested == nil || *requested == "" {
			return student.BranchID, nil
		}
		branch, err := s.branches.FindByID(ctx, *requested)
		if err != nil {
			return nil, translateStoreError(err, "branch not found", "failed to load branch")
		}
		if !branch.Active {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "branch inactive")
		}
		return &branch.ID, nil
	case models.RoleAdmin:
		id := *actor.BranchID
		return &id, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot create enrollments")
	}
}

// Get returns enrollment detail.
func (s *EnrollmentService) Get(ctx context.Context, actor models.Actor, id string) (*models.EnrollmentDetail, error) {
	scope, err := ResolveScope(actor, nil)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "enrollment not found", "failed to load enrollment")
	}
	if err := authorizeRow(scope, detail.BranchID, "enrollment not found"); err != nil {
		return nil, err
	}
	return detail, nil
}

// Summary classifies the payment progress of an enrollment.
func (s *EnrollmentService) Summary(ctx context.Context, actor models.Actor, id string) (*models.EnrollmentSummary, error) {
	scope, err := ResolveScope(actor, nil)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "enrollment not found", "failed to load enrollment")
	}
	if err := authorizeRow(scope, enrollment.BranchID, "enrollment not found"); err != nil {
		return nil, err
	}
	return &models.EnrollmentSummary{
		EnrollmentID:  enrollment.ID,
		TotalAmount:   enrollment.TotalAmount,
		PaidAmount:    enrollment.PaidAmount,
		PendingAmount: enrollment.Remaining(),
		Status:        models.PaymentStatusFor(enrollment.TotalAmount, enrollment.PaidAmount),
	}, nil
}

// Deactivate soft deletes an enrollment. Its balance and payments are kept.
func (s *EnrollmentService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	scope, err := resolveWriteScope(actor)
	if err != nil {
		return err
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return translateStoreError(err, "enrollment not found", "failed to load enrollment")
	}
	if !scope.Allows(enrollment.BranchID) {
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another branch")
	}
	if !enrollment.Active {
		return appErrors.Clone(appErrors.ErrInvalidState, "enrollment already inactive")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate enrollment")
	}
	invalidateDashboards(ctx, s.cache, s.logger)
	s.logger.Info("enrollment deactivated", zap.String("enrollment_id", id), zap.String("actor_id", actor.UserID))
	return nil
}
