package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/haperez86/EduPay/internal/models"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

type branchRepository interface {
	ListActive(ctx context.Context) ([]models.Branch, error)
	FindByID(ctx context.Context, id string) (*models.Branch, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	ExistsActiveMain(ctx context.Context, excludeID string) (bool, error)
	Create(ctx context.Context, branch *models.Branch) error
	Update(ctx context.Context, branch *models.Branch) error
	Deactivate(ctx context.Context, id string) error
}

// BranchRequest is the payload for creating or updating a branch.
type BranchRequest struct {
	Code    string  `json:"code" validate:"required,max=10"`
	Name    string  `json:"name" validate:"required,max=100"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=200"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	IsMain  bool    `json:"is_main"`
}

// BranchService manages school locations.
type BranchService struct {
	repo      branchRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBranchService constructs BranchService.
func NewBranchService(repo branchRepository, validate *validator.Validate, logger *zap.Logger) *BranchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BranchService{repo: repo, validator: validate, logger: logger}
}

// ListActive returns active branches, main branch first.
func (s *BranchService) ListActive(ctx context.Context) ([]models.Branch, error) {
	branches, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list branches")
	}
	if branches == nil {
		branches = []models.Branch{}
	}
	return branches, nil
}

// Create registers a new branch.
func (s *BranchService) Create(ctx context.Context, actor models.Actor, req BranchRequest) (*models.Branch, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid branch payload")
	}
	if err := s.ensureUnique(ctx, req, ""); err != nil {
		return nil, err
	}

	branch := &models.Branch{
		Code:    req.Code,
		Name:    strings.TrimSpace(req.Name),
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
		IsMain:  req.IsMain,
		Active:  true,
	}
	if err := s.repo.Create(ctx, branch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create branch")
	}
	s.logger.Info("branch created", zap.String("branch_id", branch.ID), zap.String("code", branch.Code))
	return branch, nil
}

// Update overwrites the mutable attributes of a branch.
func (s *BranchService) Update(ctx context.Context, actor models.Actor, id string, req BranchRequest) (*models.Branch, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid branch payload")
	}
	branch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "branch not found", "failed to load branch")
	}
	if err := s.ensureUnique(ctx, req, id); err != nil {
		return nil, err
	}

	branch.Code = req.Code
	branch.Name = strings.TrimSpace(req.Name)
	branch.Address = req.Address
	branch.Phone = req.Phone
	branch.Email = req.Email
	branch.IsMain = req.IsMain
	if err := s.repo.Update(ctx, branch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update branch")
	}
	s.logger.Info("branch updated", zap.String("branch_id", branch.ID))
	return branch, nil
}

// Deactivate soft deletes a branch.
func (s *BranchService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	if err := requireSuperAdmin(actor); err != nil {
		return err
	}
	branch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return translateStoreError(err, "branch not found", "failed to load branch")
	}
	if !branch.Active {
		return appErrors.Clone(appErrors.ErrInvalidState, "branch already inactive")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate branch")
	}
	s.logger.Info("branch deactivated", zap.String("branch_id", id))
	return nil
}

func (s *BranchService) ensureUnique(ctx context.Context, req BranchRequest, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, req.Code, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate branch code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "branch code already in use")
	}
	if !req.IsMain {
		return nil
	}
	mainExists, err := s.repo.ExistsActiveMain(ctx, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate main branch")
	}
	if mainExists {
		return appErrors.Clone(appErrors.ErrConflict, "an active main branch already exists")
	}
	return nil
}

func requireSuperAdmin(actor models.Actor) error {
	if actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "super admin role required")
	}
	return nil
}
