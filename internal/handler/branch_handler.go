package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haperez86/EduPay/internal/models"
	"github.com/haperez86/EduPay/internal/service"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
	"github.com/haperez86/EduPay/pkg/response"
)

type branchService interface {
	ListActive(ctx context.Context) ([]models.Branch, error)
	Create(ctx context.Context, actor models.Actor, req service.BranchRequest) (*models.Branch, error)
	Update(ctx context.Context, actor models.Actor, id string, req service.BranchRequest) (*models.Branch, error)
	Deactivate(ctx context.Context, actor models.Actor, id string) error
}

// BranchHandler exposes branch endpoints.
type BranchHandler struct {
	branches branchService
}

// NewBranchHandler constructs BranchHandler.
func NewBranchHandler(branches branchService) *BranchHandler {
	return &BranchHandler{branches: branches}
}

// List godoc
// @Summary List active branches
// @Tags Branches
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /branches [get]
func (h *BranchHandler) List(c *gin.Context) {
	branches, err := h.branches.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, branches, nil)
}

// Create godoc
// @Summary Create a branch
// @Tags Branches
// @Accept json
// @Produce json
// @Param payload body service.BranchRequest true "Branch payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /branches [post]
func (h *BranchHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	branch, err := h.branches.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, branch)
}

// Update godoc
// @Summary Update a branch
// @Tags Branches
// @Accept json
// @Produce json
// @Param id path string true "Branch ID"
// @Param payload body service.BranchRequest true "Branch payload"
// @Success 200 {object} response.Envelope
// @Router /branches/{id} [put]
func (h *BranchHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	branch, err := h.branches.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, branch, nil)
}

// Deactivate godoc
// @Summary Deactivate a branch
// @Tags Branches
// @Param id path string true "Branch ID"
// @Success 204
// @Router /branches/{id} [delete]
func (h *BranchHandler) Deactivate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.branches.Deactivate(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
