package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haperez86/EduPay/internal/middleware"
	"github.com/haperez86/EduPay/internal/models"
	"github.com/haperez86/EduPay/pkg/response"
)

type financialService interface {
	Dashboard(ctx context.Context, actor models.Actor, requestedBranchID *string) (*models.DashboardSummary, bool, error)
	StudentsWithDebt(ctx context.Context, actor models.Actor, requestedBranchID *string) ([]models.StudentDebt, error)
	EnrollmentFinancialStatus(ctx context.Context, actor models.Actor, enrollmentID string) (*models.EnrollmentFinancialStatus, error)
	CourseFinancialSummary(ctx context.Context, actor models.Actor, courseID string, requestedBranchID *string) (*models.CourseFinancialSummary, error)
	Reconciliation(ctx context.Context, actor models.Actor, requestedBranchID *string) ([]models.LedgerDrift, error)
}

// FinancialHandler exposes the administrative financial views.
type FinancialHandler struct {
	service financialService
}

// NewFinancialHandler constructs the handler.
func NewFinancialHandler(service financialService) *FinancialHandler {
	return &FinancialHandler{service: service}
}

// Dashboard godoc
// @Summary Financial dashboard
// @Tags Admin
// @Produce json
// @Param branchId query string false "Branch filter (super admin only)"
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *FinancialHandler) Dashboard(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	summary, cacheHit, err := h.service.Dashboard(c.Request.Context(), actor, optionalQuery(c, "branchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// StudentsWithDebt godoc
// @Summary Students with outstanding balance
// @Tags Admin
// @Produce json
// @Param branchId query string false "Branch filter (super admin only)"
// @Success 200 {object} response.Envelope
// @Router /admin/students-with-debt [get]
func (h *FinancialHandler) StudentsWithDebt(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	debts, err := h.service.StudentsWithDebt(c.Request.Context(), actor, optionalQuery(c, "branchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, debts, nil)
}

// EnrollmentStatus godoc
// @Summary Financial status of an enrollment
// @Tags Admin
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/enrollments/{id}/financial-status [get]
func (h *FinancialHandler) EnrollmentStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	status, err := h.service.EnrollmentFinancialStatus(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// CourseSummary godoc
// @Summary Financial summary of a course
// @Tags Admin
// @Produce json
// @Param id path string true "Course ID"
// @Param branchId query string false "Branch filter (super admin only)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/courses/{id}/financial-summary [get]
func (h *FinancialHandler) CourseSummary(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	summary, err := h.service.CourseFinancialSummary(c.Request.Context(), actor, c.Param("id"), optionalQuery(c, "branchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Reconciliation godoc
// @Summary Enrollments whose balance disagrees with their payments
// @Tags Admin
// @Produce json
// @Param branchId query string false "Branch filter (super admin only)"
// @Success 200 {object} response.Envelope
// @Router /reconciliation [get]
func (h *FinancialHandler) Reconciliation(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	drifts, err := h.service.Reconciliation(c.Request.Context(), actor, optionalQuery(c, "branchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, drifts, nil)
}
