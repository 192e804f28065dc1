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

type paymentService interface {
	RegisterPayment(ctx context.Context, actor models.Actor, req service.RegisterPaymentRequest) (*service.PaymentView, error)
	CancelPayment(ctx context.Context, actor models.Actor, paymentID string) error
	ListPayments(ctx context.Context, actor models.Actor, requestedBranchID *string) ([]service.PaymentView, error)
	ListEnrollmentPayments(ctx context.Context, actor models.Actor, enrollmentID string) ([]service.PaymentView, error)
	ListPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error)
}

type incomeReportService interface {
	MonthlyIncomeReport(ctx context.Context, actor models.Actor, year *int, requestedBranchID *string) ([]models.MonthlyIncome, error)
}

type incomeExporter interface {
	ExportMonthlyIncome(ctx context.Context, actor models.Actor, year *int, requestedBranchID *string, format service.ExportFormat) (*service.ExportResult, error)
}

// PaymentHandler exposes payment endpoints.
type PaymentHandler struct {
	payments paymentService
	reports  incomeReportService
	exports  incomeExporter
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments paymentService, reports incomeReportService, exports incomeExporter) *PaymentHandler {
	return &PaymentHandler{payments: payments, reports: reports, exports: exports}
}

// Register godoc
// @Summary Register a payment
// @Description ABONO adds a partial amount; PAGO_TOTAL settles the remaining balance regardless of the amount sent.
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.RegisterPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Register(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	payment, err := h.payments.RegisterPayment(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Cancel godoc
// @Summary Void a payment
// @Tags Payments
// @Param id path string true "Payment ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/{id} [delete]
func (h *PaymentHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.payments.CancelPayment(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param branchId query string false "Branch filter (super admin only)"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	payments, err := h.payments.ListPayments(c.Request.Context(), actor, optionalQuery(c, "branchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// ListByEnrollment godoc
// @Summary Payment history of an enrollment
// @Tags Payments
// @Produce json
// @Param enrollmentId path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/enrollment/{enrollmentId} [get]
func (h *PaymentHandler) ListByEnrollment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	payments, err := h.payments.ListEnrollmentPayments(c.Request.Context(), actor, c.Param("enrollmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// Methods godoc
// @Summary List active payment methods
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payment-methods [get]
func (h *PaymentHandler) Methods(c *gin.Context) {
	methods, err := h.payments.ListPaymentMethods(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, methods, nil)
}

// MonthlyIncome godoc
// @Summary Monthly income report
// @Tags Reports
// @Produce json
// @Param year query int false "Year, defaults to the current year"
// @Param branchId query string false "Branch filter (super admin only)"
// @Success 200 {object} response.Envelope
// @Router /payments/monthly-income [get]
func (h *PaymentHandler) MonthlyIncome(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	year, err := optionalYear(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.reports.MonthlyIncomeReport(c.Request.Context(), actor, year, optionalQuery(c, "branchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ExportMonthlyIncome godoc
// @Summary Download the monthly income report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Param year query int false "Year, defaults to the current year"
// @Param branchId query string false "Branch filter (super admin only)"
// @Success 200 {file} file
// @Router /payments/monthly-income/export [get]
func (h *PaymentHandler) ExportMonthlyIncome(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	year, err := optionalYear(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exports.ExportMonthlyIncome(c.Request.Context(), actor, year, optionalQuery(c, "branchId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
