package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/haperez86/EduPay/internal/models"
	"github.com/haperez86/EduPay/internal/repository"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

type ledgerStore interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error
}

type paymentReader interface {
	List(ctx context.Context, branchID *string) ([]models.PaymentDetail, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.PaymentDetail, error)
	ListActiveMethods(ctx context.Context) ([]models.PaymentMethod, error)
}

type enrollmentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// RegisterPaymentRequest describes a payment against an enrollment.
type RegisterPaymentRequest struct {
	EnrollmentID         string             `json:"enrollment_id" validate:"required"`
	Amount               decimal.Decimal    `json:"amount"`
	Type                 models.PaymentType `json:"type" validate:"required,oneof=ABONO PAGO_TOTAL"`
	PaymentMethodID      string             `json:"payment_method_id" validate:"required"`
	TransactionReference *string            `json:"transaction_reference,omitempty" validate:"omitempty,max=100"`
	Notes                *string            `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// PaymentView is the payment representation returned to callers.
type PaymentView struct {
	ID                   string               `json:"id"`
	Amount               decimal.Decimal      `json:"amount"`
	PaymentDate          time.Time            `json:"payment_date"`
	Type                 models.PaymentType   `json:"type"`
	Status               models.PaymentStatus `json:"status"`
	EnrollmentID         string               `json:"enrollment_id"`
	BranchID             *string              `json:"branch_id,omitempty"`
	PaymentMethodID      string               `json:"payment_method_id"`
	PaymentMethodName    string               `json:"payment_method_name"`
	TransactionReference *string              `json:"transaction_reference,omitempty"`
	Notes                *string              `json:"notes,omitempty"`
}

func newPaymentView(p models.Payment, methodName string) PaymentView {
	return PaymentView{
		ID:                   p.ID,
		Amount:               p.Amount,
		PaymentDate:          p.PaymentDate,
		Type:                 p.Type,
		Status:               p.Status,
		EnrollmentID:         p.EnrollmentID,
		BranchID:             p.BranchID,
		PaymentMethodID:      p.PaymentMethodID,
		PaymentMethodName:    methodName,
		TransactionReference: p.TransactionReference,
		Notes:                p.Notes,
	}
}

// dashboardCachePattern matches every cached dashboard scope.
const dashboardCachePattern = "ledger:dash:*"

// PaymentService applies and reverses payments against enrollment balances.
type PaymentService struct {
	ledger      ledgerStore
	payments    paymentReader
	enrollments enrollmentFinder
	cache       cacheInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(ledger ledgerStore, payments paymentReader, enrollments enrollmentFinder, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		ledger:      ledger,
		payments:    payments,
		enrollments: enrollments,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// RegisterPayment records a payment and advances the enrollment balance in one transaction.
// PAGO_TOTAL always settles exactly the outstanding balance; the supplied amount only has to be positive.
func (s *PaymentService) RegisterPayment(ctx context.Context, actor models.Actor, req RegisterPaymentRequest) (*PaymentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	scope, err := resolveWriteScope(actor)
	if err != nil {
		return nil, err
	}

	var view PaymentView
	err = s.ledger.RunInTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		enrollment, err := tx.LockEnrollment(ctx, req.EnrollmentID)
		if err != nil {
			return translateStoreError(err, "enrollment not found", "failed to load enrollment")
		}
		if !scope.Allows(enrollment.BranchID) {
			return appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another branch")
		}
		method, err := tx.FindPaymentMethod(ctx, req.PaymentMethodID)
		if err != nil {
			return translateStoreError(err, "payment method not found", "failed to load payment method")
		}
		if !enrollment.Payable() {
			return appErrors.Clone(appErrors.ErrInvalidState, "enrollment is not active")
		}
		if !method.Active {
			return appErrors.Clone(appErrors.ErrInvalidState, "payment method is inactive")
		}

		settled, err := settledAmount(enrollment, req.Type, req.Amount)
		if err != nil {
			return err
		}

		if err := tx.UpdatePaidAmount(ctx, enrollment.ID, enrollment.PaidAmount.Add(settled)); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment balance")
		}
		payment := models.Payment{
			EnrollmentID:         enrollment.ID,
			BranchID:             enrollment.BranchID,
			Amount:               settled,
			PaymentDate:          s.now().UTC(),
			Type:                 req.Type,
			Status:               models.PaymentStatusConfirmed,
			PaymentMethodID:      method.ID,
			TransactionReference: req.TransactionReference,
			Notes:                req.Notes,
		}
		if err := tx.InsertPayment(ctx, &payment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
		}
		view = newPaymentView(payment, method.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx)
	s.metrics.RecordPaymentRegistered(view.Type, view.Amount)
	s.logger.Info("payment registered",
		zap.String("payment_id", view.ID),
		zap.String("enrollment_id", view.EnrollmentID),
		zap.String("type", string(view.Type)),
		zap.String("amount", view.Amount.StringFixed(2)),
		zap.String("actor_id", actor.UserID),
	)
	return &view, nil
}

// CancelPayment voids a confirmed payment and reverses its effect on the balance.
func (s *PaymentService) CancelPayment(ctx context.Context, actor models.Actor, paymentID string) error {
	scope, err := resolveWriteScope(actor)
	if err != nil {
		return err
	}

	var voided models.Payment
	err = s.ledger.RunInTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		payment, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			return translateStoreError(err, "payment not found", "failed to load payment")
		}
		if !scope.Allows(payment.BranchID) {
			return appErrors.Clone(appErrors.ErrForbidden, "payment belongs to another branch")
		}
		if payment.Status == models.PaymentStatusVoided {
			return appErrors.Clone(appErrors.ErrInvalidState, "payment already voided")
		}

		enrollment, err := tx.LockEnrollment(ctx, payment.EnrollmentID)
		if err != nil {
			return translateStoreError(err, "enrollment not found", "failed to load enrollment")
		}
		newPaid := enrollment.PaidAmount.Sub(payment.Amount)
		if newPaid.IsNegative() {
			s.logger.Warn("void would underflow paid amount, clamping to zero",
				zap.String("payment_id", payment.ID),
				zap.String("enrollment_id", enrollment.ID),
			)
			newPaid = decimal.Zero
		}

		if err := tx.UpdatePaidAmount(ctx, enrollment.ID, newPaid); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment balance")
		}
		if err := tx.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusVoided); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to void payment")
		}
		voided = *payment
		return nil
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx)
	s.metrics.RecordPaymentVoided(voided.Amount)
	s.logger.Info("payment voided",
		zap.String("payment_id", voided.ID),
		zap.String("enrollment_id", voided.EnrollmentID),
		zap.String("actor_id", actor.UserID),
	)
	return nil
}

// ListPayments returns the payments visible to the actor, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, actor models.Actor, requestedBranchID *string) ([]PaymentView, error) {
	scope, err := ResolveScope(actor, requestedBranchID)
	if err != nil {
		return nil, err
	}
	if scope.IsEmpty() {
		return []PaymentView{}, nil
	}
	payments, err := s.payments.List(ctx, scope.BranchParam())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return toPaymentViews(payments), nil
}

// ListEnrollmentPayments returns the payment history of one enrollment.
func (s *PaymentService) ListEnrollmentPayments(ctx context.Context, actor models.Actor, enrollmentID string) ([]PaymentView, error) {
	scope, err := ResolveScope(actor, nil)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, translateStoreError(err, "enrollment not found", "failed to load enrollment")
	}
	if err := authorizeRow(scope, enrollment.BranchID, "enrollment not found"); err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollment payments")
	}
	return toPaymentViews(payments), nil
}

// ListPaymentMethods returns the methods that accept payments.
func (s *PaymentService) ListPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	methods, err := s.payments.ListActiveMethods(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payment methods")
	}
	return methods, nil
}

func (s *PaymentService) afterMutation(ctx context.Context) {
	invalidateDashboards(ctx, s.cache, s.logger)
}

// invalidateDashboards drops every cached dashboard scope. Failures are logged, never returned.
func invalidateDashboards(ctx context.Context, cache cacheInvalidator, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

// settledAmount decides how much a payment moves the balance.
func settledAmount(enrollment *models.Enrollment, paymentType models.PaymentType, amount decimal.Decimal) (decimal.Decimal, error) {
	remaining := enrollment.Remaining()
	switch paymentType {
	case models.PaymentTypePagoTotal:
		if !remaining.IsPositive() {
			return decimal.Zero, appErrors.Clone(appErrors.ErrInvalidState, "enrollment already settled")
		}
		return remaining, nil
	case models.PaymentTypeAbono:
		if amount.GreaterThan(remaining) {
			return decimal.Zero, appErrors.Clone(appErrors.ErrInvalidArgument, "payment exceeds pending balance")
		}
		return amount, nil
	default:
		return decimal.Zero, appErrors.Clone(appErrors.ErrInvalidArgument, "unknown payment type")
	}
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return appErrors.Clone(appErrors.ErrInvalidArgument, "amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return appErrors.Clone(appErrors.ErrInvalidArgument, "amount supports at most two decimal places")
	}
	return nil
}

func toPaymentViews(payments []models.PaymentDetail) []PaymentView {
	views := make([]PaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, newPaymentView(p.Payment, p.PaymentMethodName))
	}
	return views
}

// translateStoreError maps a missing row to NotFound and anything else to an internal error.
func translateStoreError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
