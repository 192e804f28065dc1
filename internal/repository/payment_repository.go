package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/haperez86/EduPay/internal/models"
)

// PaymentRepository reads payment history.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentDetailSelect = `SELECT p.id, p.enrollment_id, p.branch_id, p.amount, p.payment_date, p.type, p.status,
        p.payment_method_id, p.transaction_reference, p.notes, p.created_at, p.updated_at,
        pm.name AS payment_method_name
        FROM payments p
        JOIN payment_methods pm ON pm.id = p.payment_method_id`

// List returns payments newest first. A nil branchID lists every branch.
func (r *PaymentRepository) List(ctx context.Context, branchID *string) ([]models.PaymentDetail, error) {
	query := paymentDetailSelect
	var args []interface{}
	if branchID != nil {
		query += " WHERE p.branch_id = $1"
		args = append(args, *branchID)
	}
	query += " ORDER BY p.payment_date DESC"

	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// ListByEnrollment returns the payment history of an enrollment.
func (r *PaymentRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.PaymentDetail, error) {
	query := paymentDetailSelect + " WHERE p.enrollment_id = $1 ORDER BY p.payment_date DESC"
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment payments: %w", err)
	}
	return payments, nil
}

// FindDetailByID returns a payment with its method name.
func (r *PaymentRepository) FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	query := paymentDetailSelect + " WHERE p.id = $1"
	var payment models.PaymentDetail
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListActiveMethods returns configured payment methods that accept payments.
func (r *PaymentRepository) ListActiveMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	const query = `SELECT id, name, active FROM payment_methods WHERE active = TRUE ORDER BY name`
	var methods []models.PaymentMethod
	if err := r.db.SelectContext(ctx, &methods, query); err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return methods, nil
}
