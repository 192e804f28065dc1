package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/haperez86/EduPay/internal/models"
)

// LedgerTx exposes the row level operations allowed inside a ledger transaction.
type LedgerTx interface {
	LockEnrollment(ctx context.Context, id string) (*models.Enrollment, error)
	LockPayment(ctx context.Context, id string) (*models.Payment, error)
	FindPaymentMethod(ctx context.Context, id string) (*models.PaymentMethod, error)
	UpdatePaidAmount(ctx context.Context, enrollmentID string, paid decimal.Decimal) error
	InsertPayment(ctx context.Context, payment *models.Payment) error
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

// LedgerRepository runs balance mutating work atomically.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs the repository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// RunInTx executes fn inside a transaction, committing only when fn succeeds.
func (r *LedgerRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &ledgerTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

type ledgerTx struct {
	tx *sqlx.Tx
}

const enrollmentColumns = `id, student_id, course_id, branch_id, enrollment_date, status, total_amount, paid_amount, active, created_at, updated_at`

const paymentColumns = `id, enrollment_id, branch_id, amount, payment_date, type, status, payment_method_id, transaction_reference, notes, created_at, updated_at`

func (t *ledgerTx) LockEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1 FOR UPDATE`
	var enrollment models.Enrollment
	if err := t.tx.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (t *ledgerTx) LockPayment(ctx context.Context, id string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	var payment models.Payment
	if err := t.tx.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (t *ledgerTx) FindPaymentMethod(ctx context.Context, id string) (*models.PaymentMethod, error) {
	const query = `SELECT id, name, active FROM payment_methods WHERE id = $1`
	var method models.PaymentMethod
	if err := t.tx.GetContext(ctx, &method, query, id); err != nil {
		return nil, err
	}
	return &method, nil
}

func (t *ledgerTx) UpdatePaidAmount(ctx context.Context, enrollmentID string, paid decimal.Decimal) error {
	const query = `UPDATE enrollments SET paid_amount = $1, updated_at = $2 WHERE id = $3`
	if _, err := t.tx.ExecContext(ctx, query, paid, time.Now().UTC(), enrollmentID); err != nil {
		return fmt.Errorf("update paid amount: %w", err)
	}
	return nil
}

func (t *ledgerTx) InsertPayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = now
	}
	payment.CreatedAt = now
	payment.UpdatedAt = now
	query := `INSERT INTO payments (` + paymentColumns + `)
VALUES (:id, :enrollment_id, :branch_id, :amount, :payment_date, :type, :status, :payment_method_id, :transaction_reference, :notes, :created_at, :updated_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (t *ledgerTx) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	const query = `UPDATE payments SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := t.tx.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}
