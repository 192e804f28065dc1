package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType distinguishes partial payments from full settlements.
type PaymentType string

const (
	PaymentTypeAbono     PaymentType = "ABONO"
	PaymentTypePagoTotal PaymentType = "PAGO_TOTAL"
)

// Valid reports whether the type is known.
func (t PaymentType) Valid() bool {
	return t == PaymentTypeAbono || t == PaymentTypePagoTotal
}

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusConfirmed PaymentStatus = "CONFIRMADO"
	PaymentStatusVoided    PaymentStatus = "ANULADO"
)

// Payment is an append-only record of money received against an enrollment.
type Payment struct {
	ID                   string          `db:"id" json:"id"`
	EnrollmentID         string          `db:"enrollment_id" json:"enrollment_id"`
	BranchID             *string         `db:"branch_id" json:"branch_id,omitempty"`
	Amount               decimal.Decimal `db:"amount" json:"amount"`
	PaymentDate          time.Time       `db:"payment_date" json:"payment_date"`
	Type                 PaymentType     `db:"type" json:"type"`
	Status               PaymentStatus   `db:"status" json:"status"`
	PaymentMethodID      string          `db:"payment_method_id" json:"payment_method_id"`
	TransactionReference *string         `db:"transaction_reference" json:"transaction_reference,omitempty"`
	Notes                *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentDetail carries the payment method display name.
type PaymentDetail struct {
	Payment
	PaymentMethodName string `db:"payment_method_name" json:"payment_method_name"`
}

// PaymentMethod is a configured way of receiving money.
type PaymentMethod struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}
