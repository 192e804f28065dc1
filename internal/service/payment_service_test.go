package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haperez86/EduPay/internal/models"
	"github.com/haperez86/EduPay/internal/repository"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

// fakeLedger serialises transactions with a mutex and restores state on failure.
type fakeLedger struct {
	mu          sync.Mutex
	enrollments map[string]models.Enrollment
	payments    map[string]models.Payment
	methods     map[string]models.PaymentMethod
	insertErr   error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		enrollments: map[string]models.Enrollment{},
		payments:    map[string]models.Payment{},
		methods: map[string]models.PaymentMethod{
			"pm-cash": {ID: "pm-cash", Name: "Efectivo", Active: true},
			"pm-old":  {ID: "pm-old", Name: "Cheque", Active: false},
		},
	}
}

func (f *fakeLedger) addEnrollment(id, branch string, total int64) {
	e := models.Enrollment{
		ID:          id,
		StudentID:   "stu-" + id,
		CourseID:    "course-1",
		Status:      models.EnrollmentStatusActive,
		TotalAmount: decimal.NewFromInt(total),
		PaidAmount:  decimal.Zero,
		Active:      true,
	}
	if branch != "" {
		e.BranchID = strPtr(branch)
	}
	f.enrollments[id] = e
}

func (f *fakeLedger) paid(id string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enrollments[id].PaidAmount
}

func (f *fakeLedger) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	enrollments := make(map[string]models.Enrollment, len(f.enrollments))
	for k, v := range f.enrollments {
		enrollments[k] = v
	}
	payments := make(map[string]models.Payment, len(f.payments))
	for k, v := range f.payments {
		payments[k] = v
	}

	if err := fn(ctx, &fakeLedgerTx{f: f}); err != nil {
		f.enrollments = enrollments
		f.payments = payments
		return err
	}
	return nil
}

func (f *fakeLedger) List(ctx context.Context, branchID *string) ([]models.PaymentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentDetail
	for _, p := range f.payments {
		if branchID != nil && (p.BranchID == nil || *p.BranchID != *branchID) {
			continue
		}
		out = append(out, models.PaymentDetail{Payment: p, PaymentMethodName: f.methods[p.PaymentMethodID].Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLedger) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.PaymentDetail, error) {
	all, _ := f.List(ctx, nil)
	var out []models.PaymentDetail
	for _, p := range all {
		if p.EnrollmentID == enrollmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListActiveMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	var out []models.PaymentMethod
	for _, m := range f.methods {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeLedger) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

type fakeLedgerTx struct {
	f *fakeLedger
}

func (t *fakeLedgerTx) LockEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	e, ok := t.f.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (t *fakeLedgerTx) LockPayment(ctx context.Context, id string) (*models.Payment, error) {
	p, ok := t.f.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (t *fakeLedgerTx) FindPaymentMethod(ctx context.Context, id string) (*models.PaymentMethod, error) {
	m, ok := t.f.methods[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &m, nil
}

func (t *fakeLedgerTx) UpdatePaidAmount(ctx context.Context, enrollmentID string, paid decimal.Decimal) error {
	e := t.f.enrollments[enrollmentID]
	e.PaidAmount = paid
	t.f.enrollments[enrollmentID] = e
	return nil
}

func (t *fakeLedgerTx) InsertPayment(ctx context.Context, payment *models.Payment) error {
	if t.f.insertErr != nil {
		return t.f.insertErr
	}
	payment.ID = uuid.NewString()
	t.f.payments[payment.ID] = *payment
	return nil
}

func (t *fakeLedgerTx) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	p := t.f.payments[id]
	p.Status = status
	t.f.payments[id] = p
	return nil
}

type countingInvalidator struct {
	mu       sync.Mutex
	patterns []string
}

func (c *countingInvalidator) Invalidate(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
	return nil
}

func newPaymentServiceForTest(ledger *fakeLedger, cache cacheInvalidator) *PaymentService {
	return NewPaymentService(ledger, ledger, ledger, cache, nil, nil, zap.NewNop())
}

var (
	superAdmin  = models.Actor{UserID: "root", Role: models.RoleSuperAdmin}
	northAdmin  = models.Actor{UserID: "adm-n", Role: models.RoleAdmin, BranchID: strPtr("north")}
	orphanAdmin = models.Actor{UserID: "adm-x", Role: models.RoleAdmin}
	student     = models.Actor{UserID: "stu", Role: models.RoleStudent}
)

func abono(enrollmentID string, amount int64) RegisterPaymentRequest {
	return RegisterPaymentRequest{EnrollmentID: enrollmentID, Amount: decimal.NewFromInt(amount), Type: models.PaymentTypeAbono, PaymentMethodID: "pm-cash"}
}

func pagoTotal(enrollmentID string, amount int64) RegisterPaymentRequest {
	return RegisterPaymentRequest{EnrollmentID: enrollmentID, Amount: decimal.NewFromInt(amount), Type: models.PaymentTypePagoTotal, PaymentMethodID: "pm-cash"}
}

func assertCode(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want.Code, appErrors.FromError(err).Code, err.Error())
}

func TestPaymentServiceWorkedExample(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-1", "north", 500000)
	cache := &countingInvalidator{}
	svc := newPaymentServiceForTest(ledger, cache)
	ctx := context.Background()

	first, err := svc.RegisterPayment(ctx, northAdmin, abono("enr-1", 200000))
	require.NoError(t, err)
	assert.True(t, ledger.paid("enr-1").Equal(decimal.NewFromInt(200000)))
	assert.Equal(t, models.PaymentStatusConfirmed, first.Status)
	assert.Equal(t, "Efectivo", first.PaymentMethodName)
	require.NotNil(t, first.BranchID)
	assert.Equal(t, "north", *first.BranchID)

	second, err := svc.RegisterPayment(ctx, northAdmin, pagoTotal("enr-1", 1))
	require.NoError(t, err)
	assert.True(t, second.Amount.Equal(decimal.NewFromInt(300000)))
	assert.True(t, ledger.paid("enr-1").Equal(decimal.NewFromInt(500000)))

	require.NoError(t, svc.CancelPayment(ctx, northAdmin, first.ID))
	assert.True(t, ledger.paid("enr-1").Equal(decimal.NewFromInt(300000)))

	require.NoError(t, svc.CancelPayment(ctx, superAdmin, second.ID))
	assert.True(t, ledger.paid("enr-1").IsZero())

	assert.Len(t, cache.patterns, 4)
	assert.Equal(t, dashboardCachePattern, cache.patterns[0])
}

func TestPaymentServicePagoTotalIgnoresAmount(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-1", "north", 750000)
	svc := newPaymentServiceForTest(ledger, nil)

	view, err := svc.RegisterPayment(context.Background(), superAdmin, pagoTotal("enr-1", 99999999))
	require.NoError(t, err)
	assert.True(t, view.Amount.Equal(decimal.NewFromInt(750000)))
	assert.True(t, ledger.paid("enr-1").Equal(decimal.NewFromInt(750000)))

	_, err = svc.RegisterPayment(context.Background(), superAdmin, pagoTotal("enr-1", 1))
	assertCode(t, err, appErrors.ErrInvalidState)
}

func TestPaymentServiceAbonoOverdraftLeavesStateUnchanged(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-1", "north", 500000)
	svc := newPaymentServiceForTest(ledger, nil)
	ctx := context.Background()

	_, err := svc.RegisterPayment(ctx, northAdmin, abono("enr-1", 400000))
	require.NoError(t, err)

	_, err = svc.RegisterPayment(ctx, northAdmin, abono("enr-1", 100001))
	assertCode(t, err, appErrors.ErrInvalidArgument)
	assert.True(t, ledger.paid("enr-1").Equal(decimal.NewFromInt(400000)))
	assert.Len(t, ledger.payments, 1)
}

func TestPaymentServiceRejectsInvalidAmounts(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-1", "north", 500000)
	svc := newPaymentServiceForTest(ledger, nil)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5), decimal.RequireFromString("10.005")} {
		req := abono("enr-1", 0)
		req.Amount = amount
		_, err := svc.RegisterPayment(context.Background(), northAdmin, req)
		assertCode(t, err, appErrors.ErrInvalidArgument)
	}

	req := pagoTotal("enr-1", 0)
	_, err := svc.RegisterPayment(context.Background(), northAdmin, req)
	assertCode(t, err, appErrors.ErrInvalidArgument)
	assert.True(t, ledger.paid("enr-1").IsZero())
}

func TestPaymentServiceRejectsMalformedPayload(t *testing.T) {
	svc := newPaymentServiceForTest(newFakeLedger(), nil)
	req := abono("", 100)
	req.Type = "CUOTA"

	_, err := svc.RegisterPayment(context.Background(), superAdmin, req)
	assertCode(t, err, appErrors.ErrValidation)
}

func TestPaymentServiceRegisterLookupFailures(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-1", "north", 500000)
	ledger.addEnrollment("enr-done", "north", 500000)
	done := ledger.enrollments["enr-done"]
	done.Status = models.EnrollmentStatusCompleted
	ledger.enrollments["enr-done"] = done
	ledger.addEnrollment("enr-off", "north", 500000)
	off := ledger.enrollments["enr-off"]
	off.Active = false
	ledger.enrollments["enr-off"] = off
	ledger.addEnrollment("enr-south", "south", 500000)
	svc := newPaymentServiceForTest(ledger, nil)
	ctx := context.Background()

	_, err := svc.RegisterPayment(ctx, northAdmin, abono("missing", 100))
	assertCode(t, err, appErrors.ErrNotFound)

	_, err = svc.RegisterPayment(ctx, northAdmin, abono("enr-done", 100))
	assertCode(t, err, appErrors.ErrInvalidState)

	_, err = svc.RegisterPayment(ctx, northAdmin, abono("enr-off", 100))
	assertCode(t, err, appErrors.ErrInvalidState)

	_, err = svc.RegisterPayment(ctx, northAdmin, abono("enr-south", 100))
	assertCode(t, err, appErrors.ErrForbidden)

	req := abono("enr-1", 100)
	req.PaymentMethodID = "pm-404"
	_, err = svc.RegisterPayment(ctx, northAdmin, req)
	assertCode(t, err, appErrors.ErrNotFound)

	req.PaymentMethodID = "pm-old"
	_, err = svc.RegisterPayment(ctx, northAdmin, req)
	assertCode(t, err, appErrors.ErrInvalidState)

	assert.Empty(t, ledger.payments)
}

func TestPaymentServiceUnknownMethodReportedBeforeEnrollmentState(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-done", "north", 500000)
	done := ledger.enrollments["enr-done"]
	done.Status = models.EnrollmentStatusCompleted
	ledger.enrollments["enr-done"] = done
	svc := newPaymentServiceForTest(ledger, nil)

	req := abono("enr-done", 100)
	req.PaymentMethodID = "pm-404"
	_, err := svc.RegisterPayment(context.Background(), northAdmin, req)
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestPaymentServiceWriteScopeRules(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-1", "north", 500000)
	svc := newPaymentServiceForTest(ledger, nil)
	ctx := context.Background()

	_, err := svc.RegisterPayment(ctx, student, abono("enr-1", 100))
	assertCode(t, err, appErrors.ErrForbidden)

	_, err = svc.RegisterPayment(ctx, orphanAdmin, abono("enr-1", 100))
	assertCode(t, err, appErrors.ErrForbidden)

	assert.Error(t, svc.CancelPayment(ctx, student, "any"))
}

func TestPaymentServiceRollsBackWhenInsertFails(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-1", "north", 500000)
	ledger.insertErr = errors.New("disk full")
	svc := newPaymentServiceForTest(ledger, nil)

	_, err := svc.RegisterPayment(context.Background(), northAdmin, abono("enr-1", 1000))
	assertCode(t, err, appErrors.ErrInternal)
	assert.True(t, ledger.paid("enr-1").IsZero())
}

func TestPaymentServiceDoubleVoidRejected(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-1", "north", 500000)
	svc := newPaymentServiceForTest(ledger, nil)
	ctx := context.Background()

	view, err := svc.RegisterPayment(ctx, northAdmin, abono("enr-1", 200000))
	require.NoError(t, err)
	require.NoError(t, svc.CancelPayment(ctx, northAdmin, view.ID))
	assert.True(t, ledger.paid("enr-1").IsZero())

	err = svc.CancelPayment(ctx, northAdmin, view.ID)
	assertCode(t, err, appErrors.ErrInvalidState)
	assert.True(t, ledger.paid("enr-1").IsZero())
	assert.Equal(t, models.PaymentStatusVoided, ledger.payments[view.ID].Status)
}

func TestPaymentServiceVoidClampsAtZero(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-1", "north", 500000)
	svc := newPaymentServiceForTest(ledger, nil)
	ctx := context.Background()

	view, err := svc.RegisterPayment(ctx, northAdmin, abono("enr-1", 200000))
	require.NoError(t, err)

	drifted := ledger.enrollments["enr-1"]
	drifted.PaidAmount = decimal.NewFromInt(50000)
	ledger.enrollments["enr-1"] = drifted

	require.NoError(t, svc.CancelPayment(ctx, northAdmin, view.ID))
	assert.True(t, ledger.paid("enr-1").IsZero())
}

func TestPaymentServiceCancelScopeAndMissing(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-s", "south", 500000)
	svc := newPaymentServiceForTest(ledger, nil)
	ctx := context.Background()

	view, err := svc.RegisterPayment(ctx, superAdmin, abono("enr-s", 1000))
	require.NoError(t, err)

	assertCode(t, svc.CancelPayment(ctx, northAdmin, view.ID), appErrors.ErrForbidden)
	assertCode(t, svc.CancelPayment(ctx, northAdmin, "pay-404"), appErrors.ErrNotFound)
	assert.True(t, ledger.paid("enr-s").Equal(decimal.NewFromInt(1000)))
}

func TestPaymentServiceConcurrentAbonosNeverOverdraw(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-1", "north", 500000)
	svc := newPaymentServiceForTest(ledger, nil)

	const workers = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RegisterPayment(context.Background(), northAdmin, abono("enr-1", 100000))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.Equal(t, appErrors.ErrInvalidArgument.Code, appErrors.FromError(err).Code)
				rejected++
				return
			}
			succeeded++
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, workers-5, rejected)
	assert.True(t, ledger.paid("enr-1").Equal(decimal.NewFromInt(500000)))
}

func TestPaymentServiceBalanceBoundsAcrossSequence(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-1", "north", 300000)
	svc := newPaymentServiceForTest(ledger, nil)
	ctx := context.Background()
	total := decimal.NewFromInt(300000)

	var ids []string
	steps := []RegisterPaymentRequest{abono("enr-1", 50000), abono("enr-1", 400000), abono("enr-1", 100000), pagoTotal("enr-1", 5), abono("enr-1", 1)}
	for i, req := range steps {
		if view, err := svc.RegisterPayment(ctx, northAdmin, req); err == nil {
			ids = append(ids, view.ID)
		}
		if i == 2 && len(ids) > 0 {
			_ = svc.CancelPayment(ctx, northAdmin, ids[0])
		}
		paid := ledger.paid("enr-1")
		assert.False(t, paid.IsNegative())
		assert.True(t, paid.LessThanOrEqual(total))
	}
	assert.True(t, ledger.paid("enr-1").Equal(total))
}

func TestPaymentServiceListingsRespectScope(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addEnrollment("enr-n", "north", 500000)
	ledger.addEnrollment("enr-s", "south", 500000)
	svc := newPaymentServiceForTest(ledger, nil)
	ctx := context.Background()

	_, err := svc.RegisterPayment(ctx, superAdmin, abono("enr-n", 1000))
	require.NoError(t, err)
	_, err = svc.RegisterPayment(ctx, superAdmin, abono("enr-s", 2000))
	require.NoError(t, err)

	all, err := svc.ListPayments(ctx, superAdmin, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	north, err := svc.ListPayments(ctx, northAdmin, strPtr("south"))
	require.NoError(t, err)
	require.Len(t, north, 1)
	assert.Equal(t, "enr-n", north[0].EnrollmentID)

	none, err := svc.ListPayments(ctx, orphanAdmin, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	history, err := svc.ListEnrollmentPayments(ctx, northAdmin, "enr-n")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = svc.ListEnrollmentPayments(ctx, northAdmin, "enr-s")
	assertCode(t, err, appErrors.ErrForbidden)

	_, err = svc.ListEnrollmentPayments(ctx, orphanAdmin, "enr-s")
	assertCode(t, err, appErrors.ErrNotFound)

	methods, err := svc.ListPaymentMethods(ctx)
	require.NoError(t, err)
	assert.Len(t, methods, 1)
}
