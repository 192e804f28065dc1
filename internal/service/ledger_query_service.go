package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/haperez86/EduPay/internal/models"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
)

type financialRepository interface {
	CountActiveStudents(ctx context.Context, branchID *string) (int64, error)
	ActiveEnrollmentTotals(ctx context.Context, branchID *string) (models.EnrollmentTotals, error)
	StudentsWithDebt(ctx context.Context, branchID *string) ([]models.StudentDebt, error)
	CourseTotals(ctx context.Context, courseID string, branchID *string) (*models.CourseTotals, error)
	MonthlyIncome(ctx context.Context, year int, branchID *string) ([]models.MonthlyIncomeRow, error)
	LedgerDrift(ctx context.Context, branchID *string) ([]models.LedgerDrift, error)
}

type enrollmentDetailFinder interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

var monthNames = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthName returns the Spanish month label for a 1-based month number.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// LedgerQueryConfig tunes read side behaviour.
type LedgerQueryConfig struct {
	CacheTTL time.Duration
	// Location decides which calendar year is "current". Defaults to UTC.
	Location *time.Location
}

// LedgerQueryService answers financial questions about the ledger within the caller's scope.
type LedgerQueryService struct {
	financial   financialRepository
	enrollments enrollmentDetailFinder
	cache       dashboardCache
	logger      *zap.Logger
	now         func() time.Time
	cfg         LedgerQueryConfig
}

// NewLedgerQueryService constructs a LedgerQueryService.
func NewLedgerQueryService(financial financialRepository, enrollments enrollmentDetailFinder, cache dashboardCache, cfg LedgerQueryConfig, logger *zap.Logger) *LedgerQueryService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerQueryService{
		financial:   financial,
		enrollments: enrollments,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Dashboard returns headline totals for the scope and reports whether the cache served them.
func (s *LedgerQueryService) Dashboard(ctx context.Context, actor models.Actor, requestedBranchID *string) (*models.DashboardSummary, bool, error) {
	scope, err := ResolveScope(actor, requestedBranchID)
	if err != nil {
		return nil, false, err
	}
	if scope.IsEmpty() {
		return zeroDashboard(), false, nil
	}

	cacheKey := fmt.Sprintf("ledger:dash:%s", scope.CacheKey())
	if s.cache != nil {
		var cached models.DashboardSummary
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.String("key", cacheKey), zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	var (
		students int64
		totals   models.EnrollmentTotals
	)
	branchID := scope.BranchParam()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = s.financial.CountActiveStudents(gctx, branchID)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.financial.ActiveEnrollmentTotals(gctx, branchID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build dashboard")
	}

	summary := &models.DashboardSummary{
		ActiveStudentCount:    students,
		ActiveEnrollmentCount: totals.EnrollmentCount,
		TotalBilled:           totals.TotalBilled,
		TotalPaid:             totals.TotalPaid,
		TotalPending:          totals.TotalBilled.Sub(totals.TotalPaid),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return summary, false, nil
}

func zeroDashboard() *models.DashboardSummary {
	return &models.DashboardSummary{
		TotalBilled:  decimal.Zero,
		TotalPaid:    decimal.Zero,
		TotalPending: decimal.Zero,
	}
}

// StudentsWithDebt lists students with outstanding balances, largest debt first.
func (s *LedgerQueryService) StudentsWithDebt(ctx context.Context, actor models.Actor, requestedBranchID *string) ([]models.StudentDebt, error) {
	scope, err := ResolveScope(actor, requestedBranchID)
	if err != nil {
		return nil, err
	}
	if scope.IsEmpty() {
		return []models.StudentDebt{}, nil
	}
	debts, err := s.financial.StudentsWithDebt(ctx, scope.BranchParam())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students with debt")
	}
	if debts == nil {
		debts = []models.StudentDebt{}
	}
	return debts, nil
}

// EnrollmentFinancialStatus reports the balance of a single enrollment.
func (s *LedgerQueryService) EnrollmentFinancialStatus(ctx context.Context, actor models.Actor, enrollmentID string) (*models.EnrollmentFinancialStatus, error) {
	scope, err := ResolveScope(actor, nil)
	if err != nil {
		return nil, err
	}
	detail, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		return nil, translateStoreError(err, "enrollment not found", "failed to load enrollment")
	}
	if err := authorizeRow(scope, detail.BranchID, "enrollment not found"); err != nil {
		return nil, err
	}
	return &models.EnrollmentFinancialStatus{
		EnrollmentID: detail.ID,
		StudentName:  detail.StudentName,
		CourseName:   detail.CourseName,
		TotalAmount:  detail.TotalAmount,
		PaidAmount:   detail.PaidAmount,
		Balance:      detail.Remaining(),
		Active:       detail.Active,
	}, nil
}

// CourseFinancialSummary totals the enrollments of a course within scope.
func (s *LedgerQueryService) CourseFinancialSummary(ctx context.Context, actor models.Actor, courseID string, requestedBranchID *string) (*models.CourseFinancialSummary, error) {
	scope, err := ResolveScope(actor, requestedBranchID)
	if err != nil {
		return nil, err
	}
	if scope.IsEmpty() {
		return &models.CourseFinancialSummary{
			CourseID:     courseID,
			TotalBilled:  decimal.Zero,
			TotalPaid:    decimal.Zero,
			TotalPending: decimal.Zero,
		}, nil
	}

	totals, err := s.financial.CourseTotals(ctx, courseID, scope.BranchParam())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise course")
	}
	if totals.EnrollmentCount == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "course has no enrollments")
	}

	return &models.CourseFinancialSummary{
		CourseID:        totals.CourseID,
		CourseName:      totals.CourseName,
		TotalBilled:     totals.TotalBilled,
		TotalPaid:       totals.TotalPaid,
		TotalPending:    totals.TotalBilled.Sub(totals.TotalPaid),
		EnrollmentCount: totals.EnrollmentCount,
		Active:          totals.CourseActive,
	}, nil
}

// MonthlyIncomeReport groups income by month of enrollment and branch. A nil year means the current year.
func (s *LedgerQueryService) MonthlyIncomeReport(ctx context.Context, actor models.Actor, year *int, requestedBranchID *string) ([]models.MonthlyIncome, error) {
	scope, err := ResolveScope(actor, requestedBranchID)
	if err != nil {
		return nil, err
	}
	reportYear := s.now().In(s.cfg.Location).Year()
	if year != nil {
		if *year < 1900 || *year > 9999 {
			return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "year is out of range")
		}
		reportYear = *year
	}
	if scope.IsEmpty() {
		return []models.MonthlyIncome{}, nil
	}

	rows, err := s.financial.MonthlyIncome(ctx, reportYear, scope.BranchParam())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build monthly income report")
	}

	report := make([]models.MonthlyIncome, 0, len(rows))
	for _, row := range rows {
		report = append(report, models.MonthlyIncome{
			Month:        MonthName(row.MonthNumber),
			Year:         row.Year,
			MonthNumber:  row.MonthNumber,
			TotalIncome:  row.TotalIncome,
			PaymentCount: row.PaymentCount,
			BranchID:     row.BranchID,
			BranchName:   row.BranchName,
			TotalSales:   row.TotalSales,
			TotalPaid:    row.TotalPaid,
			TotalPending: row.TotalSales.Sub(row.TotalPaid),
		})
	}
	return report, nil
}

// Reconciliation lists enrollments in scope whose running balance disagrees with their confirmed payments.
func (s *LedgerQueryService) Reconciliation(ctx context.Context, actor models.Actor, requestedBranchID *string) ([]models.LedgerDrift, error) {
	scope, err := ResolveScope(actor, requestedBranchID)
	if err != nil {
		return nil, err
	}
	if scope.IsEmpty() {
		return []models.LedgerDrift{}, nil
	}
	drifts, err := s.financial.LedgerDrift(ctx, scope.BranchParam())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile ledger")
	}
	if drifts == nil {
		drifts = []models.LedgerDrift{}
	}
	return drifts, nil
}
