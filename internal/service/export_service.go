package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/haperez86/EduPay/internal/models"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
	"github.com/haperez86/EduPay/pkg/export"
)

// ExportFormat enumerates the supported report encodings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat normalises a user supplied format, defaulting to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(ExportFormatCSV):
		return ExportFormatCSV, nil
	case string(ExportFormatPDF):
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrInvalidArgument, "format must be csv or pdf")
	}
}

type incomeReporter interface {
	MonthlyIncomeReport(ctx context.Context, actor models.Actor, year *int, requestedBranchID *string) ([]models.MonthlyIncome, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered report ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

const (
	colMonth   = "Mes"
	colYear    = "Año"
	colBranch  = "Sede"
	colIncome  = "Ingresos"
	colCount   = "Pagos"
	colSales   = "Ventas"
	colPaid    = "Pagado"
	colPending = "Pendiente"
)

var incomeHeaders = []string{colMonth, colYear, colBranch, colIncome, colCount, colSales, colPaid, colPending}

// ExportService renders ledger reports into downloadable documents.
type ExportService struct {
	reports incomeReporter
	csv     csvRenderer
	pdf     pdfRenderer
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to pkg/export defaults.
func NewExportService(reports incomeReporter, csv csvRenderer, pdf pdfRenderer, loc *time.Location, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(colIncome, colCount, colSales, colPaid, colPending)
	}
	return &ExportService{reports: reports, csv: csv, pdf: pdf, logger: logger, location: loc, now: time.Now}
}

// ExportMonthlyIncome renders the monthly income report visible to the actor.
func (s *ExportService) ExportMonthlyIncome(ctx context.Context, actor models.Actor, year *int, requestedBranchID *string, format ExportFormat) (*ExportResult, error) {
	rows, err := s.reports.MonthlyIncomeReport(ctx, actor, year, requestedBranchID)
	if err != nil {
		return nil, err
	}

	reportYear := s.now().In(s.location).Year()
	if year != nil {
		reportYear = *year
	}
	dataset := buildIncomeDataset(rows)
	title := fmt.Sprintf("Ingresos mensuales %d", reportYear)

	var (
		body        []byte
		contentType string
	)
	switch format {
	case ExportFormatCSV:
		body, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		body, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "format must be csv or pdf")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	s.logger.Info("monthly income exported",
		zap.String("actor_id", actor.UserID),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)),
	)
	return &ExportResult{
		Filename:    buildFilename("ingresos_mensuales", strconv.Itoa(reportYear), requestedBranchID, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func buildIncomeDataset(rows []models.MonthlyIncome) export.Dataset {
	dataset := export.Dataset{Headers: incomeHeaders}
	income, sales, paid, pending := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	var payments int64
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			colMonth:   row.Month,
			colYear:    strconv.Itoa(row.Year),
			colBranch:  row.BranchName,
			colIncome:  row.TotalIncome.StringFixed(2),
			colCount:   strconv.FormatInt(row.PaymentCount, 10),
			colSales:   row.TotalSales.StringFixed(2),
			colPaid:    row.TotalPaid.StringFixed(2),
			colPending: row.TotalPending.StringFixed(2),
		})
		income = income.Add(row.TotalIncome)
		sales = sales.Add(row.TotalSales)
		paid = paid.Add(row.TotalPaid)
		pending = pending.Add(row.TotalPending)
		payments += row.PaymentCount
	}
	dataset.Totals = map[string]string{
		colMonth:   "Total",
		colIncome:  income.StringFixed(2),
		colCount:   strconv.FormatInt(payments, 10),
		colSales:   sales.StringFixed(2),
		colPaid:    paid.StringFixed(2),
		colPending: pending.StringFixed(2),
	}
	return dataset
}

func buildFilename(prefix, period string, branchID *string, format ExportFormat) string {
	branch := "todas"
	if branchID != nil && *branchID != "" {
		branch = sanitizeFilename(*branchID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", prefix, period, branch, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 64 {
		return result[:64]
	}
	return result
}
