package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haperez86/EduPay/internal/models"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
	"github.com/haperez86/EduPay/pkg/export"
)

type incomeStub struct {
	rows []models.MonthlyIncome
	err  error
}

func (s incomeStub) MonthlyIncomeReport(context.Context, models.Actor, *int, *string) ([]models.MonthlyIncome, error) {
	return s.rows, s.err
}

func sampleIncome() []models.MonthlyIncome {
	return []models.MonthlyIncome{
		{Month: "Marzo", Year: 2024, MonthNumber: 3, BranchName: "Norte", TotalIncome: dec("450000"), PaymentCount: 2, TotalSales: dec("1000000"), TotalPaid: dec("450000"), TotalPending: dec("550000")},
		{Month: "Enero", Year: 2024, MonthNumber: 1, BranchName: "Norte", TotalIncome: dec("100000.5"), PaymentCount: 1, TotalSales: dec("500000"), TotalPaid: dec("100000.5"), TotalPending: dec("399999.5")},
	}
}

func TestParseExportFormat(t *testing.T) {
	f, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, f)

	f, err = ParseExportFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, f)

	_, err = ParseExportFormat("xlsx")
	assertCode(t, err, appErrors.ErrInvalidArgument)
}

func TestExportMonthlyIncomeCSV(t *testing.T) {
	svc := NewExportService(incomeStub{rows: sampleIncome()}, nil, nil, nil, zap.NewNop())
	year := 2024

	result, err := svc.ExportMonthlyIncome(context.Background(), superAdmin, &year, strPtr("north"), ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "ingresos_mensuales_2024_north.csv", result.Filename)

	lines := strings.Split(strings.TrimSpace(string(result.Body)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Mes,Año,Sede,Ingresos,Pagos,Ventas,Pagado,Pendiente", lines[0])
	assert.Equal(t, "Marzo,2024,Norte,450000.00,2,1000000.00,450000.00,550000.00", lines[1])
	assert.Equal(t, "Total,,,550000.50,3,1500000.00,550000.50,949999.50", lines[3])
}

func TestExportMonthlyIncomePDF(t *testing.T) {
	svc := NewExportService(incomeStub{rows: sampleIncome()}, nil, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) }

	result, err := svc.ExportMonthlyIncome(context.Background(), superAdmin, nil, nil, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "ingresos_mensuales_2025_todas.pdf", result.Filename)
	assert.True(t, bytes.HasPrefix(result.Body, []byte("%PDF")))
}

func TestExportMonthlyIncomePropagatesScopeErrors(t *testing.T) {
	svc := NewExportService(incomeStub{err: appErrors.Clone(appErrors.ErrForbidden, "nope")}, nil, nil, nil, nil)

	_, err := svc.ExportMonthlyIncome(context.Background(), student, nil, nil, ExportFormatCSV)
	assertCode(t, err, appErrors.ErrForbidden)
}

type brokenRenderer struct{}

func (brokenRenderer) Render(export.Dataset) ([]byte, error) {
	return nil, errors.New("writer closed")
}

func TestExportMonthlyIncomeRenderFailure(t *testing.T) {
	svc := NewExportService(incomeStub{rows: sampleIncome()}, brokenRenderer{}, nil, nil, nil)

	_, err := svc.ExportMonthlyIncome(context.Background(), superAdmin, nil, nil, ExportFormatCSV)
	assertCode(t, err, appErrors.ErrInternal)
}
