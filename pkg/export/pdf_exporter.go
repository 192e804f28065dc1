package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a tabular landscape PDF.
type PDFExporter struct {
	// NumericColumns are right aligned.
	NumericColumns map[string]bool
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter(numeric ...string) *PDFExporter {
	cols := make(map[string]bool, len(numeric))
	for _, c := range numeric {
		cols[c] = true
	}
	return &PDFExporter{NumericColumns: cols}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 9)
	colWidth := 277.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		e.writeRow(pdf, tr, data.Headers, row, colWidth)
	}
	if data.Totals != nil {
		pdf.SetFont("Arial", "B", 8)
		e.writeRow(pdf, tr, data.Headers, data.Totals, colWidth)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) writeRow(pdf *gofpdf.Fpdf, tr func(string) string, headers []string, row map[string]string, width float64) {
	for _, header := range headers {
		align := "L"
		if e.NumericColumns[header] {
			align = "R"
		}
		pdf.CellFormat(width, 7, tr(row[header]), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}
