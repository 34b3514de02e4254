package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"taxlator-api/internal/models"
)

var csvHeader = []string{"id", "createdAt", "type", "amount", "input", "result"}

func renderHistoryCSV(records []*models.CalculationRecord) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, r := range records {
		row := []string{
			r.ID,
			r.CreatedAt.Format(time.RFC3339),
			string(r.Type),
			formatAmount(r.HeadlineAmount()),
			string(r.Input),
			string(r.Result),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pdfColumns are the history table columns with their widths in mm
var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 34, "L"},
	{"Type", 28, "L"},
	{"Amount", 36, "R"},
	{"Reference", 92, "L"},
}

const pdfRowHeight = 6

// historyPDF lays out every record as one table row. The header row is
// repeated on each page the table breaks onto.
func historyPDF(records []*models.CalculationRecord, generatedAt time.Time) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle("Taxlator calculation history", false)
	pdf.SetCreator("taxlator-api", false)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	tableHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, pdfRowHeight+1, col.title, "1", 0, col.align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Taxlator calculation history", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s, %d calculations",
		generatedAt.Format("2006-01-02 15:04 MST"), len(records)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	if len(records) == 0 {
		pdf.CellFormat(0, pdfRowHeight, "No calculations recorded.", "", 1, "L", false, 0, "")
		return pdf
	}

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()

	tableHeader()
	for _, r := range records {
		if pdf.GetY()+pdfRowHeight > pageHeight-bottom {
			pdf.AddPage()
			tableHeader()
		}
		row := []string{
			r.CreatedAt.Format("2006-01-02 15:04"),
			string(r.Type),
			formatAmount(r.HeadlineAmount()),
			r.ID,
		}
		for i, col := range pdfColumns {
			pdf.CellFormat(col.width, pdfRowHeight, row[i], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf
}

func renderHistoryPDF(records []*models.CalculationRecord, generatedAt time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := historyPDF(records, generatedAt).Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

