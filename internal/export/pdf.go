package export

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/phpdave11/gofpdf"

	"ledger/internal/core"
)

// BuildStatementPDF renders totals, the monthly summary, the expense
// breakdown and the full transaction list as an A4 statement.
func BuildStatementPDF(txs []core.Transaction) ([]byte, error) {
	totals := core.ComputeTotals(txs)
	months := core.MonthlySummary(txs)
	byCat := core.ExpenseByCategory(txs)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Ledger Statement", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Ledger Statement")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, fmt.Sprintf("Income:  %s", core.FormatAmount(totals.Income)))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Expense: %s", core.FormatAmount(totals.Expense)))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Balance: %s", core.FormatAmount(totals.Balance)))
	pdf.Ln(10)

	if len(months) > 0 {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, "Monthly Summary")
		pdf.Ln(8)
		tableHeader(pdf, []string{"Month", "Income", "Expense"}, []float64{40, 40, 40})
		pdf.SetFont("Helvetica", "", 11)
		for _, m := range months {
			pdf.Cell(40, 7, m.Month)
			pdf.Cell(40, 7, core.FormatAmount(m.Income))
			pdf.Cell(40, 7, core.FormatAmount(m.Expense))
			pdf.Ln(7)
		}
		pdf.Ln(4)
	}

	if len(byCat) > 0 {
		cats := make([]string, 0, len(byCat))
		for c := range byCat {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool { return byCat[cats[i]] > byCat[cats[j]] })

		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, "Expenses by Category")
		pdf.Ln(8)
		tableHeader(pdf, []string{"Category", "Amount", "%"}, []float64{70, 40, 30})
		pdf.SetFont("Helvetica", "", 11)
		for _, c := range cats {
			pct := 0.0
			if totals.Expense > 0 {
				pct = byCat[c] / totals.Expense * 100
			}
			pdf.Cell(70, 7, tr(c))
			pdf.Cell(40, 7, core.FormatAmount(byCat[c]))
			pdf.Cell(30, 7, fmt.Sprintf("%.1f%%", pct))
			pdf.Ln(7)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Transactions")
	pdf.Ln(8)
	widths := []float64{25, 55, 35, 20, 25, 30}
	rows := Rows(txs)
	tableHeader(pdf, rows[0], widths)
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows[1:] {
		for i, cell := range row {
			pdf.CellFormat(widths[i], 6, tr(truncate(cell, 32)), "", 0, "L", false, 0, "")
		}
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func tableHeader(pdf *gofpdf.Fpdf, cols []string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 11)
	for i, c := range cols {
		pdf.Cell(widths[i], 7, c)
	}
	pdf.Ln(7)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
