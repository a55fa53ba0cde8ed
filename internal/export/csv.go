// Package export renders the ledger as CSV, spreadsheet rows and a PDF
// statement.
package export

import (
	"bufio"
	"io"
	"strings"

	"ledger/internal/core"
)

// Header is the column list shared by every tabular export.
var Header = []string{"Date", "Description", "Category", "Type", "Amount", "Notes"}

// Rows returns the header followed by one row per transaction, oldest first.
func Rows(txs []core.Transaction) [][]string {
	sorted := core.Sort(txs, core.SortDateAsc)
	rows := make([][]string, 0, len(sorted)+1)
	rows = append(rows, Header)
	for _, t := range sorted {
		rows = append(rows, []string{
			t.Date,
			t.Description,
			t.Category,
			string(t.Type),
			core.FormatAmount(t.Amount),
			t.Notes,
		})
	}
	return rows
}

// WriteCSV writes the ledger with every field double-quoted. Embedded quotes
// are written as-is, so values containing `"` produce ambiguous output.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	bw := bufio.NewWriter(w)
	for i, row := range Rows(txs) {
		if i == 0 {
			if _, err := bw.WriteString(strings.Join(row, ",") + "\n"); err != nil {
				return err
			}
			continue
		}
		if _, err := bw.WriteString(`"` + strings.Join(row, `","`) + "\"\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
