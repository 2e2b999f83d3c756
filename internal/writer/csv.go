// Package writer serializes the transaction table as CSV, the durable
// format of the store and the export download. Columns are
// Date,Title,Amount,Category with ISO dates.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/expense-tracker/internal/categorize"
	"github.com/insightdelivered/expense-tracker/internal/models"
)

// Header is the column row of every written file.
var Header = []string{"Date", "Title", "Amount", "Category"}

// Write emits the header row and one row per transaction.
func Write(out io.Writer, txns []models.Transaction) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range txns {
		row := []string{
			txn.Date.Format(models.DateLayout),
			txn.Title,
			txn.Amount.StringFixed(2),
			txn.Category,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// Read parses a transaction CSV produced by Write. Legacy files written
// before categories existed have only three columns; their rows load with
// the default category. Malformed rows fail the whole read so a corrupt
// store file is surfaced instead of silently truncated.
func Read(in io.Reader) ([]models.Transaction, error) {
	r := csv.NewReader(in)
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := columnIndex(records[0])
	if _, ok := cols["date"]; !ok {
		return nil, fmt.Errorf("CSV header missing Date column")
	}

	txns := make([]models.Transaction, 0, len(records)-1)
	for i, record := range records[1:] {
		txn, err := rowToTransaction(record, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func rowToTransaction(record []string, cols map[string]int) (models.Transaction, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	dateStr := field("date")
	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid Date %q", dateStr)
	}

	title := field("title")
	if title == "" {
		return models.Transaction{}, fmt.Errorf("missing Title")
	}

	amountStr := field("amount")
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid Amount %q", amountStr)
	}

	category := field("category")
	if category == "" {
		// Legacy file without a Category column.
		category = categorize.DefaultCategory
	}

	return models.Transaction{
		Date:     date,
		Title:    title,
		Amount:   amount,
		Category: category,
	}, nil
}
