package parser

import (
	"strings"

	"github.com/insightdelivered/expense-tracker/internal/categorize"
	"github.com/insightdelivered/expense-tracker/internal/models"
)

// Extract scans statement lines and returns every transaction found at or
// after the first line containing the anchor marker (the cardholder name
// printed above the transaction table). Lines before the anchor are
// ignored; lines after it that do not parse are skipped. A missing anchor
// or zero parsed lines yields an empty result, which is a normal outcome
// and not an error.
func Extract(lines []string, anchor string, referenceYear int) []models.Transaction {
	return ExtractWith(lines, anchor, referenceYear, categorize.Default())
}

// ExtractWith is Extract with a caller-supplied category table.
func ExtractWith(lines []string, anchor string, referenceYear int, table *categorize.Table) []models.Transaction {
	var txns []models.Transaction
	started := false

	for _, line := range lines {
		if !started && strings.Contains(line, anchor) {
			// The anchor line itself also goes through the line parser.
			started = true
		}
		if !started {
			continue
		}

		txn, ok := ParseLine(line, referenceYear)
		if !ok {
			continue
		}
		txn.Category = table.Categorize(txn.Title)
		txns = append(txns, txn)
	}

	return txns
}
