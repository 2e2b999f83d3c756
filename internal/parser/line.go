// Package parser turns converted statement text into transaction records.
// The target layout is fixed: each transaction line starts with a
// seven-character "dd Mon" date token, ends with an amount token, and
// carries the merchant title in between. Everything else on the page
// (headers, footers, totals) is noise the parser skips.
package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/expense-tracker/internal/models"
)

// dateTokenLen is the width of the leading day/month column.
const dateTokenLen = 7

// shortDateLayout parses the date token joined with the reference year,
// e.g. "02 Jan" + 2024 -> "02 Jan 2024".
const shortDateLayout = "2 Jan 2006"

// ParseLine attempts to read one statement line as a transaction. The
// statement prints no year per line, so the caller supplies the reference
// year out of band. Returns ok=false for anything that does not fit the
// layout; no error is ever produced, since most lines of a statement are
// not transactions.
func ParseLine(line string, referenceYear int) (models.Transaction, bool) {
	if len(line) <= dateTokenLen {
		return models.Transaction{}, false
	}

	dateToken := strings.TrimSpace(line[:dateTokenLen])
	date, err := time.Parse(shortDateLayout, fmt.Sprintf("%s %d", dateToken, referenceYear))
	if err != nil {
		return models.Transaction{}, false
	}

	fields := strings.Fields(line[dateTokenLen:])
	if len(fields) < 2 {
		// Need at least a title word and an amount token.
		return models.Transaction{}, false
	}

	amount, err := parseAmount(fields[len(fields)-1])
	if err != nil {
		return models.Transaction{}, false
	}

	title := strings.Join(fields[:len(fields)-1], " ")
	if title == "" {
		return models.Transaction{}, false
	}

	return models.Transaction{
		Date:   date,
		Title:  title,
		Amount: amount,
	}, true
}

// parseAmount converts an amount token like "1,234.56", "£45.00" or
// "(12.50)" to a decimal. Parentheses are accounting notation for credits
// and flip the sign.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)

	negative := strings.Contains(s, "(")
	s = strings.ReplaceAll(s, "(", "")
	s = strings.ReplaceAll(s, ")", "")

	// Strip currency symbols, thousands separators and stray whitespace
	// (including Unicode variants seen in PDF extractions).
	for _, junk := range []string{"£", "£", "$", "€", "€", ",", " ", " "} {
		s = strings.ReplaceAll(s, junk, "")
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}
