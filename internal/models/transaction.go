package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the date format used in the durable CSV file and the API.
const DateLayout = "2006-01-02"

// Transaction represents a single card expense, either staged for review
// or confirmed into the durable store. Credits and refunds carry a
// negative amount.
type Transaction struct {
	Date     time.Time       `json:"-"`
	Title    string          `json:"title"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
}

// Equal reports whether two transactions match on all four fields.
// Dates are compared at day precision and amounts by numeric value,
// so 5.0 and 5.00 on the same day collapse to one row on merge.
func (t Transaction) Equal(o Transaction) bool {
	return sameDay(t.Date, o.Date) &&
		t.Title == o.Title &&
		t.Amount.Equal(o.Amount) &&
		t.Category == o.Category
}

// Key returns a canonical string for the (date, title, amount, category)
// tuple, used for duplicate collapsing during merge.
func (t Transaction) Key() string {
	return t.Date.Format(DateLayout) + "\x1f" + t.Title + "\x1f" +
		t.Amount.String() + "\x1f" + t.Category
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
