package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary aggregates the whole store. A nil Summary means the store is
// empty; callers must not read zero values out of an empty store.
type Summary struct {
	Total         decimal.Decimal `json:"total"`
	Mean          decimal.Decimal `json:"mean"`
	Count         int             `json:"count"`
	StartDate     time.Time       `json:"-"`
	EndDate       time.Time       `json:"-"`
	Categories    []string        `json:"categories"`
	TopCategory   string          `json:"topCategory"`
	LargestTitle  string          `json:"largestTitle"`
	LargestAmount decimal.Decimal `json:"largestAmount"`
}

// CategoryTotal is one row of the per-category breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
	Mean     decimal.Decimal `json:"mean"`
}

// Summary computes store-wide statistics, or nil for an empty store.
// The top category is the one with the highest summed amount; on a tie
// the category whose first transaction appears earliest in store order
// wins, which keeps the result stable for a given file.
func (s *Store) Summary() (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	if len(s.txns) == 0 {
		return nil, nil
	}

	sum := &Summary{Count: len(s.txns)}

	catTotals := make(map[string]decimal.Decimal)
	var catOrder []string

	for i, txn := range s.txns {
		sum.Total = sum.Total.Add(txn.Amount)

		if i == 0 || txn.Date.Before(sum.StartDate) {
			sum.StartDate = txn.Date
		}
		if i == 0 || txn.Date.After(sum.EndDate) {
			sum.EndDate = txn.Date
		}

		if _, ok := catTotals[txn.Category]; !ok {
			catOrder = append(catOrder, txn.Category)
		}
		catTotals[txn.Category] = catTotals[txn.Category].Add(txn.Amount)

		if i == 0 || txn.Amount.GreaterThan(sum.LargestAmount) {
			sum.LargestAmount = txn.Amount
			sum.LargestTitle = txn.Title
		}
	}

	sum.Mean = sum.Total.Div(decimal.NewFromInt(int64(sum.Count))).Round(2)
	sum.Categories = catOrder

	for _, cat := range catOrder {
		if sum.TopCategory == "" || catTotals[cat].GreaterThan(catTotals[sum.TopCategory]) {
			sum.TopCategory = cat
		}
	}

	return sum, nil
}

// CategoryTotals returns a per-category sum/count/mean breakdown in
// first-encountered order.
func (s *Store) CategoryTotals() ([]CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	totals := make(map[string]*CategoryTotal)
	var order []string

	for _, txn := range s.txns {
		ct, ok := totals[txn.Category]
		if !ok {
			ct = &CategoryTotal{Category: txn.Category}
			totals[txn.Category] = ct
			order = append(order, txn.Category)
		}
		ct.Total = ct.Total.Add(txn.Amount)
		ct.Count++
	}

	out := make([]CategoryTotal, 0, len(order))
	for _, cat := range order {
		ct := totals[cat]
		ct.Mean = ct.Total.Div(decimal.NewFromInt(int64(ct.Count))).Round(2)
		out = append(out, *ct)
	}
	return out, nil
}
