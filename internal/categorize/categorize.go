// Package categorize assigns spending categories to transaction titles
// using an ordered keyword table. Matching is case-insensitive substring
// search; the first category in declaration order with any matching
// keyword wins. Ordering is a compatibility constraint: existing stored
// data was categorized with this exact table order.
package categorize

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultCategory is returned when no keyword matches a title.
const DefaultCategory = "Other"

// Category pairs a label with its match keywords.
type Category struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// Table is an ordered category list. Earlier entries take priority when a
// title matches keywords from more than one category.
type Table struct {
	Default    string     `json:"default_category"`
	Categories []Category `json:"categories"`
}

// builtin is the stock table. The keyword lists grew out of one
// cardholder's actual statements, which is why Singapore hawker chains sit
// next to US big-box stores.
var builtin = Table{
	Default: DefaultCategory,
	Categories: []Category{
		{Name: "Food & Dining", Keywords: []string{
			"restaurant", "food", "coffee", "lunch", "dinner", "cafe", "pizza",
			"mcdonald", "starbucks", "subway", "kfc", "burger", "taco", "domino",
			"curate kitchen", "wokhey", "koufu", "tonkotsu", "sukiya", "jollibee",
			"joe & dough", "food panda", "choco express", "killineygo",
			"twp - micron", "wok hey", "stuff'd", "tangled",
		}},
		{Name: "Transportation", Keywords: []string{
			"grab", "lyft", "taxi", "gas", "fuel", "parking", "metro", "bus",
			"mrt", "transit", "tada", "zig",
		}},
		{Name: "Shopping", Keywords: []string{
			"amazon", "walmart", "target", "mall", "store", "purchase", "ebay",
			"costco", "bestbuy", "home depot", "lowes", "shopee", "uniqlo",
			"zoff", "popular book", "taobao", "bitp", "andar",
		}},
		{Name: "Utilities", Keywords: []string{
			"electric", "water", "internet", "phone", "cable", "utility",
			"verizon", "att", "comcast", "spectrum", "pge", "gas company",
			"gomo mobile",
		}},
		{Name: "Healthcare", Keywords: []string{
			"pharmacy", "doctor", "hospital", "medical", "health", "cvs",
			"walgreens", "clinic", "dental", "vision", "accent dental",
		}},
		{Name: "Entertainment", Keywords: []string{
			"movie", "netflix", "spotify", "game", "entertainment", "theater",
			"concert", "hulu", "disney", "amazon prime", "steam", "steamgames",
		}},
		{Name: "Groceries", Keywords: []string{
			"grocery", "supermarket", "market", "safeway", "kroger",
			"whole foods", "trader joe", "publix", "aldi", "cold storage",
			"don don donki",
		}},
		{Name: "Banking", Keywords: []string{
			"fee", "charge", "interest", "transfer", "atm", "overdraft",
			"conversion fee",
		}},
		{Name: "Other", Keywords: []string{"ccy conversion"}},
	},
}

// Default returns the built-in category table.
func Default() *Table {
	return &builtin
}

// Categorize looks up a title against the built-in table.
func Categorize(title string) string {
	return builtin.Categorize(title)
}

// Categorize returns the first category whose keywords match the title,
// or the table's default. Pure and total: any string is accepted and
// exactly one label always comes back.
func (t *Table) Categorize(title string) string {
	lower := strings.ToLower(title)
	for _, cat := range t.Categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				return cat.Name
			}
		}
	}
	if t.Default == "" {
		return DefaultCategory
	}
	return t.Default
}

// Labels returns every category name in table order, ending with the
// default label if it is not already present.
func (t *Table) Labels() []string {
	labels := make([]string, 0, len(t.Categories)+1)
	seen := make(map[string]bool)
	for _, cat := range t.Categories {
		if !seen[cat.Name] {
			labels = append(labels, cat.Name)
			seen[cat.Name] = true
		}
	}
	def := t.Default
	if def == "" {
		def = DefaultCategory
	}
	if !seen[def] {
		labels = append(labels, def)
	}
	return labels
}

// Load reads a category table override from a JSON file. The file holds a
// default_category and an ordered categories list; order in the file is
// match priority. Keywords are lowercased on load since matching is
// case-insensitive.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category config %q: %w", path, err)
	}

	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse category config %q: %w", path, err)
	}
	if len(t.Categories) == 0 {
		return nil, fmt.Errorf("category config %q defines no categories", path)
	}
	for i := range t.Categories {
		for j, kw := range t.Categories[i].Keywords {
			t.Categories[i].Keywords[j] = strings.ToLower(kw)
		}
	}
	return &t, nil
}
