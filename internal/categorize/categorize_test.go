package categorize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"STARBUCKS #402", "Food & Dining"},
		{"starbucks coffee", "Food & Dining"},
		{"AMAZON.COM SEATTLE", "Shopping"},
		{"GRAB *RIDE SG", "Transportation"},
		{"NETFLIX.COM", "Entertainment"},
		{"FAIRPRICE SUPERMARKET", "Groceries"},
		// "cold storage" is a Groceries keyword, but "store" (Shopping)
		// is declared earlier and matches inside "STORAGE".
		{"COLD STORAGE JEM", "Shopping"},
		{"ATM WITHDRAWAL FEE", "Banking"},
		{"CCY CONVERSION", "Other"},
		{"unknown merchant xyz", "Other"},
		{"", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, Categorize(tt.title))
		})
	}
}

func TestCategorizeDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, "Food & Dining", Categorize("Koufu foodcourt"))
	}
}

// A title matching keywords from two categories resolves to the one
// declared earlier in the table. "amazon prime" is an Entertainment
// keyword, but "amazon" matches Shopping first.
func TestCategorizeFirstMatchWins(t *testing.T) {
	assert.Equal(t, "Shopping", Categorize("AMAZON PRIME VIDEO"))

	// Same property on a custom table with a deliberate overlap.
	table := &Table{
		Default: "Other",
		Categories: []Category{
			{Name: "A", Keywords: []string{"overlap"}},
			{Name: "B", Keywords: []string{"overlap"}},
		},
	}
	assert.Equal(t, "A", table.Categorize("some OVERLAP here"))
}

func TestCategorizeAlwaysKnownLabel(t *testing.T) {
	known := make(map[string]bool)
	for _, l := range Default().Labels() {
		known[l] = true
	}
	for _, title := range []string{"x", "grab food", "FEE", "12345", "  "} {
		assert.True(t, known[Categorize(title)], "title %q", title)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.json")
	cfg := `{
		"default_category": "Misc",
		"categories": [
			{"name": "Coffee", "keywords": ["STARBUCKS", "espresso"]},
			{"name": "Travel", "keywords": ["airline"]}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	table, err := Load(path)
	require.NoError(t, err)

	// Keywords are lowercased on load.
	assert.Equal(t, "Coffee", table.Categorize("starbucks reserve"))
	assert.Equal(t, "Travel", table.Categorize("BUDGET AIRLINE SALE"))
	assert.Equal(t, "Misc", table.Categorize("nothing matches"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"categories": []}`), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
