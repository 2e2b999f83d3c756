package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/expense-tracker/internal/api"
	"github.com/insightdelivered/expense-tracker/internal/categorize"
	"github.com/insightdelivered/expense-tracker/internal/config"
	"github.com/insightdelivered/expense-tracker/internal/extractor"
	"github.com/insightdelivered/expense-tracker/internal/logger"
	"github.com/insightdelivered/expense-tracker/internal/models"
	"github.com/insightdelivered/expense-tracker/internal/parser"
	"github.com/insightdelivered/expense-tracker/internal/store"
	"github.com/insightdelivered/expense-tracker/internal/writer"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()

	// CLI flags override environment configuration
	serveFlag := flag.Bool("serve", false, "Start the HTTP API server instead of one-shot conversion")
	portFlag := flag.String("port", cfg.Port, "HTTP listen port in serve mode")
	storeFlag := flag.String("store", cfg.StorePath, "Path of the durable transaction CSV file")
	yearFlag := flag.Int("year", cfg.ReferenceYear, "Reference year for statement dates (statements carry no per-line year)")
	anchorFlag := flag.String("anchor", cfg.AnchorMarker, "Anchor text marking the start of transaction lines (usually the cardholder name)")
	categoriesFlag := flag.String("categories", cfg.CategoryConfig, "Optional JSON file overriding the built-in category table")
	backupsFlag := flag.Int("backups", cfg.BackupKeep, "Number of timestamped snapshot backups to keep")
	yesFlag := flag.Bool("y", false, "Merge extracted transactions without asking for confirmation")
	summaryFlag := flag.Bool("summary", false, "Print a summary of the stored transactions and exit")
	exportFlag := flag.String("export", "", "Write a CSV copy of the store to this path and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Statement Expense Tracker
by Insight Delivered

Extracts card transactions from a statement PDF, categorizes them, and
merges confirmed rows into a durable CSV store with deduplication and
timestamped backups.

Usage:
  expense-tracker [flags] <statement.pdf> [statement2.pdf ...]
  expense-tracker -serve
  expense-tracker -summary

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Extract and review, then confirm interactively
  expense-tracker -anchor "KOK CHUN SHEN" statement.pdf

  # Import a previous year's statement without prompting
  expense-tracker -anchor "KOK CHUN SHEN" -year 2023 -y jan.pdf feb.pdf

  # Run the review API
  expense-tracker -serve -port 8080

  # Inspect the store
  expense-tracker -summary
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("expense-tracker v%s\n", version)
		os.Exit(0)
	}

	log := logger.New()

	table := categorize.Default()
	if *categoriesFlag != "" {
		loaded, err := categorize.Load(*categoriesFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load category table")
		}
		table = loaded
	}

	st := store.New(*storeFlag, *backupsFlag, log)

	if *exportFlag != "" {
		if err := exportStore(st, *exportFlag); err != nil {
			log.Fatal().Err(err).Msg("export failed")
		}
		fmt.Printf("Exported store to %s\n", *exportFlag)
		return
	}

	if *summaryFlag {
		if err := printSummary(st); err != nil {
			log.Fatal().Err(err).Msg("summary failed")
		}
		return
	}

	if *serveFlag {
		srv := &api.Server{
			Store:         st,
			Staging:       store.NewStaging(),
			Table:         table,
			Anchor:        *anchorFlag,
			ReferenceYear: *yearFlag,
			Log:           log,
		}
		app := fiber.New(fiber.Config{
			AppName:   "expense-tracker v" + version,
			BodyLimit: 32 << 20,
		})
		srv.Register(app)

		log.Info().Str("port", *portFlag).Str("store", *storeFlag).Msg("starting API server")
		if err := app.Listen(":" + *portFlag); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	if *anchorFlag == "" {
		fatalf("No anchor marker configured. Pass -anchor or set ANCHOR_MARKER.\n")
	}

	var staged []models.Transaction
	for _, inputPath := range flag.Args() {
		txns, err := processFile(inputPath, *anchorFlag, *yearFlag, table)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
		staged = append(staged, txns...)
	}

	if len(staged) == 0 {
		fmt.Println("No expenses found, check input format.")
		return
	}

	printTransactions(staged)

	if !*yesFlag && !confirm(fmt.Sprintf("Merge %d transaction(s) into %s?", len(staged), *storeFlag)) {
		fmt.Println("Aborted; nothing saved.")
		return
	}

	if err := st.Merge(staged); err != nil {
		log.Fatal().Err(err).Msg("failed to save transactions")
	}

	count, err := st.Count()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read store")
	}
	fmt.Printf("Saved. Store now holds %d transaction(s).\n", count)
}

func processFile(inputPath, anchor string, year int, table *categorize.Table) ([]models.Transaction, error) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file not found: %s", inputPath)
	}

	ext := strings.ToLower(filepath.Ext(inputPath))
	if ext != ".pdf" {
		return nil, fmt.Errorf("expected .pdf file, got %q", ext)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	pages, err := extractor.ExtractText(inputPath)
	if err != nil {
		return nil, fmt.Errorf("PDF extraction failed: %w", err)
	}
	fmt.Printf("  Extracted text from %d page(s)\n", len(pages))

	txns := parser.ExtractWith(extractor.SplitLines(pages), anchor, year, table)
	fmt.Printf("  Found %d transaction(s)\n", len(txns))
	return txns, nil
}

func printTransactions(txns []models.Transaction) {
	fmt.Println()
	for i, txn := range txns {
		fmt.Printf("  [%d] %s  %-40s %10s  %s\n",
			i, txn.Date.Format(models.DateLayout), txn.Title,
			txn.Amount.StringFixed(2), txn.Category)
	}
	fmt.Println()
}

func printSummary(st *store.Store) error {
	sum, err := st.Summary()
	if err != nil {
		return err
	}
	if sum == nil {
		fmt.Println("Store is empty.")
		return nil
	}

	fmt.Printf("Transactions: %d\n", sum.Count)
	fmt.Printf("Total:        %s\n", sum.Total.StringFixed(2))
	fmt.Printf("Average:      %s\n", sum.Mean.StringFixed(2))
	fmt.Printf("Period:       %s to %s\n",
		sum.StartDate.Format(models.DateLayout), sum.EndDate.Format(models.DateLayout))
	fmt.Printf("Top category: %s\n", sum.TopCategory)
	fmt.Printf("Largest:      %s (%s)\n", sum.LargestTitle, sum.LargestAmount.StringFixed(2))

	totals, err := st.CategoryTotals()
	if err != nil {
		return err
	}
	fmt.Println("\nBy category:")
	for _, ct := range totals {
		fmt.Printf("  %-16s %10s  (%d)\n", ct.Category, ct.Total.StringFixed(2), ct.Count)
	}
	return nil
}

func exportStore(st *store.Store, path string) error {
	txns, err := st.Transactions()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writer.Write(f, txns)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
