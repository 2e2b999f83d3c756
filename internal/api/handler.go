// Package api exposes the extraction and store operations over HTTP.
// Flow: upload a statement PDF, review and edit the staged rows, confirm
// to merge them into the durable store, then query or export.
package api

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/expense-tracker/internal/categorize"
	"github.com/insightdelivered/expense-tracker/internal/extractor"
	"github.com/insightdelivered/expense-tracker/internal/models"
	"github.com/insightdelivered/expense-tracker/internal/parser"
	"github.com/insightdelivered/expense-tracker/internal/store"
	"github.com/insightdelivered/expense-tracker/internal/writer"
)

// Server wires the store, staging buffer and extraction settings into the
// HTTP handlers. One Server owns one store file.
type Server struct {
	Store         *store.Store
	Staging       *store.Staging
	Table         *categorize.Table
	Anchor        string
	ReferenceYear int
	Log           zerolog.Logger
}

// transactionRow is the JSON shape of one transaction in responses.
type transactionRow struct {
	Date     string `json:"date"`
	Title    string `json:"title"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
}

// transactionPatch is the JSON shape of edit requests; absent fields are
// left unchanged.
type transactionPatch struct {
	Date     *string `json:"date"`
	Title    *string `json:"title"`
	Amount   *string `json:"amount"`
	Category *string `json:"category"`
}

// Register sets up all routes on the fiber app.
func (s *Server) Register(app *fiber.App) {
	app.Get("/api/health", s.handleHealth)

	app.Post("/api/statements", s.handleUpload)

	app.Get("/api/staging", s.handleStagingList)
	app.Post("/api/staging", s.handleStagingAdd)
	app.Put("/api/staging/:index", s.handleStagingUpdate)
	app.Delete("/api/staging/:index", s.handleStagingDelete)
	app.Post("/api/staging/confirm", s.handleConfirm)

	app.Get("/api/transactions", s.handleTransactions)
	app.Put("/api/transactions/:index", s.handleTransactionUpdate)
	app.Delete("/api/transactions/:index", s.handleTransactionDelete)

	app.Get("/api/summary", s.handleSummary)
	app.Get("/api/summary/categories", s.handleCategoryTotals)
	app.Get("/api/export", s.handleExport)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleUpload accepts a multipart statement PDF, extracts transactions
// and places them in the staging buffer. Zero extracted rows is a success
// with a notice: the caller may have the wrong anchor or year, but the
// conversion itself worked.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "no file uploaded; use form field 'file'")
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		return errorJSON(c, fiber.StatusBadRequest, "only PDF files are supported")
	}

	anchor := c.FormValue("anchor", s.Anchor)
	if anchor == "" {
		return errorJSON(c, fiber.StatusBadRequest, "no anchor marker configured; set ANCHOR_MARKER or pass the 'anchor' form field")
	}

	year := s.ReferenceYear
	if y := c.FormValue("year"); y != "" {
		year, err = strconv.Atoi(y)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("invalid year %q", y))
		}
	}

	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed to create temp file")
	}
	tmpName := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpName)

	if err := c.SaveFile(fileHeader, tmpName); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed to save uploaded file")
	}

	pages, err := extractor.ExtractText(tmpName)
	if err != nil {
		// Conversion failure is a real error, unlike zero matches.
		return errorJSON(c, fiber.StatusUnprocessableEntity, fmt.Sprintf("PDF extraction failed: %v", err))
	}

	txns := parser.ExtractWith(extractor.SplitLines(pages), anchor, year, s.Table)
	s.Staging.Add(txns...)

	s.Log.Info().Str("file", filepath.Base(fileHeader.Filename)).Int("extracted", len(txns)).Msg("statement processed")

	resp := fiber.Map{
		"success": true,
		"count":   len(txns),
		"staged":  toRows(s.Staging.List()),
	}
	if len(txns) == 0 {
		resp["notice"] = "no expenses found, check input format"
	}
	return c.JSON(resp)
}

func (s *Server) handleStagingList(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":      true,
		"transactions": toRows(s.Staging.List()),
	})
}

// handleStagingAdd creates a manual staging entry. Category is inferred
// from the title when omitted.
func (s *Server) handleStagingAdd(c *fiber.Ctx) error {
	var row transactionRow
	if err := c.BodyParser(&row); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	txn, err := rowToTxn(row, s.Table)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	s.Staging.Add(txn)
	return c.JSON(fiber.Map{
		"success":      true,
		"transactions": toRows(s.Staging.List()),
	})
}

func (s *Server) handleStagingUpdate(c *fiber.Ctx) error {
	i, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid position")
	}

	var patch transactionPatch
	if err := c.BodyParser(&patch); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	staged := s.Staging.List()
	if i < 0 || i >= len(staged) {
		return errorJSON(c, fiber.StatusNotFound, fmt.Sprintf("position %d out of range", i))
	}

	txn, err := applyPatch(staged[i], patch)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := s.Staging.Set(i, txn); err != nil {
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"transactions": toRows(s.Staging.List()),
	})
}

func (s *Server) handleStagingDelete(c *fiber.Ctx) error {
	i, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid position")
	}
	if err := s.Staging.Remove(i); err != nil {
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	}
	return c.JSON(fiber.Map{"success": true})
}

// handleConfirm merges the staging buffer into the store. The buffer is
// cleared only after the merge persisted, so a failed save loses nothing.
func (s *Server) handleConfirm(c *fiber.Ctx) error {
	staged := s.Staging.List()
	if len(staged) == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "staging buffer is empty")
	}

	if err := s.Store.Merge(staged); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, fmt.Sprintf("failed to save transactions: %v", err))
	}
	s.Staging.Clear()

	count, err := s.Store.Count()
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"confirmed": len(staged),
		"total":     count,
	})
}

func (s *Server) handleTransactions(c *fiber.Ctx) error {
	txns, err := s.Store.Transactions()
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"transactions": toRows(txns),
	})
}

func (s *Server) handleTransactionUpdate(c *fiber.Ctx) error {
	i, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid position")
	}

	var patch transactionPatch
	if err := c.BodyParser(&patch); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	storePatch, err := toStorePatch(patch)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	if err := s.Store.Update(i, storePatch); err != nil {
		if strings.Contains(err.Error(), "out of range") {
			return errorJSON(c, fiber.StatusNotFound, err.Error())
		}
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleTransactionDelete(c *fiber.Ctx) error {
	i, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid position")
	}
	if err := s.Store.Delete(i); err != nil {
		if strings.Contains(err.Error(), "out of range") {
			return errorJSON(c, fiber.StatusNotFound, err.Error())
		}
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleSummary(c *fiber.Ctx) error {
	sum, err := s.Store.Summary()
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	if sum == nil {
		return c.JSON(fiber.Map{"success": true, "empty": true})
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"empty":         false,
		"total":         sum.Total.StringFixed(2),
		"mean":          sum.Mean.StringFixed(2),
		"count":         sum.Count,
		"startDate":     sum.StartDate.Format(models.DateLayout),
		"endDate":       sum.EndDate.Format(models.DateLayout),
		"categories":    sum.Categories,
		"topCategory":   sum.TopCategory,
		"largestTitle":  sum.LargestTitle,
		"largestAmount": sum.LargestAmount.StringFixed(2),
	})
}

func (s *Server) handleCategoryTotals(c *fiber.Ctx) error {
	totals, err := s.Store.CategoryTotals()
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	rows := make([]fiber.Map, 0, len(totals))
	for _, ct := range totals {
		rows = append(rows, fiber.Map{
			"category": ct.Category,
			"total":    ct.Total.StringFixed(2),
			"count":    ct.Count,
			"mean":     ct.Mean.StringFixed(2),
		})
	}
	return c.JSON(fiber.Map{"success": true, "categories": rows})
}

// handleExport serves the current store as a CSV download, same schema as
// the durable file.
func (s *Server) handleExport(c *fiber.Ctx) error {
	txns, err := s.Store.Transactions()
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	var buf bytes.Buffer
	if err := writer.Write(&buf, txns); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="expenses.csv"`)
	return c.Send(buf.Bytes())
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

func toRows(txns []models.Transaction) []transactionRow {
	rows := make([]transactionRow, 0, len(txns))
	for _, txn := range txns {
		rows = append(rows, transactionRow{
			Date:     txn.Date.Format(models.DateLayout),
			Title:    txn.Title,
			Amount:   txn.Amount.StringFixed(2),
			Category: txn.Category,
		})
	}
	return rows
}

func rowToTxn(row transactionRow, table *categorize.Table) (models.Transaction, error) {
	date, err := time.Parse(models.DateLayout, row.Date)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", row.Date)
	}
	if strings.TrimSpace(row.Title) == "" {
		return models.Transaction{}, fmt.Errorf("title is required")
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid amount %q", row.Amount)
	}

	category := row.Category
	if category == "" {
		category = table.Categorize(row.Title)
	}

	return models.Transaction{
		Date:     date,
		Title:    strings.TrimSpace(row.Title),
		Amount:   amount,
		Category: category,
	}, nil
}

func applyPatch(txn models.Transaction, patch transactionPatch) (models.Transaction, error) {
	if patch.Date != nil {
		date, err := time.Parse(models.DateLayout, *patch.Date)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", *patch.Date)
		}
		txn.Date = date
	}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return models.Transaction{}, fmt.Errorf("title cannot be empty")
		}
		txn.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Amount != nil {
		amount, err := decimal.NewFromString(*patch.Amount)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("invalid amount %q", *patch.Amount)
		}
		txn.Amount = amount
	}
	if patch.Category != nil {
		txn.Category = *patch.Category
	}
	return txn, nil
}

func toStorePatch(patch transactionPatch) (store.Patch, error) {
	var out store.Patch
	if patch.Date != nil {
		date, err := time.Parse(models.DateLayout, *patch.Date)
		if err != nil {
			return store.Patch{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", *patch.Date)
		}
		out.Date = &date
	}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return store.Patch{}, fmt.Errorf("title cannot be empty")
		}
		title := strings.TrimSpace(*patch.Title)
		out.Title = &title
	}
	if patch.Amount != nil {
		amount, err := decimal.NewFromString(*patch.Amount)
		if err != nil {
			return store.Patch{}, fmt.Errorf("invalid amount %q", *patch.Amount)
		}
		out.Amount = &amount
	}
	out.Category = patch.Category
	return out, nil
}
