package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/expense-tracker/internal/categorize"
	"github.com/insightdelivered/expense-tracker/internal/store"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	srv := &Server{
		Store:         store.New(filepath.Join(t.TempDir(), "expenses.csv"), 0, zerolog.Nop()),
		Staging:       store.NewStaging(),
		Table:         categorize.Default(),
		Anchor:        "KOK CHUN SHEN",
		ReferenceYear: 2024,
		Log:           zerolog.Nop(),
	}
	app := fiber.New()
	srv.Register(app)
	return app
}

func newMultipart(t *testing.T, buf *bytes.Buffer, filename string, content []byte) string {
	t.Helper()
	w := multipart.NewWriter(buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return w.FormDataContentType()
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal(raw, &result), "body: %s", raw)
	return resp.StatusCode, result
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	status, result := doJSON(t, app, "GET", "/api/health", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", result["status"])
}

func TestUploadRequiresFile(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest("POST", "/api/statements", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=----test")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, fiber.StatusOK, resp.StatusCode)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	app := setupTestApp(t)

	var buf bytes.Buffer
	mw := newMultipart(t, &buf, "notes.txt", []byte("hello"))

	req := httptest.NewRequest("POST", "/api/statements", &buf)
	req.Header.Set("Content-Type", mw)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStagingManualEntryAndConfirm(t *testing.T) {
	app := setupTestApp(t)

	// Manual entry without a category gets one inferred.
	status, result := doJSON(t, app, "POST", "/api/staging",
		`{"date":"2024-01-01","title":"STARBUCKS COFFEE","amount":"5.25"}`)
	require.Equal(t, fiber.StatusOK, status)
	staged := result["transactions"].([]any)
	require.Len(t, staged, 1)
	row := staged[0].(map[string]any)
	assert.Equal(t, "Food & Dining", row["category"])

	// Confirm merges into the store and clears staging.
	status, result = doJSON(t, app, "POST", "/api/staging/confirm", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), result["confirmed"])
	assert.Equal(t, float64(1), result["total"])

	status, result = doJSON(t, app, "GET", "/api/staging", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, result["transactions"])

	status, result = doJSON(t, app, "GET", "/api/transactions", "")
	require.Equal(t, fiber.StatusOK, status)
	txns := result["transactions"].([]any)
	require.Len(t, txns, 1)
	assert.Equal(t, "STARBUCKS COFFEE", txns[0].(map[string]any)["title"])
}

func TestStagingEditBeforeConfirm(t *testing.T) {
	app := setupTestApp(t)

	status, _ := doJSON(t, app, "POST", "/api/staging",
		`{"date":"2024-01-01","title":"WRONG","amount":"1.00","category":"Other"}`)
	require.Equal(t, fiber.StatusOK, status)

	status, result := doJSON(t, app, "PUT", "/api/staging/0",
		`{"title":"GRAB RIDE","category":"Transportation"}`)
	require.Equal(t, fiber.StatusOK, status)
	row := result["transactions"].([]any)[0].(map[string]any)
	assert.Equal(t, "GRAB RIDE", row["title"])
	assert.Equal(t, "Transportation", row["category"])
	// Untouched fields stay.
	assert.Equal(t, "1.00", row["amount"])
}

func TestStagingDeleteOutOfRange(t *testing.T) {
	app := setupTestApp(t)

	status, result := doJSON(t, app, "DELETE", "/api/staging/3", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, false, result["success"])
}

func TestConfirmEmptyStaging(t *testing.T) {
	app := setupTestApp(t)

	status, _ := doJSON(t, app, "POST", "/api/staging/confirm", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestConfirmIsIdempotentAcrossDuplicates(t *testing.T) {
	app := setupTestApp(t)

	entry := `{"date":"2024-01-01","title":"STARBUCKS COFFEE","amount":"5.25"}`
	for i := 0; i < 2; i++ {
		status, _ := doJSON(t, app, "POST", "/api/staging", entry)
		require.Equal(t, fiber.StatusOK, status)
		status, _ = doJSON(t, app, "POST", "/api/staging/confirm", "")
		require.Equal(t, fiber.StatusOK, status)
	}

	_, result := doJSON(t, app, "GET", "/api/transactions", "")
	assert.Len(t, result["transactions"], 1)
}

func TestSummaryEmptyStore(t *testing.T) {
	app := setupTestApp(t)

	status, result := doJSON(t, app, "GET", "/api/summary", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, result["empty"])
}

func TestSummaryAfterConfirm(t *testing.T) {
	app := setupTestApp(t)

	doJSON(t, app, "POST", "/api/staging", `{"date":"2024-01-01","title":"AMAZON.COM","amount":"40.00"}`)
	doJSON(t, app, "POST", "/api/staging", `{"date":"2024-01-05","title":"STARBUCKS COFFEE","amount":"6.00"}`)
	status, _ := doJSON(t, app, "POST", "/api/staging/confirm", "")
	require.Equal(t, fiber.StatusOK, status)

	status, result := doJSON(t, app, "GET", "/api/summary", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, result["empty"])
	assert.Equal(t, "46.00", result["total"])
	assert.Equal(t, "23.00", result["mean"])
	assert.Equal(t, float64(2), result["count"])
	assert.Equal(t, "2024-01-01", result["startDate"])
	assert.Equal(t, "2024-01-05", result["endDate"])
	assert.Equal(t, "Shopping", result["topCategory"])
	assert.Equal(t, "AMAZON.COM", result["largestTitle"])
}

func TestTransactionDeleteAndUpdate(t *testing.T) {
	app := setupTestApp(t)

	doJSON(t, app, "POST", "/api/staging", `{"date":"2024-01-01","title":"A","amount":"1.00","category":"Other"}`)
	doJSON(t, app, "POST", "/api/staging", `{"date":"2024-01-02","title":"B","amount":"2.00","category":"Other"}`)
	doJSON(t, app, "POST", "/api/staging/confirm", "")

	status, _ := doJSON(t, app, "PUT", "/api/transactions/1", `{"amount":"3.50"}`)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, "DELETE", "/api/transactions/0", "")
	require.Equal(t, fiber.StatusOK, status)

	_, result := doJSON(t, app, "GET", "/api/transactions", "")
	txns := result["transactions"].([]any)
	require.Len(t, txns, 1)
	row := txns[0].(map[string]any)
	assert.Equal(t, "B", row["title"])
	assert.Equal(t, "3.50", row["amount"])
}

func TestTransactionDeleteOutOfRange(t *testing.T) {
	app := setupTestApp(t)

	status, _ := doJSON(t, app, "DELETE", "/api/transactions/9", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestExport(t *testing.T) {
	app := setupTestApp(t)

	doJSON(t, app, "POST", "/api/staging", `{"date":"2024-01-01","title":"STARBUCKS COFFEE","amount":"5.25"}`)
	doJSON(t, app, "POST", "/api/staging/confirm", "")

	req := httptest.NewRequest("GET", "/api/export", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Date,Title,Amount,Category")
	assert.Contains(t, string(body), "2024-01-01,STARBUCKS COFFEE,5.25,Food & Dining")
}
