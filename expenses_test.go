package main

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrack/models"
	"worktrack/pkg/events"
	"worktrack/pkg/receipt"
)

func createExpense(t *testing.T, r http.Handler, token string, body map[string]any) models.Expense {
	t.Helper()
	resp := doJSON(t, r, http.MethodPost, "/api/expenses", token, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[struct {
		Expense models.Expense `json:"expense"`
	}](t, resp).Expense
}

func TestExpensesFlow(t *testing.T) {
	r, rec := setupTestServer(t)
	s := registerUser(t, r, "spender")

	rent := createExpense(t, r, s.Token, map[string]any{
		"category": "Housing", "description": "Rent", "amount": 800, "expenseDate": "2024-02-01", "type": "expense",
	})
	createExpense(t, r, s.Token, map[string]any{
		"category": "Food", "description": "Groceries", "amount": 45.56, "expenseDate": "2024-02-03", "type": "expense",
	})
	createExpense(t, r, s.Token, map[string]any{
		"category": "Side job", "description": "Design gig", "amount": 300, "expenseDate": "2024-02-10", "type": "income",
	})
	createExpense(t, r, s.Token, map[string]any{
		"category": "Food", "description": "Dinner", "amount": 20, "expenseDate": "2024-03-02", "type": "expense",
	})
	assert.Contains(t, rec.Types(), events.ExpenseCreated)

	t.Run("validation", func(t *testing.T) {
		resp := doJSON(t, r, http.MethodPost, "/api/expenses", s.Token, map[string]any{
			"category": "Food", "description": "x", "amount": -1, "expenseDate": "2024-02-30", "type": "gift",
		})
		require.Equal(t, http.StatusBadRequest, resp.Code)
		body := decode[struct {
			Errors []fieldError `json:"errors"`
		}](t, resp)
		fields := map[string]bool{}
		for _, e := range body.Errors {
			fields[e.Field] = true
		}
		assert.True(t, fields["amount"])
		assert.True(t, fields["expenseDate"])
		assert.True(t, fields["type"])

		resp = doJSON(t, r, http.MethodPost, "/api/expenses", s.Token, map[string]any{
			"category": "   ", "description": "x", "amount": 1, "expenseDate": "2024-02-01", "type": "expense",
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = doJSON(t, r, http.MethodPost, "/api/expenses", s.Token, map[string]any{
			"category": "Food", "description": "x", "amount": "ten", "expenseDate": "2024-02-01", "type": "expense",
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("list filters", func(t *testing.T) {
		resp := performRequest(r, http.MethodGet, "/api/expenses?month=2&year=2024&type=expense", nil, s.Token, "")
		require.Equal(t, http.StatusOK, resp.Code)
		body := decode[struct {
			Expenses   []models.Expense `json:"expenses"`
			Pagination pagination       `json:"pagination"`
		}](t, resp)
		require.Len(t, body.Expenses, 2)
		assert.Equal(t, "Groceries", body.Expenses[0].Description)
		assert.Equal(t, 45.56, body.Expenses[0].Amount)
		assert.Equal(t, int64(2), body.Pagination.Total)

		// month without year leaves the list unfiltered
		resp = performRequest(r, http.MethodGet, "/api/expenses?month=2&type=expense", nil, s.Token, "")
		require.Equal(t, http.StatusOK, resp.Code)
		body = decode[struct {
			Expenses   []models.Expense `json:"expenses"`
			Pagination pagination       `json:"pagination"`
		}](t, resp)
		assert.Equal(t, int64(3), body.Pagination.Total)

		resp = performRequest(r, http.MethodGet, "/api/expenses?category=Food", nil, s.Token, "")
		body = decode[struct {
			Expenses   []models.Expense `json:"expenses"`
			Pagination pagination       `json:"pagination"`
		}](t, resp)
		assert.Len(t, body.Expenses, 2)
	})

	t.Run("categories and summaries", func(t *testing.T) {
		resp := performRequest(r, http.MethodGet, "/api/expenses/categories", nil, s.Token, "")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []string{"Food", "Housing", "Side job"}, decode[[]string](t, resp))

		resp = performRequest(r, http.MethodGet, "/api/expenses/summary/monthly?year=2024", nil, s.Token, "")
		require.Equal(t, http.StatusOK, resp.Code)
		monthly := decode[map[string]monthTotals](t, resp)
		require.Len(t, monthly, 2)
		assert.Equal(t, monthTotals{Income: 300, Expense: 845.56, Net: -545.56}, monthly["2024-02"])
		assert.Equal(t, monthTotals{Expense: 20, Net: -20}, monthly["2024-03"])

		resp = performRequest(r, http.MethodGet, "/api/expenses/summary/category?month=2&year=2024", nil, s.Token, "")
		require.Equal(t, http.StatusOK, resp.Code)
		cats := decode[[]categoryTotal](t, resp)
		require.Len(t, cats, 3)
		assert.Equal(t, "Housing", cats[0].Category)
		assert.Equal(t, "Side job", cats[1].Category)
		assert.Equal(t, "income", cats[1].Type)
	})

	t.Run("update and delete", func(t *testing.T) {
		path := idPath("/api/expenses", rent.ID)
		resp := doJSON(t, r, http.MethodPut, path, s.Token, map[string]any{
			"category": "Housing", "description": "Rent (Feb)", "amount": 850, "expenseDate": "2024-02-01", "type": "expense",
		})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		resp = doJSON(t, r, http.MethodPut, "/api/expenses/9999", s.Token, map[string]any{
			"category": "Housing", "description": "Rent", "amount": 1, "expenseDate": "2024-02-01", "type": "expense",
		})
		assert.Equal(t, http.StatusNotFound, resp.Code)

		assert.Equal(t, http.StatusOK, performRequest(r, http.MethodDelete, path, nil, s.Token, "").Code)
		assert.Equal(t, http.StatusNotFound, performRequest(r, http.MethodDelete, path, nil, s.Token, "").Code)
	})
}

// receiptUpload builds a multipart body with one file part.
func receiptUpload(t *testing.T, name, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

type uploadResponse struct {
	Receipt        models.Receipt `json:"receipt"`
	DetectedAmount *float64       `json:"detected_amount"`
	Confidence     float64        `json:"confidence"`
	Applied        bool           `json:"applied"`
}

func TestReceiptUpload(t *testing.T) {
	r, rec := setupTestServer(t)
	s := registerUser(t, r, "shopper")
	exp := createExpense(t, r, s.Token, map[string]any{
		"category": "Groceries", "description": "Market", "amount": 20, "expenseDate": "2024-04-02", "type": "expense",
	})
	path := idPath("/api/expenses", exp.ID) + "/receipt"
	png := []byte("\x89PNG\r\n\x1a\nfake")

	t.Run("detects and applies the total", func(t *testing.T) {
		body, ct := receiptUpload(t, "Receipt.PNG", "image/png", png, map[string]string{"apply": "true"})
		resp := performRequest(r, http.MethodPost, path, body, s.Token, ct)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		out := decode[uploadResponse](t, resp)
		require.NotNil(t, out.DetectedAmount)
		assert.Equal(t, 25.38, *out.DetectedAmount)
		assert.True(t, out.Applied)
		assert.False(t, out.Receipt.Failed)
		assert.GreaterOrEqual(t, out.Confidence, 0.85)
		assert.Equal(t, ".png", filepath.Ext(out.Receipt.StorePath))

		_, err := os.Stat(filepath.Join(cfg.UploadBase, filepath.FromSlash(out.Receipt.StorePath)))
		assert.NoError(t, err)
		assert.Contains(t, rec.Types(), events.ReceiptProcessed)

		var stored models.Expense
		require.NoError(t, db.First(&stored, exp.ID).Error)
		assert.Equal(t, 25.38, stored.Amount)
	})

	t.Run("failed detection is kept", func(t *testing.T) {
		extractor = receipt.NewExtractor(fakeTextReader{text: "THANK YOU"})
		body, ct := receiptUpload(t, "blurry.jpg", "image/jpeg", png, nil)
		resp := performRequest(r, http.MethodPost, path, body, s.Token, ct)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		out := decode[uploadResponse](t, resp)
		assert.Nil(t, out.DetectedAmount)
		assert.False(t, out.Applied)
		assert.True(t, out.Receipt.Failed)
		assert.NotEmpty(t, out.Receipt.FailedReason)

		resp = performRequest(r, http.MethodGet, idPath("/api/expenses", exp.ID)+"/receipts", nil, s.Token, "")
		require.Equal(t, http.StatusOK, resp.Code)
		list := decode[struct {
			Receipts []models.Receipt `json:"receipts"`
		}](t, resp)
		assert.Len(t, list.Receipts, 2)
	})

	t.Run("rejects non images", func(t *testing.T) {
		body, ct := receiptUpload(t, "notes.txt", "text/plain", []byte("hello"), nil)
		resp := performRequest(r, http.MethodPost, path, body, s.Token, ct)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.JSONEq(t, `{"error":"File must be an image"}`, resp.Body.String())
	})

	t.Run("missing file", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("apply", "true"))
		require.NoError(t, w.Close())
		resp := performRequest(r, http.MethodPost, path, &buf, s.Token, w.FormDataContentType())
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.JSONEq(t, `{"error":"File missing"}`, resp.Body.String())
	})

	t.Run("unknown expense", func(t *testing.T) {
		body, ct := receiptUpload(t, "r.png", "image/png", png, nil)
		resp := performRequest(r, http.MethodPost, "/api/expenses/9999/receipt", body, s.Token, ct)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("failed insert leaves no file behind", func(t *testing.T) {
		pattern := filepath.Join(cfg.UploadBase, "receipts", "*", "*")
		before, err := filepath.Glob(pattern)
		require.NoError(t, err)
		require.NoError(t, db.Migrator().DropTable(&models.Receipt{}))

		body, ct := receiptUpload(t, "late.png", "image/png", png, nil)
		resp := performRequest(r, http.MethodPost, path, body, s.Token, ct)
		assert.Equal(t, http.StatusInternalServerError, resp.Code)

		after, err := filepath.Glob(pattern)
		require.NoError(t, err)
		assert.ElementsMatch(t, before, after)
	})
}

func TestDescribeReceipt(t *testing.T) {
	cfg = nil
	var rec models.Receipt
	describe(&rec, extraction{result: receipt.Result{Amount: 12.5, Confidence: 0.05, Raw: "12.50"}})
	assert.True(t, rec.Failed)
	assert.Equal(t, "low confidence", rec.FailedReason)
	assert.Nil(t, rec.DetectedAmount)

	rec = models.Receipt{}
	describe(&rec, extraction{result: receipt.Result{Amount: 12.5, Confidence: 0.9, Raw: "$12.50"}})
	assert.False(t, rec.Failed)
	require.NotNil(t, rec.DetectedAmount)
	assert.Equal(t, 12.5, *rec.DetectedAmount)

}
