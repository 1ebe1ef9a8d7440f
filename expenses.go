package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"worktrack/models"
	"worktrack/pkg/calendar"
	"worktrack/pkg/events"
	"worktrack/pkg/logx"
	"worktrack/pkg/money"
	"worktrack/pkg/receipt"
)

const maxReceiptBytes = 5 << 20

type expenseRequest struct {
	Category    string   `json:"category" binding:"required,max=100"`
	Description string   `json:"description" binding:"required,max=255"`
	Amount      *float64 `json:"amount" binding:"required,gte=0"`
	ExpenseDate string   `json:"expenseDate" binding:"required,isodate"`
	Type        string   `json:"type" binding:"required,oneof=income expense"`
}

// bindExpense decodes the body and rejects whitespace-only text fields.
func bindExpense(c *gin.Context) (expenseRequest, bool) {
	var req expenseRequest
	if !bindJSON(c, &req) {
		return req, false
	}
	req.Category = strings.TrimSpace(req.Category)
	req.Description = strings.TrimSpace(req.Description)
	if req.Category == "" {
		respondFieldError(c, "category", "category is required")
		return req, false
	}
	if req.Description == "" {
		respondFieldError(c, "description", "description is required")
		return req, false
	}
	return req, true
}

func (r expenseRequest) date() models.Date {
	d, _ := models.ParseDate(r.ExpenseDate)
	return d
}

func listExpensesHandler(c *gin.Context) {
	p := parsePaging(c, 30)
	q := db.WithContext(c.Request.Context()).Model(&models.Expense{}).Where("user_id = ?", currentUserID(c))
	if t := c.Query("type"); t == models.TypeIncome || t == models.TypeExpense {
		q = q.Where("type = ?", t)
	}
	if cat := c.Query("category"); cat != "" {
		q = q.Where("category = ?", cat)
	}
	m, filter, ok := monthFilter(c)
	if !ok {
		return
	}
	if filter {
		q = inRange(q, "expense_date", m.Start(), m.End())
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		respondInternal(c, err)
		return
	}
	expenses := []models.Expense{}
	if err := q.Order("expense_date DESC").Order("id DESC").Limit(p.Limit).Offset(p.offset()).Find(&expenses).Error; err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": expenses, "pagination": p.withTotal(total)})
}

func createExpenseHandler(c *gin.Context) {
	req, ok := bindExpense(c)
	if !ok {
		return
	}
	e := models.Expense{
		UserID:      currentUserID(c),
		Category:    req.Category,
		Description: req.Description,
		Amount:      money.Round2(*req.Amount),
		ExpenseDate: req.date(),
		Type:        req.Type,
	}
	if err := db.WithContext(c.Request.Context()).Create(&e).Error; err != nil {
		respondInternal(c, err)
		return
	}
	emit(c, events.ExpenseCreated, e.UserID, gin.H{"expense_id": e.ID, "type": e.Type, "amount": e.Amount})
	label := "Expense"
	if e.Type == models.TypeIncome {
		label = "Income"
	}
	c.JSON(http.StatusCreated, gin.H{"message": label + " added successfully", "expense": e})
}

func updateExpenseHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Expense")
	if !ok {
		return
	}
	req, ok := bindExpense(c)
	if !ok {
		return
	}
	res := db.WithContext(c.Request.Context()).Model(&models.Expense{}).
		Where("id = ? AND user_id = ?", id, currentUserID(c)).
		Updates(map[string]any{
			"category":     req.Category,
			"description":  req.Description,
			"amount":       money.Round2(*req.Amount),
			"expense_date": req.date(),
			"type":         req.Type,
		})
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Expense")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense updated successfully"})
}

func deleteExpenseHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Expense")
	if !ok {
		return
	}
	res := db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", id, currentUserID(c)).
		Delete(&models.Expense{})
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Expense")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}

func expenseCategoriesHandler(c *gin.Context) {
	categories := []string{}
	err := db.WithContext(c.Request.Context()).Model(&models.Expense{}).
		Where("user_id = ?", currentUserID(c)).
		Distinct("category").
		Order("category").
		Pluck("category", &categories).Error
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

type monthTotals struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

func (t *monthTotals) add(e models.Expense) {
	if e.Type == models.TypeIncome {
		t.Income += e.Amount
	} else {
		t.Expense += e.Amount
	}
}

func (t *monthTotals) round() {
	t.Income = money.Round2(t.Income)
	t.Expense = money.Round2(t.Expense)
	t.Net = money.Round2(t.Income - t.Expense)
}

// expensesBetween loads the caller's transactions in [start, end).
func expensesBetween(c *gin.Context, start, end models.Date) ([]models.Expense, error) {
	var out []models.Expense
	q := db.WithContext(c.Request.Context()).Where("user_id = ?", currentUserID(c))
	err := inRange(q, "expense_date", start, end).Find(&out).Error
	return out, err
}

// expenseMonthlySummaryHandler maps YYYY-MM to income, expense and net for
// the months of the year that have transactions.
func expenseMonthlySummaryHandler(c *gin.Context) {
	year, ok := yearQuery(c)
	if !ok {
		return
	}
	start, end := calendar.YearBounds(year)
	rows, err := expensesBetween(c, start, end)
	if err != nil {
		respondInternal(c, err)
		return
	}
	out := map[string]*monthTotals{}
	for _, e := range rows {
		key := calendar.MonthOf(e.ExpenseDate).Key()
		if out[key] == nil {
			out[key] = &monthTotals{}
		}
		out[key].add(e)
	}
	for _, t := range out {
		t.round()
	}
	c.JSON(http.StatusOK, out)
}

type categoryTotal struct {
	Category         string  `json:"category"`
	Type             string  `json:"type"`
	TotalAmount      float64 `json:"total_amount"`
	TransactionCount int     `json:"transaction_count"`
}

func expenseCategorySummaryHandler(c *gin.Context) {
	m, ok := monthQuery(c)
	if !ok {
		return
	}
	rows, err := expensesBetween(c, m.Start(), m.End())
	if err != nil {
		respondInternal(c, err)
		return
	}
	type key struct{ category, kind string }
	idx := map[key]int{}
	out := []categoryTotal{}
	for _, e := range rows {
		k := key{e.Category, e.Type}
		i, seen := idx[k]
		if !seen {
			i = len(out)
			idx[k] = i
			out = append(out, categoryTotal{Category: e.Category, Type: e.Type})
		}
		out[i].TotalAmount += e.Amount
		out[i].TransactionCount++
	}
	for i := range out {
		out[i].TotalAmount = money.Round2(out[i].TotalAmount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalAmount != out[j].TotalAmount {
			return out[i].TotalAmount > out[j].TotalAmount
		}
		return out[i].Category < out[j].Category
	})
	c.JSON(http.StatusOK, out)
}

// findExpense loads an expense owned by the caller, writing 404 otherwise.
func findExpense(c *gin.Context) (models.Expense, bool) {
	id, ok := paramID(c, "id", "Expense")
	if !ok {
		return models.Expense{}, false
	}
	var e models.Expense
	err := db.WithContext(c.Request.Context()).Where("id = ? AND user_id = ?", id, currentUserID(c)).First(&e).Error
	if err != nil {
		if isNotFound(err) {
			respondNotFound(c, "Expense")
		} else {
			respondInternal(c, err)
		}
		return models.Expense{}, false
	}
	return e, true
}

func ocrMinConfidence() float64 {
	if cfg == nil {
		return 0.15
	}
	return cfg.OCRMinConfidence
}

func uploadBase() string {
	if cfg == nil || cfg.UploadBase == "" {
		return "uploads"
	}
	return cfg.UploadBase
}

// uploadReceiptHandler stores a receipt image for an expense and runs OCR
// on it. With apply=true a detected amount replaces the expense amount.
// Receipts where detection failed are kept for review.
func uploadReceiptHandler(c *gin.Context) {
	exp, ok := findExpense(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxReceiptBytes+1<<20)
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "File missing")
		return
	}
	if file.Size > maxReceiptBytes {
		respondError(c, http.StatusBadRequest, "File too large (max 5MB)")
		return
	}
	ct := file.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		respondError(c, http.StatusBadRequest, "File must be an image")
		return
	}

	rel := filepath.Join("receipts", strconv.FormatUint(uint64(exp.UserID), 10),
		uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
	full := filepath.Join(uploadBase(), rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		respondInternal(c, err)
		return
	}
	if err := c.SaveUploadedFile(file, full); err != nil {
		respondInternal(c, err)
		return
	}

	rec := models.Receipt{
		UserID:      exp.UserID,
		ExpenseID:   &exp.ID,
		FileName:    filepath.Base(file.Filename),
		StorePath:   filepath.ToSlash(rel),
		ContentType: ct,
	}
	describe(&rec, extract(c, full))

	apply := c.Query("apply") == "true" || c.PostForm("apply") == "true"
	applied := false
	err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if apply && rec.DetectedAmount != nil {
			applied = true
			return tx.Model(&models.Expense{}).Where("id = ?", exp.ID).Update("amount", *rec.DetectedAmount).Error
		}
		return nil
	})
	if err != nil {
		_ = os.Remove(full)
		respondInternal(c, err)
		return
	}

	emit(c, events.ReceiptProcessed, exp.UserID, gin.H{
		"receipt_id":      rec.ID,
		"expense_id":      exp.ID,
		"detected_amount": rec.DetectedAmount,
		"failed":          rec.Failed,
	})
	c.JSON(http.StatusCreated, gin.H{
		"receipt":         rec,
		"detected_amount": rec.DetectedAmount,
		"confidence":      rec.Confidence,
		"applied":         applied,
	})
}

type extraction struct {
	result receipt.Result
	err    error
}

func extract(c *gin.Context, path string) extraction {
	started := time.Now()
	res, err := extractor.Extract(path)
	log := logx.FromGin(c)
	if err != nil && !errors.Is(err, receipt.ErrNoAmount) {
		log.Warn("Receipt OCR failed", logx.FieldError, err, "path", path)
	} else {
		log.Debug("Receipt OCR done", "amount", res.Amount, "confidence", res.Confidence,
			logx.FieldDuration, time.Since(started).Milliseconds())
	}
	return extraction{result: res, err: err}
}

// describe records the OCR outcome on the receipt row.
func describe(rec *models.Receipt, ex extraction) {
	receipt.Describe(rec, ex.result, ex.err, ocrMinConfidence())
}

func listReceiptsHandler(c *gin.Context) {
	exp, ok := findExpense(c)
	if !ok {
		return
	}
	receipts := []models.Receipt{}
	err := db.WithContext(c.Request.Context()).
		Where("expense_id = ? AND user_id = ?", exp.ID, exp.UserID).
		Order("created_at DESC").
		Find(&receipts).Error
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipts": receipts})
}
