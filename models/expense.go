package models

import "time"

// Transaction types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Expense is a single income or expense transaction.
type Expense struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      uint      `gorm:"not null;index:idx_expense_user_date" json:"user_id"`
	Category    string    `gorm:"size:100;not null" json:"category"`
	Description string    `gorm:"size:255;not null" json:"description"`
	Amount      float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	ExpenseDate Date      `gorm:"not null;index:idx_expense_user_date" json:"expense_date"`
	Type        string    `gorm:"size:10;not null" json:"type"`
}

// Receipt is an uploaded receipt image, optionally linked to an expense.
// Failed receipts are kept so they can be reviewed.
type Receipt struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	ExpenseID      *uint     `gorm:"index" json:"expense_id"`
	FileName       string    `gorm:"size:255;not null" json:"file_name"`
	StorePath      string    `gorm:"size:512" json:"store_path"`
	ContentType    string    `gorm:"size:128" json:"content_type"`
	DetectedAmount *float64  `gorm:"type:decimal(10,2)" json:"detected_amount"`
	Confidence     float64   `json:"confidence"`
	RawMatch       string    `gorm:"size:64" json:"raw_match"`
	Failed         bool      `gorm:"not null;index" json:"failed"`
	FailedReason   string    `gorm:"size:255" json:"failed_reason"`
}
