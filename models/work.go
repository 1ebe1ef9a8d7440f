package models

import "time"

// Payment states of a logged work day.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// WorkSchedule is one weekday of a user's recurring schedule.
// DayOfWeek follows time.Weekday: 0 is Sunday.
type WorkSchedule struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_schedule_user_day" json:"user_id"`
	DayOfWeek    int       `gorm:"not null;uniqueIndex:idx_schedule_user_day" json:"day_of_week"`
	IsWorkDay    bool      `gorm:"not null" json:"is_work_day"`
	DefaultHours float64   `gorm:"type:decimal(4,2);not null" json:"default_hours"`
}

// DefaultSchedule is created for every new user: Monday to Friday at
// eight hours, weekends off.
func DefaultSchedule(userID uint) []WorkSchedule {
	out := make([]WorkSchedule, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		ws := WorkSchedule{UserID: userID, DayOfWeek: int(d)}
		if d != time.Sunday && d != time.Saturday {
			ws.IsWorkDay = true
			ws.DefaultHours = 8
		}
		out = append(out, ws)
	}
	return out
}

// WorkDay is a day the user actually worked.
type WorkDay struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_work_user_date" json:"user_id"`
	WorkDate      Date      `gorm:"not null;uniqueIndex:idx_work_user_date" json:"work_date"`
	StartTime     *string   `gorm:"size:5" json:"start_time"`
	EndTime       *string   `gorm:"size:5" json:"end_time"`
	HoursWorked   float64   `gorm:"type:decimal(4,2);not null" json:"hours_worked"`
	TipsAmount    float64   `gorm:"type:decimal(10,2);not null" json:"tips_amount"`
	Notes         string    `gorm:"type:text" json:"notes"`
	PaymentStatus string    `gorm:"size:10;not null;index" json:"payment_status"`
	PaymentDate   *Date     `json:"payment_date"`

	// Derived from the owner's hourly rate when loaded for a response.
	HourlyRate        float64 `gorm:"-" json:"hourly_rate"`
	CalculatedPayment float64 `gorm:"-" json:"calculated_payment"`
}

// ScheduledWorkDay is a one-off planned work day.
type ScheduledWorkDay struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_scheduled_user_date" json:"user_id"`
	ScheduledDate Date      `gorm:"not null;uniqueIndex:idx_scheduled_user_date" json:"scheduled_date"`
	PlannedHours  float64   `gorm:"type:decimal(4,2);not null" json:"planned_hours"`
	IsRecurring   bool      `gorm:"not null" json:"is_recurring"`
}

// SkippedWorkDay marks a date the user chose not to work.
type SkippedWorkDay struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_skipped_user_date" json:"user_id"`
	SkippedDate Date      `gorm:"not null;uniqueIndex:idx_skipped_user_date" json:"skipped_date"`
	Reason      string    `gorm:"size:255" json:"reason"`
}

// DefaultSkipReason is recorded when a day is skipped without a reason.
const DefaultSkipReason = "manually_skipped"
