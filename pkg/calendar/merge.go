// Package calendar builds the monthly work calendar: planned, skipped and
// worked days folded into one entry per date.
package calendar

import (
	"sort"

	"worktrack/models"
	"worktrack/pkg/money"
)

// Status of a calendar day.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSkipped   Status = "skipped"
	StatusWorked    Status = "worked"
)

// rank orders statuses by precedence; a higher rank replaces a lower one.
func (s Status) rank() int {
	switch s {
	case StatusWorked:
		return 3
	case StatusSkipped:
		return 2
	case StatusScheduled:
		return 1
	}
	return 0
}

// Day is one merged calendar entry. Fields that do not apply to the
// status are omitted.
type Day struct {
	WorkDate          string   `json:"work_date"`
	Hours             float64  `json:"hours"`
	Status            Status   `json:"status"`
	IsRecurring       *bool    `json:"is_recurring,omitempty"`
	Reason            *string  `json:"reason,omitempty"`
	CalculatedPayment *float64 `json:"calculated_payment,omitempty"`
	TipsAmount        *float64 `json:"tips_amount,omitempty"`
	PaymentStatus     string   `json:"payment_status,omitempty"`
}

// Merge folds the three sources into one entry per date, sorted by date.
// A worked day beats a skipped day, which beats a scheduled day,
// regardless of input order.
func Merge(hourlyRate float64, scheduled []models.ScheduledWorkDay, skipped []models.SkippedWorkDay, worked []models.WorkDay) []Day {
	byDate := make(map[string]Day, len(scheduled)+len(skipped)+len(worked))
	put := func(d Day) {
		if cur, ok := byDate[d.WorkDate]; ok && cur.Status.rank() > d.Status.rank() {
			return
		}
		byDate[d.WorkDate] = d
	}

	for _, s := range scheduled {
		recurring := false
		put(Day{
			WorkDate:    s.ScheduledDate.String(),
			Hours:       s.PlannedHours,
			Status:      StatusScheduled,
			IsRecurring: &recurring,
		})
	}
	for _, s := range skipped {
		reason := s.Reason
		put(Day{
			WorkDate: s.SkippedDate.String(),
			Hours:    0,
			Status:   StatusSkipped,
			Reason:   &reason,
		})
	}
	for _, w := range worked {
		payment := money.Payment(w.HoursWorked, hourlyRate)
		tips := money.Round2(w.TipsAmount)
		put(Day{
			WorkDate:          w.WorkDate.String(),
			Hours:             w.HoursWorked,
			Status:            StatusWorked,
			CalculatedPayment: &payment,
			TipsAmount:        &tips,
			PaymentStatus:     w.PaymentStatus,
		})
	}

	out := make([]Day, 0, len(byDate))
	for _, d := range byDate {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDate < out[j].WorkDate })
	return out
}

// Totals summarizes a merged month.
type Totals struct {
	ScheduledDays int     `json:"scheduled_days"`
	SkippedDays   int     `json:"skipped_days"`
	WorkedDays    int     `json:"worked_days"`
	PlannedHours  float64 `json:"planned_hours"`
	WorkedHours   float64 `json:"worked_hours"`
	Earnings      float64 `json:"earnings"`
	Tips          float64 `json:"tips"`
}

// Summarize counts the merged days by status.
func Summarize(days []Day) Totals {
	var t Totals
	for _, d := range days {
		switch d.Status {
		case StatusScheduled:
			t.ScheduledDays++
			t.PlannedHours += d.Hours
		case StatusSkipped:
			t.SkippedDays++
		case StatusWorked:
			t.WorkedDays++
			t.WorkedHours += d.Hours
			if d.CalculatedPayment != nil {
				t.Earnings += *d.CalculatedPayment
			}
			if d.TipsAmount != nil {
				t.Tips += *d.TipsAmount
			}
		}
	}
	t.PlannedHours = money.Round2(t.PlannedHours)
	t.WorkedHours = money.Round2(t.WorkedHours)
	t.Earnings = money.Round2(t.Earnings)
	t.Tips = money.Round2(t.Tips)
	return t
}
