package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrack/models"
	"worktrack/pkg/calendar"
	"worktrack/pkg/testdb"
)

func TestResolveMonth(t *testing.T) {
	now := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want calendar.Month
	}{
		{"", calendar.Month{Year: 2024, Month: time.March}},
		{"2023-11", calendar.Month{Year: 2023, Month: time.November}},
		{"2024-1", calendar.Month{Year: 2024, Month: time.January}},
		{"last month", calendar.Month{Year: 2024, Month: time.February}},
		{"This Month", calendar.Month{Year: 2024, Month: time.March}},
		{"next month", calendar.Month{Year: 2024, Month: time.April}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ResolveMonth(tt.in, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ResolveMonth("2024-13", now)
	assert.ErrorIs(t, err, calendar.ErrInvalidMonth)
}

func TestBuildAndRender(t *testing.T) {
	db := testdb.Open(t)
	user := models.User{Username: "reporter", Email: "reporter@example.com", HashedPassword: []byte("x"), HourlyRate: 20}
	require.NoError(t, db.Create(&user).Error)

	require.NoError(t, db.Create(&[]models.WorkDay{
		{UserID: user.ID, WorkDate: models.NewDate(2024, time.May, 2), HoursWorked: 6, TipsAmount: 12.5, PaymentStatus: models.PaymentPending},
		{UserID: user.ID, WorkDate: models.NewDate(2024, time.May, 3), HoursWorked: 4, PaymentStatus: models.PaymentPaid},
		{UserID: user.ID, WorkDate: models.NewDate(2024, time.June, 1), HoursWorked: 8, PaymentStatus: models.PaymentPending},
	}).Error)
	require.NoError(t, db.Create(&models.ScheduledWorkDay{UserID: user.ID, ScheduledDate: models.NewDate(2024, time.May, 20), PlannedHours: 5}).Error)
	require.NoError(t, db.Create(&models.SkippedWorkDay{UserID: user.ID, SkippedDate: models.NewDate(2024, time.May, 21), Reason: "sick"}).Error)
	require.NoError(t, db.Create(&[]models.Expense{
		{UserID: user.ID, Category: "Food", Description: "Groceries", Amount: 40, ExpenseDate: models.NewDate(2024, time.May, 4), Type: models.TypeExpense},
		{UserID: user.ID, Category: "Food", Description: "Lunch", Amount: 10.25, ExpenseDate: models.NewDate(2024, time.May, 5), Type: models.TypeExpense},
		{UserID: user.ID, Category: "Gift", Description: "Birthday", Amount: 100, ExpenseDate: models.NewDate(2024, time.May, 6), Type: models.TypeIncome},
		{UserID: user.ID, Category: "Rent", Description: "June rent", Amount: 900, ExpenseDate: models.NewDate(2024, time.June, 1), Type: models.TypeExpense},
	}).Error)

	r, err := Build(context.Background(), db, "reporter", calendar.Month{Year: 2024, Month: time.May}, true)
	require.NoError(t, err)

	assert.Equal(t, calendar.Totals{
		ScheduledDays: 1, SkippedDays: 1, WorkedDays: 2,
		PlannedHours: 5, WorkedHours: 10, Earnings: 200, Tips: 12.5,
	}, r.Work)
	assert.Len(t, r.Days, 4)
	assert.Equal(t, 100.0, r.Income)
	assert.Equal(t, 50.25, r.Expense)
	assert.Equal(t, 49.75, r.Net)
	require.Len(t, r.Categories, 2)
	assert.Equal(t, CategoryTotal{Category: "Gift", Type: models.TypeIncome, Total: 100, Count: 1}, r.Categories[0])
	assert.Equal(t, CategoryTotal{Category: "Food", Type: models.TypeExpense, Total: 50.25, Count: 2}, r.Categories[1])
	assert.Len(t, r.Transactions, 3)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "reporter")
	assert.Contains(t, out, "May 2024")
	assert.Contains(t, out, "200.00")
	assert.Contains(t, out, "49.75")
	assert.Contains(t, out, "Groceries")

	r, err = Build(context.Background(), db, "reporter", calendar.Month{Year: 2024, Month: time.May}, false)
	require.NoError(t, err)
	assert.Nil(t, r.Transactions)

	_, err = Build(context.Background(), db, "nobody", calendar.Month{Year: 2024, Month: time.May}, false)
	assert.ErrorContains(t, err, "not found")
}
