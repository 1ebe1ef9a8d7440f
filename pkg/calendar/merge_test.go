package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrack/models"
)

func day(s string) models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMerge(t *testing.T) {
	t.Run("empty_inputs", func(t *testing.T) {
		out := Merge(15, nil, nil, nil)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	})

	t.Run("scheduled_only", func(t *testing.T) {
		out := Merge(15, []models.ScheduledWorkDay{{ScheduledDate: day("2024-03-04"), PlannedHours: 6}}, nil, nil)
		require.Len(t, out, 1)
		assert.Equal(t, "2024-03-04", out[0].WorkDate)
		assert.Equal(t, StatusScheduled, out[0].Status)
		assert.Equal(t, 6.0, out[0].Hours)
		require.NotNil(t, out[0].IsRecurring)
		assert.False(t, *out[0].IsRecurring)
		assert.Nil(t, out[0].CalculatedPayment)
	})

	t.Run("skipped_beats_scheduled", func(t *testing.T) {
		out := Merge(15,
			[]models.ScheduledWorkDay{{ScheduledDate: day("2024-03-05"), PlannedHours: 8}},
			[]models.SkippedWorkDay{{SkippedDate: day("2024-03-05"), Reason: "sick"}},
			nil)
		require.Len(t, out, 1)
		assert.Equal(t, StatusSkipped, out[0].Status)
		assert.Equal(t, 0.0, out[0].Hours)
		require.NotNil(t, out[0].Reason)
		assert.Equal(t, "sick", *out[0].Reason)
	})

	t.Run("worked_beats_everything", func(t *testing.T) {
		out := Merge(15,
			[]models.ScheduledWorkDay{{ScheduledDate: day("2024-03-06"), PlannedHours: 8}},
			[]models.SkippedWorkDay{{SkippedDate: day("2024-03-06"), Reason: models.DefaultSkipReason}},
			[]models.WorkDay{{WorkDate: day("2024-03-06"), HoursWorked: 7.5, TipsAmount: 12.5, PaymentStatus: models.PaymentPaid}})
		require.Len(t, out, 1)
		d := out[0]
		assert.Equal(t, StatusWorked, d.Status)
		assert.Equal(t, 7.5, d.Hours)
		require.NotNil(t, d.CalculatedPayment)
		assert.Equal(t, 112.5, *d.CalculatedPayment)
		require.NotNil(t, d.TipsAmount)
		assert.Equal(t, 12.5, *d.TipsAmount)
		assert.Equal(t, models.PaymentPaid, d.PaymentStatus)
		assert.Nil(t, d.Reason)
	})

	t.Run("precedence_independent_of_input_order", func(t *testing.T) {
		// worked listed first in the slice of a later source must still win
		out := Merge(10,
			[]models.ScheduledWorkDay{{ScheduledDate: day("2024-03-07"), PlannedHours: 4}},
			[]models.SkippedWorkDay{{SkippedDate: day("2024-03-07")}, {SkippedDate: day("2024-03-07"), Reason: "dup"}},
			[]models.WorkDay{{WorkDate: day("2024-03-07"), HoursWorked: 2}})
		require.Len(t, out, 1)
		assert.Equal(t, StatusWorked, out[0].Status)
		assert.Equal(t, 20.0, *out[0].CalculatedPayment)
	})

	t.Run("sorted_by_date", func(t *testing.T) {
		out := Merge(15,
			[]models.ScheduledWorkDay{{ScheduledDate: day("2024-03-20"), PlannedHours: 8}, {ScheduledDate: day("2024-03-02"), PlannedHours: 8}},
			[]models.SkippedWorkDay{{SkippedDate: day("2024-03-11")}},
			[]models.WorkDay{{WorkDate: day("2024-03-01"), HoursWorked: 8}})
		require.Len(t, out, 4)
		var dates []string
		for _, d := range out {
			dates = append(dates, d.WorkDate)
		}
		assert.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-11", "2024-03-20"}, dates)
	})

	t.Run("payment_rounded_to_cents", func(t *testing.T) {
		out := Merge(15.435, nil, nil, []models.WorkDay{{WorkDate: day("2024-03-08"), HoursWorked: 3.75}})
		require.Len(t, out, 1)
		assert.Equal(t, 57.88, *out[0].CalculatedPayment)
	})
}

func TestSummarize(t *testing.T) {
	days := Merge(20,
		[]models.ScheduledWorkDay{{ScheduledDate: day("2024-05-01"), PlannedHours: 8}, {ScheduledDate: day("2024-05-02"), PlannedHours: 6}},
		[]models.SkippedWorkDay{{SkippedDate: day("2024-05-03")}},
		[]models.WorkDay{{WorkDate: day("2024-05-04"), HoursWorked: 5, TipsAmount: 3.3}, {WorkDate: day("2024-05-05"), HoursWorked: 2.5}})
	got := Summarize(days)
	assert.Equal(t, Totals{
		ScheduledDays: 2,
		SkippedDays:   1,
		WorkedDays:    2,
		PlannedHours:  14,
		WorkedHours:   7.5,
		Earnings:      150,
		Tips:          3.3,
	}, got)
}

func TestParseMonth(t *testing.T) {
	now := time.Date(2024, time.July, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		month   string
		year    string
		want    Month
		wantErr error
	}{
		{"defaults_to_now", "", "", Month{2024, time.July}, nil},
		{"explicit", "2", "2023", Month{2023, time.February}, nil},
		{"month_only", "12", "", Month{2024, time.December}, nil},
		{"month_zero", "0", "2024", Month{}, ErrInvalidMonth},
		{"month_thirteen", "13", "2024", Month{}, ErrInvalidMonth},
		{"month_garbage", "jan", "2024", Month{}, ErrInvalidMonth},
		{"year_garbage", "1", "20x4", Month{}, ErrInvalidYear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonth(tt.month, tt.year, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonthBounds(t *testing.T) {
	feb := Month{Year: 2024, Month: time.February}
	assert.Equal(t, "2024-02-01", feb.Start().String())
	assert.Equal(t, "2024-03-01", feb.End().String())
	assert.Equal(t, "2024-02", feb.Key())

	dec := Month{Year: 2023, Month: time.December}
	assert.Equal(t, "2024-01-01", dec.End().String())

	start, end := YearBounds(2025)
	assert.Equal(t, "2025-01-01", start.String())
	assert.Equal(t, "2026-01-01", end.String())
}

func TestUpcoming(t *testing.T) {
	schedule := models.DefaultSchedule(1)
	// 2024-03-01 is a Friday
	from := day("2024-03-01")
	logged := map[string]float64{"2024-03-04": 6.5}

	out := Upcoming(from, 7, schedule, logged)
	require.Len(t, out, 5)
	assert.Equal(t, "2024-03-01", out[0].Date)
	assert.Equal(t, 5, out[0].DayOfWeek)
	assert.Equal(t, 8.0, out[0].DefaultHours)
	assert.False(t, out[0].IsLogged)
	assert.Nil(t, out[0].LoggedHours)

	assert.Equal(t, "2024-03-04", out[1].Date)
	assert.True(t, out[1].IsLogged)
	require.NotNil(t, out[1].LoggedHours)
	assert.Equal(t, 6.5, *out[1].LoggedHours)

	assert.Empty(t, Upcoming(from, 0, schedule, nil))
	assert.Empty(t, Upcoming(from, 7, nil, nil))
}
