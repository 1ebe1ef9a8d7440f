package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"worktrack/models"
	"worktrack/pkg/calendar"
	"worktrack/pkg/money"
)

type workTotals struct {
	DaysWorked     int     `json:"days_worked"`
	TotalHours     float64 `json:"total_hours"`
	AvgHoursPerDay float64 `json:"avg_hours_per_day"`
	TotalEarnings  float64 `json:"total_earnings"`
	TotalTips      float64 `json:"total_tips"`
}

func summarizeWork(days []models.WorkDay, rate float64) workTotals {
	var t workTotals
	for _, d := range days {
		t.DaysWorked++
		t.TotalHours += d.HoursWorked
		t.TotalTips += d.TipsAmount
	}
	if t.DaysWorked > 0 {
		t.AvgHoursPerDay = money.Round2(t.TotalHours / float64(t.DaysWorked))
	}
	t.TotalEarnings = money.Payment(t.TotalHours, rate)
	t.TotalHours = money.Round2(t.TotalHours)
	t.TotalTips = money.Round2(t.TotalTips)
	return t
}

func summarizeExpenses(rows []models.Expense) monthTotals {
	var t monthTotals
	for _, e := range rows {
		t.add(e)
	}
	t.round()
	return t
}

// monthSnapshot holds the current month figures shared by both dashboards.
type monthSnapshot struct {
	Work     workTotals  `json:"work"`
	Expenses monthTotals `json:"expenses"`
}

// loadSnapshot queries the month's work days and transactions in parallel
// with the other reads registered on g.
func loadSnapshot(ctx context.Context, g *errgroup.Group, userID uint, rate float64, m calendar.Month, out *monthSnapshot) {
	g.Go(func() error {
		var days []models.WorkDay
		q := db.WithContext(ctx).Where("user_id = ?", userID)
		if err := inRange(q, "work_date", m.Start(), m.End()).Find(&days).Error; err != nil {
			return err
		}
		out.Work = summarizeWork(days, rate)
		return nil
	})
	g.Go(func() error {
		var rows []models.Expense
		q := db.WithContext(ctx).Where("user_id = ?", userID)
		if err := inRange(q, "expense_date", m.Start(), m.End()).Find(&rows).Error; err != nil {
			return err
		}
		out.Expenses = summarizeExpenses(rows)
		return nil
	})
}

func recentTransactions(ctx context.Context, userID uint, n int, out *[]models.Expense) error {
	*out = []models.Expense{}
	return db.WithContext(ctx).Where("user_id = ?", userID).
		Order("expense_date DESC").Order("created_at DESC").
		Limit(n).Find(out).Error
}

func dashboardHandler(c *gin.Context) {
	user, ok := loadCurrentUser(c)
	if !ok {
		return
	}
	now := time.Now()
	m := calendar.Month{Year: now.Year(), Month: now.Month()}

	var (
		snap   monthSnapshot
		recent = []models.WorkDay{}
		txs    []models.Expense
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	loadSnapshot(ctx, g, user.ID, user.HourlyRate, m, &snap)
	g.Go(func() error {
		return db.WithContext(ctx).Where("user_id = ?", user.ID).
			Order("work_date DESC").Limit(5).Find(&recent).Error
	})
	g.Go(func() error { return recentTransactions(ctx, user.ID, 5, &txs) })
	if err := g.Wait(); err != nil {
		respondInternal(c, err)
		return
	}
	withPayment(recent, user.HourlyRate)
	c.JSON(http.StatusOK, gin.H{
		"currentMonth":       snap,
		"recentWork":         withTotalPay(recent),
		"recentTransactions": txs,
	})
}

// recentWorkDay repeats the payment as total_pay, the name dashboard
// clients read.
type recentWorkDay struct {
	models.WorkDay
	TotalPay float64 `json:"total_pay"`
}

func withTotalPay(days []models.WorkDay) []recentWorkDay {
	out := make([]recentWorkDay, len(days))
	for i, d := range days {
		out[i] = recentWorkDay{WorkDay: d, TotalPay: d.CalculatedPayment}
	}
	return out
}

type adherence struct {
	DayOfWeek      int     `json:"day_of_week"`
	IsWorkDay      bool    `json:"is_work_day"`
	DefaultHours   float64 `json:"default_hours"`
	AvgActualHours float64 `json:"avg_actual_hours"`
}

// scheduleAdherence compares each weekday's planned hours with the average
// logged on that weekday during the month.
func scheduleAdherence(schedule []models.WorkSchedule, days []models.WorkDay) []adherence {
	var (
		sum   [7]float64
		count [7]int
	)
	for _, d := range days {
		wd := int(d.WorkDate.Weekday())
		sum[wd] += d.HoursWorked
		count[wd]++
	}
	out := make([]adherence, 0, len(schedule))
	for _, s := range schedule {
		a := adherence{DayOfWeek: s.DayOfWeek, IsWorkDay: s.IsWorkDay, DefaultHours: s.DefaultHours}
		if s.DayOfWeek >= 0 && s.DayOfWeek < 7 && count[s.DayOfWeek] > 0 {
			a.AvgActualHours = money.Round2(sum[s.DayOfWeek] / float64(count[s.DayOfWeek]))
		}
		out = append(out, a)
	}
	return out
}

func dashboardOverviewHandler(c *gin.Context) {
	user, ok := loadCurrentUser(c)
	if !ok {
		return
	}
	now := time.Now()
	m := calendar.Month{Year: now.Year(), Month: now.Month()}
	weekAgo := models.DateOf(now).AddDays(-7)

	var (
		snap      monthSnapshot
		lastWeek  = []models.WorkDay{}
		txs       []models.Expense
		schedule  []models.WorkSchedule
		monthDays []models.WorkDay
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	loadSnapshot(ctx, g, user.ID, user.HourlyRate, m, &snap)
	g.Go(func() error {
		return db.WithContext(ctx).Where("user_id = ? AND work_date >= ?", user.ID, weekAgo).
			Order("work_date DESC").Limit(7).Find(&lastWeek).Error
	})
	g.Go(func() error { return recentTransactions(ctx, user.ID, 10, &txs) })
	g.Go(func() error {
		return db.WithContext(ctx).Where("user_id = ?", user.ID).Order("day_of_week").Find(&schedule).Error
	})
	g.Go(func() error {
		q := db.WithContext(ctx).Where("user_id = ?", user.ID)
		return inRange(q, "work_date", m.Start(), m.End()).Find(&monthDays).Error
	})
	if err := g.Wait(); err != nil {
		respondInternal(c, err)
		return
	}
	withPayment(lastWeek, user.HourlyRate)
	c.JSON(http.StatusOK, gin.H{
		"user":         viewUser(user),
		"currentMonth": snap,
		"recentActivity": gin.H{
			"workDays":     lastWeek,
			"transactions": txs,
		},
		"scheduleAdherence": scheduleAdherence(schedule, monthDays),
	})
}

type yearMonth struct {
	Month        int     `json:"month"`
	WorkEarnings float64 `json:"work_earnings"`
	TotalHours   float64 `json:"total_hours"`
	DaysWorked   int     `json:"days_worked"`
	Income       float64 `json:"income"`
	Expense      float64 `json:"expense"`
	TotalIncome  float64 `json:"total_income"`
	Net          float64 `json:"net"`
}

// yearOverview buckets a year of work and transactions into twelve months.
func yearOverview(days []models.WorkDay, rows []models.Expense, rate float64) []yearMonth {
	out := make([]yearMonth, 12)
	for i := range out {
		out[i].Month = i + 1
	}
	for _, d := range days {
		m := &out[d.WorkDate.Month()-1]
		m.TotalHours += d.HoursWorked
		m.DaysWorked++
	}
	for _, e := range rows {
		m := &out[e.ExpenseDate.Month()-1]
		if e.Type == models.TypeIncome {
			m.Income += e.Amount
		} else {
			m.Expense += e.Amount
		}
	}
	for i := range out {
		m := &out[i]
		m.WorkEarnings = money.Payment(m.TotalHours, rate)
		m.TotalHours = money.Round2(m.TotalHours)
		m.Income = money.Round2(m.Income)
		m.Expense = money.Round2(m.Expense)
		m.TotalIncome = money.Round2(m.WorkEarnings + m.Income)
		m.Net = money.Round2(m.TotalIncome - m.Expense)
	}
	return out
}

func yearOverviewHandler(c *gin.Context) {
	year, ok := yearQuery(c)
	if !ok {
		return
	}
	user, ok := loadCurrentUser(c)
	if !ok {
		return
	}
	start, end := calendar.YearBounds(year)
	var (
		days []models.WorkDay
		rows []models.Expense
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		q := db.WithContext(ctx).Where("user_id = ?", user.ID)
		return inRange(q, "work_date", start, end).Find(&days).Error
	})
	g.Go(func() error {
		q := db.WithContext(ctx).Where("user_id = ?", user.ID)
		return inRange(q, "expense_date", start, end).Find(&rows).Error
	})
	if err := g.Wait(); err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "monthlyData": yearOverview(days, rows, user.HourlyRate)})
}

const maxUpcomingDays = 60

func upcomingScheduleHandler(c *gin.Context) {
	n := 7
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > maxUpcomingDays {
			respondFieldError(c, "days", "must be between 1 and 60")
			return
		}
		n = parsed
	}
	uid := currentUserID(c)
	from := models.Today()

	var (
		schedule []models.WorkSchedule
		logged   []models.WorkDay
	)
	if err := db.WithContext(c.Request.Context()).Where("user_id = ?", uid).Find(&schedule).Error; err != nil {
		respondInternal(c, err)
		return
	}
	q := db.WithContext(c.Request.Context()).Where("user_id = ?", uid)
	if err := inRange(q, "work_date", from, from.AddDays(n)).Find(&logged).Error; err != nil {
		respondInternal(c, err)
		return
	}
	hours := make(map[string]float64, len(logged))
	for _, d := range logged {
		hours[d.WorkDate.String()] = d.HoursWorked
	}
	c.JSON(http.StatusOK, calendar.Upcoming(from, n, schedule, hours))
}
