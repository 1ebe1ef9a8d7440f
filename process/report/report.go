// Package report prints a monthly work and money summary for one user.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/markusmobius/go-dateparser"
	"gorm.io/gorm"

	"worktrack/models"
	"worktrack/pkg/calendar"
	"worktrack/pkg/money"
)

var (
	monthKeyRE = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	periodRE   = regexp.MustCompile(`(?i)^(this|current|last|previous|next)\s+month$`)
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	headingStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4B5563")).
			Padding(0, 1)
)

// CategoryTotal is the money moved in one category during the month.
type CategoryTotal struct {
	Category string
	Type     string
	Total    float64
	Count    int
}

// Report is everything printed for one user and month.
type Report struct {
	User         models.User
	Month        calendar.Month
	Days         []calendar.Day
	Work         calendar.Totals
	Income       float64
	Expense      float64
	Net          float64
	Categories   []CategoryTotal
	Transactions []models.Expense
}

// ResolveMonth accepts YYYY-MM, "this month", "last month", "next month" or
// any phrase go-dateparser understands ("March 2024", "2 months ago").
// Empty input is the month of now.
func ResolveMonth(input string, now time.Time) (calendar.Month, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return calendar.Month{Year: now.Year(), Month: now.Month()}, nil
	}
	if m := monthKeyRE.FindStringSubmatch(input); m != nil {
		return calendar.ParseMonth(m[2], m[1], now)
	}
	if m := periodRE.FindStringSubmatch(input); m != nil {
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		switch strings.ToLower(m[1]) {
		case "last", "previous":
			first = first.AddDate(0, -1, 0)
		case "next":
			first = first.AddDate(0, 1, 0)
		}
		return calendar.Month{Year: first.Year(), Month: first.Month()}, nil
	}

	cfg := &dateparser.Configuration{CurrentTime: now}
	parsed, err := dateparser.Parse(cfg, input)
	if err != nil {
		return calendar.Month{}, fmt.Errorf("parse month %q: %w", input, err)
	}
	if parsed.Time.IsZero() {
		return calendar.Month{}, fmt.Errorf("parse month %q: %w", input, calendar.ErrInvalidMonth)
	}
	return calendar.Month{Year: parsed.Time.Year(), Month: parsed.Time.Month()}, nil
}

// Build loads the user's calendar and transactions for month.
func Build(ctx context.Context, db *gorm.DB, username string, month calendar.Month, list bool) (Report, error) {
	db = db.WithContext(ctx)
	var user models.User
	if err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Report{}, fmt.Errorf("user %q not found", username)
		}
		return Report{}, fmt.Errorf("load user: %w", err)
	}

	start, end := month.Start(), month.End()
	var (
		scheduled []models.ScheduledWorkDay
		skipped   []models.SkippedWorkDay
		worked    []models.WorkDay
		rows      []models.Expense
	)
	if err := db.Where("user_id = ? AND scheduled_date >= ? AND scheduled_date < ?", user.ID, start, end).
		Find(&scheduled).Error; err != nil {
		return Report{}, fmt.Errorf("load scheduled days: %w", err)
	}
	if err := db.Where("user_id = ? AND skipped_date >= ? AND skipped_date < ?", user.ID, start, end).
		Find(&skipped).Error; err != nil {
		return Report{}, fmt.Errorf("load skipped days: %w", err)
	}
	if err := db.Where("user_id = ? AND work_date >= ? AND work_date < ?", user.ID, start, end).
		Find(&worked).Error; err != nil {
		return Report{}, fmt.Errorf("load work days: %w", err)
	}
	if err := db.Where("user_id = ? AND expense_date >= ? AND expense_date < ?", user.ID, start, end).
		Order("expense_date ASC, id ASC").Find(&rows).Error; err != nil {
		return Report{}, fmt.Errorf("load transactions: %w", err)
	}

	r := Report{User: user, Month: month}
	r.Days = calendar.Merge(user.HourlyRate, scheduled, skipped, worked)
	r.Work = calendar.Summarize(r.Days)
	r.Income, r.Expense, r.Categories = totals(rows)
	r.Net = money.Round2(r.Income - r.Expense)
	if list {
		r.Transactions = rows
	}
	return r, nil
}

func totals(rows []models.Expense) (income, expense float64, cats []CategoryTotal) {
	idx := map[string]int{}
	for _, e := range rows {
		if e.Type == models.TypeIncome {
			income += e.Amount
		} else {
			expense += e.Amount
		}
		key := e.Type + "\x00" + e.Category
		i, ok := idx[key]
		if !ok {
			i = len(cats)
			idx[key] = i
			cats = append(cats, CategoryTotal{Category: e.Category, Type: e.Type})
		}
		cats[i].Total += e.Amount
		cats[i].Count++
	}
	for i := range cats {
		cats[i].Total = money.Round2(cats[i].Total)
	}
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].Total != cats[j].Total {
			return cats[i].Total > cats[j].Total
		}
		return cats[i].Category < cats[j].Category
	})
	return money.Round2(income), money.Round2(expense), cats
}

// Render writes the report as styled terminal text.
func (r Report) Render(w io.Writer) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s - %s %d", r.User.Username, r.Month.Month, r.Month.Year)))
	b.WriteString("\n")

	work := strings.Join([]string{
		fmt.Sprintf("Worked days     %d", r.Work.WorkedDays),
		fmt.Sprintf("Worked hours    %.2f", r.Work.WorkedHours),
		fmt.Sprintf("Earnings        %.2f", r.Work.Earnings),
		fmt.Sprintf("Tips            %.2f", r.Work.Tips),
		fmt.Sprintf("Scheduled days  %d (%.2f h planned)", r.Work.ScheduledDays, r.Work.PlannedHours),
		fmt.Sprintf("Skipped days    %d", r.Work.SkippedDays),
	}, "\n")
	b.WriteString(headingStyle.Render("Work"))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(work))
	b.WriteString("\n")

	net := goodStyle
	if r.Net < 0 {
		net = badStyle
	}
	moneyLines := strings.Join([]string{
		fmt.Sprintf("Income          %.2f", r.Income),
		fmt.Sprintf("Expenses        %.2f", r.Expense),
		"Net             " + net.Render(fmt.Sprintf("%.2f", r.Net)),
	}, "\n")
	b.WriteString(headingStyle.Render("Money"))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(moneyLines))
	b.WriteString("\n")

	if len(r.Categories) > 0 {
		b.WriteString(headingStyle.Render("By category"))
		b.WriteString("\n")
		for _, c := range r.Categories {
			fmt.Fprintf(&b, "  %-20s %-8s %10.2f %s\n", c.Category, c.Type, c.Total,
				mutedStyle.Render(fmt.Sprintf("(%d)", c.Count)))
		}
	}

	if r.Transactions != nil {
		b.WriteString(headingStyle.Render("Transactions"))
		b.WriteString("\n")
		if len(r.Transactions) == 0 {
			b.WriteString(mutedStyle.Render("  none"))
			b.WriteString("\n")
		}
		for _, e := range r.Transactions {
			fmt.Fprintf(&b, "  %s  %-8s %-20s %10.2f  %s\n", e.ExpenseDate, e.Type, e.Category, e.Amount, e.Description)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Run resolves month, builds the report and renders it to w.
func Run(ctx context.Context, db *gorm.DB, w io.Writer, username, month string, list bool) error {
	m, err := ResolveMonth(month, time.Now())
	if err != nil {
		return err
	}
	r, err := Build(ctx, db, username, m, list)
	if err != nil {
		return err
	}
	return r.Render(w)
}
