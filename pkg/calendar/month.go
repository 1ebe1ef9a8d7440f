package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"worktrack/models"
)

var (
	ErrInvalidMonth = errors.New("month must be between 1 and 12")
	ErrInvalidYear  = errors.New("year must be between 1970 and 9999")
)

// Month identifies one calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing d.
func MonthOf(d models.Date) Month {
	return Month{Year: d.Year(), Month: d.Month()}
}

// ParseMonth reads month and year query values. Empty values default to
// the month of now.
func ParseMonth(month, year string, now time.Time) (Month, error) {
	m := Month{Year: now.Year(), Month: now.Month()}
	if strings.TrimSpace(month) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(month))
		if err != nil || n < 1 || n > 12 {
			return Month{}, ErrInvalidMonth
		}
		m.Month = time.Month(n)
	}
	y, err := ParseYear(year, now)
	if err != nil {
		return Month{}, err
	}
	m.Year = y
	return m, nil
}

// ParseYear reads a year query value, defaulting to the year of now.
func ParseYear(year string, now time.Time) (int, error) {
	year = strings.TrimSpace(year)
	if year == "" {
		return now.Year(), nil
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1970 || y > 9999 {
		return 0, ErrInvalidYear
	}
	return y, nil
}

// Start is the first day of the month.
func (m Month) Start() models.Date {
	return models.NewDate(m.Year, m.Month, 1)
}

// End is the first day of the following month (exclusive bound).
func (m Month) End() models.Date {
	return models.DateOf(m.Start().Time.AddDate(0, 1, 0))
}

// Key formats the month as YYYY-MM.
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// YearBounds returns the first day of year and of the following year.
func YearBounds(year int) (models.Date, models.Date) {
	return models.NewDate(year, time.January, 1), models.NewDate(year+1, time.January, 1)
}
