package calendar

import "worktrack/models"

// UpcomingDay is a future work day derived from the weekly schedule.
type UpcomingDay struct {
	Date         string   `json:"date"`
	DayOfWeek    int      `json:"dayOfWeek"`
	DefaultHours float64  `json:"defaultHours"`
	IsLogged     bool     `json:"isLogged"`
	LoggedHours  *float64 `json:"loggedHours"`
}

// Upcoming walks n days starting at from and keeps the days the weekly
// schedule marks as work days. logged maps YYYY-MM-DD to hours already
// recorded for that date.
func Upcoming(from models.Date, n int, schedule []models.WorkSchedule, logged map[string]float64) []UpcomingDay {
	byWeekday := make(map[int]models.WorkSchedule, len(schedule))
	for _, s := range schedule {
		byWeekday[s.DayOfWeek] = s
	}
	out := []UpcomingDay{}
	for i := 0; i < n; i++ {
		d := from.AddDays(i)
		wd := int(d.Weekday())
		s, ok := byWeekday[wd]
		if !ok || !s.IsWorkDay {
			continue
		}
		day := UpcomingDay{Date: d.String(), DayOfWeek: wd, DefaultHours: s.DefaultHours}
		if h, ok := logged[day.Date]; ok {
			hours := h
			day.IsLogged = true
			day.LoggedHours = &hours
		}
		out = append(out, day)
	}
	return out
}
