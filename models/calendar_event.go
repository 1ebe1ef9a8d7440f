package models

import (
	"encoding/json"
	"time"
)

// DefaultEventColor is used when an event is created without a color.
const DefaultEventColor = "#3B82F6"

// CalendarEvent is a user's todo, meeting, reminder or appointment.
// Attendees holds a JSON array of strings.
type CalendarEvent struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	UserID          uint      `gorm:"not null;index:idx_event_user_date" json:"-"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	EventType       string    `gorm:"size:20;not null;index" json:"event_type"`
	StartDate       Date      `gorm:"not null;index:idx_event_user_date" json:"start_date"`
	EndDate         *Date     `json:"end_date"`
	StartTime       *string   `gorm:"size:5" json:"start_time"`
	EndTime         *string   `gorm:"size:5" json:"end_time"`
	IsAllDay        bool      `gorm:"not null" json:"is_all_day"`
	Priority        string    `gorm:"size:10;not null" json:"priority"`
	Status          string    `gorm:"size:20;not null;index" json:"status"`
	ReminderMinutes *int      `json:"reminder_minutes"`
	Location        string    `gorm:"size:255" json:"location"`
	Attendees       string    `gorm:"type:text" json:"-"`
	Color           string    `gorm:"size:7" json:"color"`
}

// AttendeeList decodes Attendees, tolerating an empty column.
func (e CalendarEvent) AttendeeList() []string {
	out := []string{}
	if e.Attendees == "" {
		return out
	}
	_ = json.Unmarshal([]byte(e.Attendees), &out)
	return out
}

// MarshalJSON renders attendees as an array instead of the stored text.
func (e CalendarEvent) MarshalJSON() ([]byte, error) {
	type plain CalendarEvent
	return json.Marshal(struct {
		plain
		Attendees []string `json:"attendees"`
	}{plain(e), e.AttendeeList()})
}
