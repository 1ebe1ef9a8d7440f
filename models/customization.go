package models

import (
	"encoding/json"
	"time"
)

var (
	AppliesTo    = []string{"work", "expense", "goal", "global"}
	RecordTypes  = []string{"work", "expense", "goal"}
	DefaultOrder = []string{"goals", "stats", "schedule", "work", "expenses"}
)

// DashboardSettings holds one user's dashboard layout. WidgetOrder is a
// JSON array of widget names.
type DashboardSettings struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	UserID             uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	LayoutType         string    `gorm:"size:10;not null" json:"layout_type"`
	Theme              string    `gorm:"size:10;not null" json:"theme"`
	PrimaryColor       string    `gorm:"size:7;not null" json:"primary_color"`
	SecondaryColor     string    `gorm:"size:7;not null" json:"secondary_color"`
	ShowGoals          bool      `gorm:"not null" json:"show_goals"`
	ShowStats          bool      `gorm:"not null" json:"show_stats"`
	ShowSchedule       bool      `gorm:"not null" json:"show_schedule"`
	ShowRecentWork     bool      `gorm:"not null" json:"show_recent_work"`
	ShowExpenses       bool      `gorm:"not null" json:"show_expenses"`
	WidgetOrder        string    `gorm:"type:text;not null" json:"-"`
	GoalsWidgetSize    string    `gorm:"size:10;not null" json:"goals_widget_size"`
	StatsWidgetSize    string    `gorm:"size:10;not null" json:"stats_widget_size"`
	ScheduleWidgetSize string    `gorm:"size:10;not null" json:"schedule_widget_size"`
	WorkWidgetSize     string    `gorm:"size:10;not null" json:"work_widget_size"`
	ExpensesWidgetSize string    `gorm:"size:10;not null" json:"expenses_widget_size"`
}

func (DashboardSettings) TableName() string { return "dashboard_settings" }

// DefaultDashboardSettings mirrors the column defaults of the schema.
func DefaultDashboardSettings(userID uint) DashboardSettings {
	order, _ := json.Marshal(DefaultOrder)
	return DashboardSettings{
		UserID:             userID,
		LayoutType:         "grid",
		Theme:              "light",
		PrimaryColor:       "#4338ca",
		SecondaryColor:     "#64748b",
		ShowGoals:          true,
		ShowStats:          true,
		ShowSchedule:       true,
		ShowRecentWork:     true,
		ShowExpenses:       true,
		WidgetOrder:        string(order),
		GoalsWidgetSize:    "large",
		StatsWidgetSize:    "medium",
		ScheduleWidgetSize: "medium",
		WorkWidgetSize:     "medium",
		ExpensesWidgetSize: "small",
	}
}

// WidgetOrderList decodes WidgetOrder, falling back to the default order.
func (s DashboardSettings) WidgetOrderList() []string {
	var out []string
	if err := json.Unmarshal([]byte(s.WidgetOrder), &out); err != nil || len(out) == 0 {
		return append([]string(nil), DefaultOrder...)
	}
	return out
}

func (s DashboardSettings) MarshalJSON() ([]byte, error) {
	type plain DashboardSettings
	return json.Marshal(struct {
		plain
		WidgetOrder []string `json:"widget_order"`
	}{plain(s), s.WidgetOrderList()})
}

// CustomField is a user-defined field attached to work days, expenses or goals.
type CustomField struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	FieldName    string    `gorm:"size:100;not null" json:"field_name"`
	FieldType    string    `gorm:"size:10;not null" json:"field_type"`
	FieldLabel   string    `gorm:"size:200;not null" json:"field_label"`
	FieldOptions JSONText  `gorm:"type:text" json:"field_options"`
	IsRequired   bool      `gorm:"not null" json:"is_required"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	AppliesTo    string    `gorm:"size:10;not null" json:"applies_to"`
	DisplayOrder int       `gorm:"not null" json:"display_order"`
}

type CustomFieldValue struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CustomFieldID uint      `gorm:"not null;uniqueIndex:idx_field_record" json:"custom_field_id"`
	RecordID      uint      `gorm:"not null;uniqueIndex:idx_field_record" json:"record_id"`
	RecordType    string    `gorm:"size:10;not null;uniqueIndex:idx_field_record" json:"record_type"`
	FieldValue    string    `gorm:"type:text" json:"field_value"`
}

// DashboardWidget is a freely positioned widget. WidgetConfig is raw JSON.
type DashboardWidget struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	WidgetType   string    `gorm:"size:50;not null" json:"widget_type"`
	WidgetTitle  string    `gorm:"size:200" json:"widget_title"`
	WidgetConfig JSONText  `gorm:"type:text" json:"widget_config"`
	PositionX    int       `gorm:"not null" json:"position_x"`
	PositionY    int       `gorm:"not null" json:"position_y"`
	Width        int       `gorm:"not null" json:"width"`
	Height       int       `gorm:"not null" json:"height"`
	IsVisible    bool      `gorm:"not null" json:"is_visible"`
}

type UserPreference struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_user_pref" json:"user_id"`
	PreferenceKey   string    `gorm:"size:100;not null;uniqueIndex:idx_user_pref" json:"preference_key"`
	PreferenceValue string    `gorm:"type:text" json:"preference_value"`
}

// All lists every model in dependency order, used by schema bootstrapping in tests and tools.
func All() []any {
	return []any{
		&User{}, &RefreshToken{},
		&WorkSchedule{}, &WorkDay{}, &ScheduledWorkDay{}, &SkippedWorkDay{},
		&Expense{}, &Receipt{},
		&CalendarEvent{},
		&Goal{}, &GoalMilestone{}, &GoalProgress{}, &GoalShare{}, &GoalSupport{},
		&DashboardSettings{}, &CustomField{}, &CustomFieldValue{}, &DashboardWidget{}, &UserPreference{},
	}
}
