package models

import "time"

// Goal is a savings target. Deleting a goal clears IsActive.
type Goal struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	Category      string    `gorm:"size:20;not null" json:"category"`
	GoalType      string    `gorm:"size:20;not null" json:"goal_type"`
	TargetAmount  float64   `gorm:"type:decimal(12,2);not null" json:"target_amount"`
	CurrentAmount float64   `gorm:"type:decimal(12,2);not null" json:"current_amount"`
	TargetDate    Date      `gorm:"not null" json:"target_date"`
	Priority      string    `gorm:"size:10;not null" json:"priority"`
	Color         string    `gorm:"size:7" json:"color"`
	IsActive      bool      `gorm:"not null;index" json:"is_active"`
	IsShared      bool      `gorm:"not null" json:"is_shared"`
}

// Completed reports whether the target has been reached.
func (g Goal) Completed() bool {
	return g.CurrentAmount >= g.TargetAmount
}

// PriorityRank orders priorities high first.
func PriorityRank(p string) int {
	switch p {
	case "high":
		return 0
	case "medium":
		return 1
	default:
		return 2
	}
}

type GoalMilestone struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time  `json:"created_at"`
	GoalID            uint       `gorm:"not null;index" json:"goal_id"`
	Title             string     `gorm:"size:255;not null" json:"title"`
	TargetAmount      float64    `gorm:"type:decimal(12,2);not null" json:"target_amount"`
	AchievedAt        *time.Time `json:"achieved_at"`
	RewardDescription string     `gorm:"type:text" json:"reward_description"`
}

type GoalProgress struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	GoalID    uint      `gorm:"not null;index" json:"goal_id"`
	Amount    float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Note      string    `gorm:"type:text" json:"note"`
}

func (GoalProgress) TableName() string { return "goal_progress" }

// GoalShare records that a goal was shared with an email address.
type GoalShare struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	GoalID          uint      `gorm:"not null;index" json:"goal_id"`
	SharedWithEmail string    `gorm:"size:255;not null;index" json:"shared_with_email"`
	Message         string    `gorm:"type:text" json:"message"`
	SharedByUserID  uint      `gorm:"not null" json:"shared_by_user_id"`
}

// GoalSupport is an encouragement message left on a shared goal.
type GoalSupport struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	GoalID         uint      `gorm:"not null;index" json:"goal_id"`
	SupporterEmail string    `gorm:"size:255;not null;index" json:"supporter_email"`
	Message        string    `gorm:"type:text" json:"message"`
}
