package models

import (
	"time"
)

// DefaultHourlyRate applies when a user registers without a rate.
const DefaultHourlyRate = 15.0

// User model
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Username       string    `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Email          string    `gorm:"size:100;not null;uniqueIndex" json:"email"`
	HashedPassword []byte    `gorm:"not null" json:"-"`
	HourlyRate     float64   `gorm:"type:decimal(10,2);not null" json:"hourly_rate"`
}
