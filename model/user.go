package model

import (
	"time"

	"gorm.io/gorm"
)

// User is an authenticated professional operating the service. Comparisons
// are owned by the user whose session invoked the pipeline.
type User struct {
	gorm.Model
	Name           string     `json:"name" gorm:"not null"`
	Email          string     `json:"email" gorm:"type:varchar(191);uniqueIndex;not null"`
	Password       string     `json:"-" gorm:"not null"`
	RoleID         uint32     `json:"role_id" gorm:"not null"`
	COREN          string     `json:"coren"`
	FailedAttempts int        `json:"-"`
	LockedUntil    *time.Time `json:"-"`
}

// Session is a server-side login session backing the session-token header.
type Session struct {
	gorm.Model
	UserID       uint      `json:"user_id" gorm:"index;not null"`
	SessionToken string    `json:"session_token" gorm:"type:varchar(512);uniqueIndex;not null"`
	ExpiresAt    time.Time `json:"expires_at"`
	IP           string    `json:"ip" gorm:"type:varchar(45)"`
	UserAgent    string    `json:"user_agent" gorm:"type:varchar(512)"`
}
