package models

import (
	"time"
)

type InterviewStatus string

const (
	StatusOngoing   InterviewStatus = "ongoing"
	StatusCompleted InterviewStatus = "completed"
)

// InterviewSession tracks the progress of one bounded interview dialogue.
// Invariant: 0 <= CurrentRound <= MaxRounds, and status only ever moves
// ongoing -> completed.
type InterviewSession struct {
	ID           uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID    string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"session_id"`
	Topic        string          `gorm:"type:varchar(100);not null" json:"topic"`
	Difficulty   string          `gorm:"type:varchar(50);not null" json:"difficulty"`
	Status       InterviewStatus `gorm:"type:varchar(20);not null;default:'ongoing'" json:"status"`
	CurrentRound int             `gorm:"not null;default:0" json:"current_round"`
	MaxRounds    int             `gorm:"not null;default:10" json:"max_rounds"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (InterviewSession) TableName() string {
	return "interview_sessions"
}
