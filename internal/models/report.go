package models

import (
	"time"
)

// InterviewRecord is the stored evaluation report for one completed session.
// Created exactly once per session and immutable afterwards.
type InterviewRecord struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string         `gorm:"type:varchar(64);index;not null" json:"session_id"`
	Score       int            `gorm:"not null;default:0" json:"score"`
	Summary     string         `gorm:"type:text" json:"comment"`
	Strengths   []string       `gorm:"serializer:json" json:"strengths"`
	Suggestions []string       `gorm:"serializer:json" json:"suggestions"`
	Dimensions  map[string]int `gorm:"serializer:json" json:"dimensions,omitempty"`
	CreatedAt   time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (InterviewRecord) TableName() string {
	return "interview_records"
}
