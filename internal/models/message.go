package models

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "model"
)

// Message is one turn of an interview dialogue. Rows are append-only; the
// engine never mutates a message after it has been persisted.
type Message struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID        string    `gorm:"type:varchar(64);index;not null" json:"session_id"`
	Role             string    `gorm:"type:varchar(20);not null" json:"role"`
	Content          string    `gorm:"type:text;not null" json:"content"`
	FileURI          string    `gorm:"type:text" json:"file_uri,omitempty"`
	FileMimeType     string    `gorm:"type:varchar(100)" json:"file_mime_type,omitempty"`
	FileOriginalName string    `gorm:"type:varchar(255)" json:"file_original_name,omitempty"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}
