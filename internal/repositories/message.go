package repositories

import (
	"fmt"

	"gorm.io/gorm"

	"ai-interviewer/internal/models"
)

type MessageRepository interface {
	Append(msg *models.Message) (uint, error)
	ListBySession(sessionID string, limit int) ([]models.Message, error)
	ListAllBySession(sessionID string) ([]models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Append implements MessageRepository.
func (r *messageRepository) Append(msg *models.Message) (uint, error) {
	if err := r.db.Create(msg).Error; err != nil {
		return 0, fmt.Errorf("failed to append message: %w", err)
	}
	return msg.ID, nil
}

// ListBySession returns the most recent messages in chronological order.
func (r *messageRepository) ListBySession(sessionID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	// Reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// ListAllBySession implements MessageRepository.
func (r *messageRepository) ListAllBySession(sessionID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
