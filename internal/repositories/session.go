package repositories

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ai-interviewer/internal/models"
)

var ErrSessionNotFound = errors.New("interview session not found")

type SessionRepository interface {
	Create(session *models.InterviewSession) error
	FindBySessionID(sessionID string) (*models.InterviewSession, error)
	Save(session *models.InterviewSession) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create implements SessionRepository.
func (r *sessionRepository) Create(session *models.InterviewSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create interview session: %w", err)
	}
	return nil
}

// FindBySessionID implements SessionRepository.
func (r *sessionRepository) FindBySessionID(sessionID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	if err := r.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find interview session: %w", err)
	}
	return &session, nil
}

// Save implements SessionRepository.
func (r *sessionRepository) Save(session *models.InterviewSession) error {
	session.UpdatedAt = time.Now()

	result := r.db.Model(&models.InterviewSession{}).
		Where("session_id = ?", session.SessionID).
		Updates(map[string]interface{}{
			"status":        session.Status,
			"current_round": session.CurrentRound,
			"updated_at":    session.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to save interview session: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}
