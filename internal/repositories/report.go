package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ai-interviewer/internal/models"
)

var ErrReportNotFound = errors.New("interview report not found")

type ReportRepository interface {
	Create(record *models.InterviewRecord) error
	FindBySessionID(sessionID string) (*models.InterviewRecord, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// Create implements ReportRepository.
func (r *reportRepository) Create(record *models.InterviewRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to create interview record: %w", err)
	}
	return nil
}

// FindBySessionID returns the latest report for the session.
func (r *reportRepository) FindBySessionID(sessionID string) (*models.InterviewRecord, error) {
	var record models.InterviewRecord
	err := r.db.
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to find interview record: %w", err)
	}
	return &record, nil
}
