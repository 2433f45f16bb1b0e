package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ai-interviewer/internal/models"
)

type KnowledgeRepository interface {
	Upsert(doc *models.KnowledgeDocument) error
	FindBySourceLabel(sourceLabel string) (*models.KnowledgeDocument, error)
	List() ([]models.KnowledgeDocument, error)
}

type knowledgeRepository struct {
	db *gorm.DB
}

func NewKnowledgeRepository(db *gorm.DB) KnowledgeRepository {
	return &knowledgeRepository{db: db}
}

// Upsert creates the record, or refreshes chunk count and path when the same
// source label is ingested again.
func (r *knowledgeRepository) Upsert(doc *models.KnowledgeDocument) error {
	existing, err := r.FindBySourceLabel(doc.SourceLabel)
	if err == nil && existing != nil {
		result := r.db.Model(&models.KnowledgeDocument{}).
			Where("source_label = ?", doc.SourceLabel).
			Updates(map[string]interface{}{
				"chunk_count":        doc.ChunkCount,
				"file_path":          doc.FilePath,
				"original_file_name": doc.OriginalFileName,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update knowledge document: %w", result.Error)
		}
		return nil
	}

	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create knowledge document: %w", err)
	}
	return nil
}

// FindBySourceLabel implements KnowledgeRepository.
func (r *knowledgeRepository) FindBySourceLabel(sourceLabel string) (*models.KnowledgeDocument, error) {
	var doc models.KnowledgeDocument
	if err := r.db.Where("source_label = ?", sourceLabel).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("knowledge document not found: %w", err)
		}
		return nil, fmt.Errorf("failed to find knowledge document: %w", err)
	}
	return &doc, nil
}

// List implements KnowledgeRepository.
func (r *knowledgeRepository) List() ([]models.KnowledgeDocument, error) {
	var docs []models.KnowledgeDocument
	if err := r.db.Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list knowledge documents: %w", err)
	}
	return docs, nil
}
