package models

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeDocument records a file ingested into the retrieval index.
type KnowledgeDocument struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SourceLabel      string    `gorm:"type:text;index" json:"source_label"`
	OriginalFileName string    `gorm:"type:text" json:"original_filename"`
	FilePath         string    `gorm:"type:text" json:"file_path"`
	ChunkCount       int       `gorm:"not null;default:0" json:"chunk_count"`
	CreatedAt        time.Time `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt        time.Time `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (d *KnowledgeDocument) TableName() string {
	return "knowledge_documents"
}
