package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"ai-interviewer/internal/models"
	"ai-interviewer/internal/services"
)

type KnowledgeHandler struct {
	knowledgeSvc services.KnowledgeService
	storage      services.StorageService
	maxFileSize  int64
}

func NewKnowledgeHandler(
	knowledgeSvc services.KnowledgeService,
	storage services.StorageService,
	maxFileSize int64,
) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledgeSvc: knowledgeSvc,
		storage:      storage,
		maxFileSize:  maxFileSize,
	}
}

// HandleUpload handles POST /knowledge/upload: stores the file and ingests it
// into the retrieval index. Zero chunks means the file could not be used.
func (h *KnowledgeHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	if file.Size > h.maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	_, filePath, err := h.storage.SaveKnowledgeFile(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save file: %v", err),
		})
	}

	sourceLabel := c.FormValue("source_label")
	if sourceLabel == "" {
		sourceLabel = file.Filename
	}

	chunks, err := h.knowledgeSvc.AddDocument(c.Context(), filePath, sourceLabel)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to ingest document: %v", err),
		})
	}

	if chunks == 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "no usable text could be extracted from the file",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.IngestResponse{
		SourceLabel: sourceLabel,
		ChunksAdded: chunks,
	})
}

// HandleListSources handles GET /knowledge/sources
func (h *KnowledgeHandler) HandleListSources(c *fiber.Ctx) error {
	sources, err := h.knowledgeSvc.ListSources(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list knowledge sources",
		})
	}

	return c.JSON(fiber.Map{
		"data": sources,
	})
}
