package handlers

import (
	"github.com/gofiber/fiber/v2"

	"ai-interviewer/internal/models"
	"ai-interviewer/internal/repositories"
	"ai-interviewer/internal/services"
)

type ReportHandler struct {
	scorerSvc  services.ScorerService
	reportRepo repositories.ReportRepository
}

func NewReportHandler(scorerSvc services.ScorerService, reportRepo repositories.ReportRepository) *ReportHandler {
	return &ReportHandler{
		scorerSvc:  scorerSvc,
		reportRepo: reportRepo,
	}
}

// HandleGenerateReport handles POST /report/generate
func (h *ReportHandler) HandleGenerateReport(c *fiber.Ctx) error {
	var req models.GenerateReportRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	record, err := h.scorerSvc.GenerateReport(c.Context(), req.SessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate report",
		})
	}

	return c.JSON(models.ReportData{
		Score:       record.Score,
		Comment:     record.Summary,
		Strengths:   record.Strengths,
		Suggestions: record.Suggestions,
		Dimensions:  record.Dimensions,
	})
}

// HandleGetReport handles GET /report/:session_id
func (h *ReportHandler) HandleGetReport(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	record, err := h.reportRepo.FindBySessionID(sessionID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Report not found",
		})
	}

	return c.JSON(models.ReportData{
		Score:       record.Score,
		Comment:     record.Summary,
		Strengths:   record.Strengths,
		Suggestions: record.Suggestions,
		Dimensions:  record.Dimensions,
	})
}
