package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"ai-interviewer/internal/config"
	"ai-interviewer/internal/models"
	"ai-interviewer/internal/repositories"
	"ai-interviewer/internal/services"
)

type InterviewHandler struct {
	interviewSvc services.InterviewService
	gemini       services.GeminiService
	storage      services.StorageService
	msgRepo      repositories.MessageRepository
	sessionRepo  repositories.SessionRepository
	reportRepo   repositories.ReportRepository
	cfg          config.InterviewConfig
	maxFileSize  int64
}

func NewInterviewHandler(
	interviewSvc services.InterviewService,
	gemini services.GeminiService,
	storage services.StorageService,
	msgRepo repositories.MessageRepository,
	sessionRepo repositories.SessionRepository,
	reportRepo repositories.ReportRepository,
	cfg config.InterviewConfig,
	maxFileSize int64,
) *InterviewHandler {
	return &InterviewHandler{
		interviewSvc: interviewSvc,
		gemini:       gemini,
		storage:      storage,
		msgRepo:      msgRepo,
		sessionRepo:  sessionRepo,
		reportRepo:   reportRepo,
		cfg:          cfg,
		maxFileSize:  maxFileSize,
	}
}

// HandleStartInterview handles POST /interview/start
func (h *InterviewHandler) HandleStartInterview(c *fiber.Ctx) error {
	var req models.StartInterviewRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.Topic == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "topic is required",
		})
	}

	if req.Difficulty == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "difficulty is required",
		})
	}

	maxRounds := req.MaxRounds
	if maxRounds == 0 {
		maxRounds = h.cfg.DefaultMaxRounds
	}
	if maxRounds < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "max_rounds must be positive",
		})
	}

	sessionID := uuid.New().String()
	session, err := h.interviewSvc.StartInterview(sessionID, req.Topic, req.Difficulty, maxRounds)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create interview session",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.StartInterviewResponse{
		SessionID: session.SessionID,
		Topic:     session.Topic,
		MaxRounds: session.MaxRounds,
	})
}

// HandleChatTurn handles POST /chat. The response is a line-delimited event
// stream: user ack, text deltas, assistant ack, optional interview-end
// marker, then the [DONE] terminator.
func (h *InterviewHandler) HandleChatTurn(c *fiber.Ctx) error {
	sessionID := c.FormValue("session_id")
	content := c.FormValue("content")
	if sessionID == "" || content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id and content are required",
		})
	}

	deepThinking, _ := strconv.ParseBool(c.FormValue("use_deep_thinking", "false"))
	memoryLimit, _ := strconv.Atoi(c.FormValue("memory_limit", "0"))

	req := services.TurnRequest{
		SessionID:    sessionID,
		Content:      content,
		DeepThinking: deepThinking,
		MemoryLimit:  memoryLimit,
	}

	if file, err := c.FormFile("file"); err == nil && file != nil {
		if file.Size > h.maxFileSize {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("File too large. Max size: %d bytes", h.maxFileSize),
			})
		}

		_, filePath, err := h.storage.SaveAttachment(file)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": fmt.Sprintf("failed to save attachment: %v", err),
			})
		}

		mimeType := file.Header.Get("Content-Type")
		req.FileMimeType = mimeType
		req.FileOriginalName = file.Filename

		// Upload failures are tolerated: the turn proceeds without the
		// attachment part.
		if uri, err := h.gemini.UploadFile(c.Context(), filePath, mimeType); err == nil {
			req.FileURI = uri
		} else {
			log.Printf("⚠️  Attachment upload failed: %v\n", err)
		}
	}

	ctx, cancel := context.WithCancel(c.Context())

	events, err := h.interviewSvc.StreamTurn(ctx, req)
	if err != nil {
		cancel()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		for ev := range events {
			payload, ok := encodeTurnEvent(ev)
			if !ok {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				// Consumer disconnected; cancel() stops generation.
				return
			}
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Flush()
	}))

	return nil
}

func encodeTurnEvent(ev services.TurnEvent) ([]byte, bool) {
	var body interface{}
	switch ev.Type {
	case services.EventUserSaved:
		body = fiber.Map{"type": "meta_user", "id": ev.MessageID}
	case services.EventTextDelta:
		body = fiber.Map{"text": ev.Text}
	case services.EventAssistantSaved:
		body = fiber.Map{"type": "meta_ai", "id": ev.MessageID}
	case services.EventInterviewEnd:
		body = fiber.Map{"type": "interview_end"}
	default:
		return nil, false
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, false
	}
	return payload, true
}

// HandleGetHistory handles GET /chat/history
func (h *InterviewHandler) HandleGetHistory(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	messages, err := h.msgRepo.ListAllBySession(sessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	response := models.HistoryResponse{Data: make([]models.HistoryItem, 0, len(messages))}

	for _, msg := range messages {
		role := "user"
		if msg.Role == models.RoleAssistant {
			role = "assistant"
		}
		item := models.HistoryItem{
			ID:      msg.ID,
			Role:    role,
			Content: msg.Content,
		}
		if msg.FileMimeType != "" {
			item.FileMeta = &models.FileMeta{
				Name: msg.FileOriginalName,
				Mime: msg.FileMimeType,
			}
		}
		response.Data = append(response.Data, item)
	}

	if state, err := h.sessionRepo.FindBySessionID(sessionID); err == nil {
		response.InterviewMeta = &models.InterviewMeta{
			IsInterview:  true,
			Topic:        state.Topic,
			Difficulty:   state.Difficulty,
			Status:       string(state.Status),
			CurrentRound: state.CurrentRound,
			MaxRounds:    state.MaxRounds,
		}

		if state.Status == models.StatusCompleted {
			if record, err := h.reportRepo.FindBySessionID(sessionID); err == nil {
				response.ReportData = &models.ReportData{
					Score:       record.Score,
					Comment:     record.Summary,
					Strengths:   record.Strengths,
					Suggestions: record.Suggestions,
					Dimensions:  record.Dimensions,
				}
			}
		}
	}

	return c.JSON(response)
}
