package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"ai-interviewer/internal/config"
	"ai-interviewer/internal/handlers"
	"ai-interviewer/internal/repositories"
	"ai-interviewer/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize repositories
	msgRepo := repositories.NewMessageRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	reportRepo := repositories.NewReportRepository(db)
	knowledgeRepo := repositories.NewKnowledgeRepository(db)
	log.Println("✅ Repositories initialized successfully")

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatalf("❌ Failed to create upload directory: %v", err)
	}

	parser := services.NewDocumentParser()
	chunker := services.NewTextChunker()
	log.Println("✅ Services initialized successfully")

	// Initialize Gemini AI
	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini AI: %v", err)
	}
	log.Println("✅ Gemini AI initialized successfully")

	// Initialize Qdrant
	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}

	if err := qdrantService.InitCollection(); err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant collection: %v", err)
	}
	log.Println("✅ Qdrant initialized successfully")

	// Initialize the interview conversation engine
	knowledgeService := services.NewKnowledgeService(
		parser,
		chunker,
		geminiService,
		qdrantService,
		knowledgeRepo,
		cfg.Interview,
	)

	promptBuilder := services.NewPromptBuilder()
	assembler := services.NewContextAssembler(knowledgeService, promptBuilder, cfg.Interview)
	rounds := services.NewRoundStateMachine()

	interviewService := services.NewInterviewService(
		msgRepo,
		sessionRepo,
		geminiService,
		assembler,
		rounds,
		cfg.Interview,
	)

	scorerService := services.NewScorerService(
		msgRepo,
		sessionRepo,
		reportRepo,
		geminiService,
		rounds,
		cfg.Interview.MinScoredRounds,
		cfg.Interview.RetryMaxAttempts,
	)
	log.Println("✅ Interview engine initialized")

	// Initialize Handlers
	interviewHandler := handlers.NewInterviewHandler(
		interviewService,
		geminiService,
		storageService,
		msgRepo,
		sessionRepo,
		reportRepo,
		cfg.Interview,
		cfg.Storage.MaxFileSize,
	)
	reportHandler := handlers.NewReportHandler(scorerService, reportRepo)
	knowledgeHandler := handlers.NewKnowledgeHandler(
		knowledgeService,
		storageService,
		cfg.Storage.MaxFileSize,
	)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "AI Interviewer API",
		ReadTimeout:  30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// API endpoints
	api.Post("/interview/start", interviewHandler.HandleStartInterview)
	api.Post("/chat", interviewHandler.HandleChatTurn)
	api.Get("/chat/history", interviewHandler.HandleGetHistory)
	api.Post("/report/generate", reportHandler.HandleGenerateReport)
	api.Get("/report/:session_id", reportHandler.HandleGetReport)
	api.Post("/knowledge/upload", knowledgeHandler.HandleUpload)
	api.Get("/knowledge/sources", knowledgeHandler.HandleListSources)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "AI Interviewer API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/interview/start",
				"POST /api/v1/chat",
				"GET /api/v1/chat/history",
				"POST /api/v1/report/generate",
				"GET /api/v1/report/:session_id",
				"POST /api/v1/knowledge/upload",
				"GET /api/v1/knowledge/sources",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
