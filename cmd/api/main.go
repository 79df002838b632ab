package main

import (
	"context"
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

	"farrelnajib/ai-hiring/internal/config"
	"farrelnajib/ai-hiring/internal/handlers"
	"farrelnajib/ai-hiring/internal/repositories"
	"farrelnajib/ai-hiring/internal/services"
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
	jobRepo := repositories.NewJobRepository(db)
	appRepo := repositories.NewApplicationRepository(db)
	log.Println("✅ Repositories initialized successfully")

	// Initialize storage
	storageService := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.MaxFileSize)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatalf("❌ Failed to create upload directory: %v", err)
	}

	pdfParser := services.NewPDFParserService()

	// Build the provider chain: Gemini first when configured, then the
	// OpenRouter models in order
	var providers []services.Provider
	var geminiService services.GeminiService

	if cfg.Gemini.APIKey != "" {
		geminiService, err = services.NewGeminiService(cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			log.Fatalf("❌ Failed to initialize Gemini AI: %v", err)
		}
		providers = append(providers, geminiService)
		log.Println("✅ Gemini AI initialized successfully")
	}

	if cfg.OpenRouter.APIKey != "" {
		providers = append(providers, services.NewOpenRouterProviders(cfg.OpenRouter)...)
		log.Printf("✅ OpenRouter initialized with %d models\n", len(cfg.OpenRouter.Models))
	}

	if len(providers) == 0 {
		log.Println("⚠️  No AI providers configured, extraction will rely on manual parsing")
	}

	chain := services.NewProviderChain(cfg.Provider.Timeout, providers...)

	// Initialize the candidate index (best effort, search is optional)
	var candidateIndex services.CandidateIndexService
	if geminiService != nil {
		candidateIndex, err = services.NewCandidateIndexService(
			cfg.Qdrant.URL,
			cfg.Qdrant.APIKey,
			cfg.Qdrant.Collection,
			geminiService,
		)
		if err != nil {
			log.Printf("⚠️  Failed to initialize Qdrant, candidate search disabled: %v\n", err)
			candidateIndex = nil
		} else if err := candidateIndex.InitCollection(); err != nil {
			log.Printf("⚠️  Failed to initialize Qdrant collection, candidate search disabled: %v\n", err)
			candidateIndex = nil
		} else {
			log.Println("✅ Qdrant initialized successfully")
		}
	}

	// Initialize core services
	extractor := services.NewResumeExtractorService(chain)
	pipeline := services.NewPipelineService(pdfParser, extractor)
	judge := services.NewJudgeService(chain)
	synthesizer := services.NewElevenLabsSynthesizer(cfg.Speech)
	interviewService := services.NewInterviewService(judge, synthesizer, appRepo, jobRepo, cfg.Interview)
	log.Println("✅ Services initialized successfully")

	// Initialize worker
	worker := services.NewWorker(
		appRepo,
		jobRepo,
		pipeline,
		candidateIndex,
		cfg.Worker.Concurrency,
	)

	ctx := context.Background()
	worker.Start(ctx)

	// Initialize handlers
	jobHandler := handlers.NewJobHandler(jobRepo, candidateIndex)
	applyHandler := handlers.NewApplyHandler(appRepo, jobRepo, storageService, worker)
	resultHandler := handlers.NewResultHandler(appRepo)
	interviewHandler := handlers.NewInterviewHandler(interviewService)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "AI Hiring API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
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

	// Jobs
	api.Post("/jobs", jobHandler.HandleCreateJob)
	api.Get("/jobs", jobHandler.HandleListJobs)
	api.Get("/jobs/:id", jobHandler.HandleGetJob)
	api.Get("/jobs/:id/candidates", jobHandler.HandleSearchCandidates)
	api.Post("/jobs/:id/apply", applyHandler.HandleApply)

	// Applications
	api.Get("/applications/:id", resultHandler.HandleGetResult)

	// Interview lifecycle
	api.Post("/applications/:id/interview", interviewHandler.HandleStart)
	api.Get("/applications/:id/interview", interviewHandler.HandleStatus)
	api.Post("/applications/:id/interview/transcript", interviewHandler.HandleTranscriptEvent)
	api.Get("/applications/:id/interview/audio", interviewHandler.HandleNextAudio)
	api.Post("/applications/:id/interview/playback-done", interviewHandler.HandlePlaybackDone)
	api.Post("/applications/:id/interview/end", interviewHandler.HandleEnd)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "AI Hiring API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/jobs",
				"GET /api/v1/jobs",
				"GET /api/v1/jobs/:id",
				"GET /api/v1/jobs/:id/candidates",
				"POST /api/v1/jobs/:id/apply",
				"GET /api/v1/applications/:id",
				"POST /api/v1/applications/:id/interview",
				"GET /api/v1/applications/:id/interview",
				"POST /api/v1/applications/:id/interview/transcript",
				"GET /api/v1/applications/:id/interview/audio",
				"POST /api/v1/applications/:id/interview/playback-done",
				"POST /api/v1/applications/:id/interview/end",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		worker.Stop()
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
