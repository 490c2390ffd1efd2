package main

import (
	"context"
	"log"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/speechrelay/api/internal/app"
	"github.com/speechrelay/api/internal/cache"
	"github.com/speechrelay/api/internal/client"
	"github.com/speechrelay/api/internal/config"
	"github.com/speechrelay/api/internal/database"
	"github.com/speechrelay/api/internal/handler"
	"github.com/speechrelay/api/internal/middleware"
	"github.com/speechrelay/api/internal/pipeline"
	"github.com/speechrelay/api/internal/session"
	"github.com/speechrelay/api/internal/speech"
	"github.com/speechrelay/api/internal/store"
	"github.com/speechrelay/api/internal/sweeper"
)

func main() {
	cfg := config.Load()

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	sessionStore := store.New(db, logger)
	sessionManager := session.NewManager(sessionStore, cfg.SessionExpiry, logger)

	// Optional Redis synthesis cache (fail-open)
	var redisCache *cache.RedisCache
	if cfg.RedisURL != "" {
		redisCache, err = cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			logger.Warn("failed to connect to Redis, continuing without synthesis cache", zap.Error(err))
			redisCache = nil
		}
	}

	// Speech providers. A provider that fails to initialize is fatal here,
	// not a per-request error.
	speechServices, err := initSpeechServices(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize speech services", zap.Error(err))
	}

	orchestrator := pipeline.NewOrchestrator(speechServices, sessionStore, redisCache, logger)

	sessionHandler := handler.NewSessionHandler(sessionManager, sessionStore, logger)
	audioHandler := handler.NewAudioHandler(orchestrator, sessionManager, logger)
	metaHandler := handler.NewMetaHandler(speechServices)

	// Optional periodic sweeper; the eager sweep on validation remains the
	// primary cleanup path.
	var sessionSweeper *sweeper.Sweeper
	if cfg.SweepInterval > 0 {
		sessionSweeper = sweeper.New(sessionStore, cfg.SessionExpiry, cfg.SweepInterval, logger)
		go sessionSweeper.Start(context.Background())
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})
	r.Use(middleware.RequestID())
	r.Use(middleware.MetricsMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Sweeper status
	r.GET("/sweeper/status", func(c *gin.Context) {
		if sessionSweeper != nil {
			c.JSON(200, sessionSweeper.GetStatus())
		} else {
			c.JSON(200, gin.H{"enabled": false, "message": "Periodic sweeper is disabled"})
		}
	})

	// API routes
	api := r.Group("/api/v1")
	{
		api.GET("/languages", metaHandler.Languages)
		api.GET("/voices", metaHandler.Voices)

		api.POST("/process_audio", audioHandler.ProcessAudio)
		api.POST("/synthesize", audioHandler.Synthesize)

		api.POST("/sessions/teacher", sessionHandler.Create)
		api.POST("/sessions/teacher/validate", sessionHandler.ValidateTeacher)
		api.POST("/sessions/student/validate", sessionHandler.ValidateStudent)
		api.POST("/sessions/clear", sessionHandler.Clear)
	}

	// Teacher and student pages
	r.StaticFile("/", filepath.Join(cfg.WebRoot, "index.html"))
	r.StaticFile("/student", filepath.Join(cfg.WebRoot, "student.html"))
	r.Static("/assets", filepath.Join(cfg.WebRoot, "assets"))

	addr := ":" + cfg.Port
	logger.Info("server starting",
		zap.String("addr", addr),
		zap.Bool("tls", cfg.TLSCertPath != ""))

	if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
		err = r.RunTLS(addr, cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		err = r.Run(addr)
	}
	if err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// initSpeechServices constructs the provider clients, eagerly warms one
// synthesis handle per supported language, and wires the facade.
func initSpeechServices(cfg *config.Config, logger *zap.Logger) (*speech.Services, error) {
	transcriber := client.NewTranscriptionClient(cfg.TranscriberURL)
	translator := client.NewTranslationClient(cfg.TranslatorURL)

	ctx := context.Background()
	if err := translator.Healthcheck(ctx); err != nil {
		logger.Warn("translation server healthcheck failed, continuing", zap.Error(err))
	}

	synths := make(map[string]speech.Synthesizer, len(speech.SupportedLanguages))
	for lang := range speech.SupportedLanguages {
		sc := client.NewSynthesisClient(cfg.SynthesizerURL, lang)
		if err := sc.Warmup(ctx); err != nil {
			return nil, err
		}
		logger.Info("synthesizer ready", zap.String("language", lang))
		synths[lang] = sc
	}

	return speech.NewServices(transcriber, translator, synths, logger)
}
