package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chefbot_go_backend/cmd/api/config"
	"chefbot_go_backend/internal/api"
	"chefbot_go_backend/internal/auth"
	"chefbot_go_backend/internal/database"
	"chefbot_go_backend/internal/llm"
	"chefbot_go_backend/internal/locales"
	"chefbot_go_backend/internal/prompts"
	"chefbot_go_backend/internal/services"
	"chefbot_go_backend/internal/utils/broker"
	"chefbot_go_backend/internal/wsocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogging(level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	setupLogging(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}

	backends, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create language model backend")
	}
	defer backends.Close()

	registry, err := prompts.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load prompt templates")
	}
	texts, err := locales.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load locales")
	}

	// Initialize Internal services
	messageBroker := broker.NewBroker()
	usageDB := services.NewUsageServiceDB(db)
	userService := services.NewUserService(usageDB)
	usageService := services.NewUsageService(usageDB, cfg.Limits, cfg.Trial, cfg.UsageLocation)
	responseCache := services.NewResponseCacheService(services.NewResponseCacheDB(db), cfg.CacheTTLs, cfg.CachePromptPrefix)
	sessionStore := services.NewMemorySessionStore(cfg.SessionTTL, cfg.SessionHistoryLimit)
	favoritesService := services.NewFavoritesService(services.NewFavoritesServiceDB(db))
	eventService := services.NewEventService(services.NewEventServiceDB(db))
	notifier := services.NewNotifier(userService, texts, messageBroker)

	generationService, err := services.NewGenerationService(backends.Completer, responseCache, registry, services.GenerationConfig{
		Timeout:         cfg.LLMTimeout,
		RefusalSentinel: cfg.RefusalSentinel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create generation service")
	}

	dialogueService := services.NewDialogueService(
		sessionStore,
		userService,
		usageService,
		generationService,
		favoritesService,
		eventService,
		backends.Transcriber,
		texts,
	)
	stripeService := services.NewStripeService(cfg.Stripe, usageService, eventService, notifier)
	exporter := services.NewFavoritesExporter(favoritesService, texts)

	scheduler := services.NewScheduler(responseCache, usageService, sessionStore, eventService, notifier, cfg.Schedule)
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Run(ctx)
	}()

	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Gateways are server-side processes; browsers never connect here.
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return r.Header.Get("Origin") == ""
		},
	}
	wsHandler := wsocket.NewHandler(dialogueService, upgrader, messageBroker)

	api.SetupRoutes(r, api.Services{
		Dialogue:  dialogueService,
		Accounts:  userService,
		Favorites: favoritesService,
		Exporter:  exporter,
		Usage:     usageService,
		Payments:  stripeService,
		Sessions:  sessionStore,
		Events:    eventService,
	}, cfg.GatewayJWTSecret)
	auth.SetupRoutes(r, cfg.GatewayJWTSecret)

	r.GET("/ws", auth.AuthMiddleware(cfg.GatewayJWTSecret), func(c *gin.Context) {
		wsHandler.HandleWebSocket(c.Writer, c.Request, c.GetString(auth.GatewayKey))
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	<-schedulerDone
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
