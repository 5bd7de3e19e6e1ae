package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/tribes/internal/auth"
	"github.com/freeeve/tribes/internal/bot"
	"github.com/freeeve/tribes/internal/config"
	"github.com/freeeve/tribes/internal/handler"
	"github.com/freeeve/tribes/internal/logger"
	"github.com/freeeve/tribes/internal/repository"
	"github.com/freeeve/tribes/internal/repository/postgres"
	redisrepo "github.com/freeeve/tribes/internal/repository/redis"
	"github.com/freeeve/tribes/internal/repository/sqlite"
	"github.com/freeeve/tribes/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(logger.Options{})
		log.Fatal().Err(err).Msg("Config load failed")
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, Dev: cfg.Dev, File: cfg.LogFile})
	log.Info().Bool("sqlite", cfg.UseSQLite()).Str("redisURL", cfg.RedisURL).Msg("Config loaded")

	// Storage
	var (
		gameRepo repository.GameRepository
		turnRepo repository.TurnRepository
	)
	if cfg.UseSQLite() {
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("SQLite open failed")
		}
		defer store.Close()
		gameRepo, turnRepo = store, store
	} else {
		db, err := postgres.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		gameRepo, turnRepo = postgres.NewGameRepo(db), postgres.NewTurnRepo(db)
	}

	// Redis is optional: without it the server runs as a single process with
	// no live-state cache.
	var (
		cache       repository.GameCache
		redisClient *redisrepo.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = redisrepo.NewClient(cfg.RedisURL)
		if err != nil {
			if !cfg.UseSQLite() {
				log.Fatal().Err(err).Msg("Redis connection failed")
			}
			log.Warn().Err(err).Msg("Redis unavailable, running without cache")
			redisClient = nil
		} else {
			defer redisClient.Close()
			cache = redisClient
		}
	}

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)

	// WebSocket hub; with Redis, events fan out through pub/sub so every
	// server process reaches its own subscribers.
	wsHub := handler.NewHub()
	var broadcaster service.Broadcaster = wsHub
	if redisClient != nil {
		broadcaster = service.NewPublishingBroadcaster(redisClient)
	}

	// Services
	botOpts := bot.Options{StrategyDir: cfg.StrategyDir, Timeout: cfg.BotTurnTimeout}
	gameSvc := service.NewGameService(gameRepo, turnRepo, cache, jwtMgr)
	gameSvc.SetBotOptions(botOpts)
	gameSvc.SetMapDefaults(cfg.MapWidth, cfg.MapHeight, cfg.MapSeed)
	turnSvc := service.NewTurnService(gameSvc, gameRepo, turnRepo, cache, broadcaster)
	turnSvc.SetBotOptions(botOpts)

	botDriver := service.NewBotDriver(gameRepo, turnSvc, cfg.BotTurnTimeout)
	turnSvc.SetNotifier(botDriver.Kick)

	// Handlers
	router := handler.NewRouter(
		handler.NewGameHandler(gameSvc, turnSvc, botDriver.Kick),
		handler.NewActionHandler(turnSvc),
		handler.NewWSHandler(wsHub, jwtMgr, turnSvc),
		jwtMgr,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Rehydrate the cache from the turn log after a restart.
	if n, err := gameSvc.RecoverGames(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to recover active games (non-fatal)")
	} else if n > 0 {
		log.Info().Int("games", n).Msg("Recovered active games")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go botDriver.Start(ctx)
	if redisClient != nil {
		go redisClient.SubscribeEvents(ctx, wsHub.RelayEvent)
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
