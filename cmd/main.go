package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/geostat-assistant/server/internal/api"
	"github.com/geostat-assistant/server/internal/auth"
	"github.com/geostat-assistant/server/internal/config"
	"github.com/geostat-assistant/server/internal/logging"
	"github.com/geostat-assistant/server/internal/websocket"
	"github.com/geostat-assistant/server/usecase"
)

func main() {
	app := kingpin.New("geostat-assistant", "GeoStat Assistant - answers questions about Georgian official statistics")
	configFile := app.Flag("config", "Path to YAML configuration file").String()
	envFile := app.Flag("env-file", "Path to .env file").Default(".env").String()
	port := app.Flag("port", "HTTP port exposed by the service").String()
	development := app.Flag("dev", "Human readable logs").Bool()
	llmProvider := app.Flag("llm", "LLM provider (anthropic, gemini, mock)").String()
	storageDriver := app.Flag("storage", "Session storage (memory, mongo)").String()
	rateLimitRPS := app.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurst := app.Flag("rate-limit-burst", "Burst capacity for rate limiter").Default("-1").Int()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile:     *configFile,
		EnvFile:        *envFile,
		Port:           port,
		LLMProvider:    llmProvider,
		StorageDriver:  storageDriver,
		RateLimitRPS:   rateLimitRPS,
		RateLimitBurst: rateLimitBurst,
	}
	if *development {
		overrides.Development = development
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.Development, cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	providers, err := newProviders(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer providers.close(logger)

	// Initialize usecase services
	chatService := usecase.NewChatService(providers.llm, providers.search, providers.sessions, logger)
	voiceService := usecase.NewVoiceService(providers.speechToText, providers.textToSpeech, logger)

	// Initialize WebSocket hub
	hub := websocket.NewHub(voiceService, voiceService, chatService, logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	cleanup := websocket.NewSessionCleanupService(providers.sessions, cfg.SessionCleanupInterval, logger)
	cleanup.Start()
	defer cleanup.Stop()

	if cfg.Auth.GeneratedSecret {
		logger.Warn("JWT_SECRET is not set, using a random secret; session tokens will not survive a restart")
	}

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger(logger))

	api.InitRoutes(e, api.Dependencies{
		Chat:           chatService,
		Voice:          voiceService,
		Sessions:       providers.sessions,
		Tokens:         auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Socket:         hub,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
	}, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("llm", cfg.LLM.Provider),
		zap.String("storage", cfg.Storage.Driver))

	select {
	case err := <-serverErr:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Server is shutting down...")

	// Voice clients go first so their turns stop before the HTTP server drains.
	stopHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown failed", zap.Error(err))
		if closeErr := e.Close(); closeErr != nil {
			logger.Error("Forced close failed", zap.Error(closeErr))
		}
	}

	logger.Info("Server exited")
	return nil
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				logger.Warn("Request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("Request handled", fields...)
			return nil
		},
	})
}
