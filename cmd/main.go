package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtside/matchplay/config"
	"github.com/courtside/matchplay/db"
	"github.com/courtside/matchplay/handlers"
	"github.com/courtside/matchplay/realtime"
	"github.com/courtside/matchplay/repositories"
	api "github.com/courtside/matchplay/routes"
	"github.com/courtside/matchplay/services"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	// Инициализация репозиториев
	txManager := repositories.NewTxManager(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	leagueRepo := repositories.NewPostgresLeagueRepository(dbConn)
	requestRepo := repositories.NewPostgresMatchRequestRepository(dbConn)
	inviteRepo := repositories.NewPostgresInviteRepository(dbConn)
	listingRepo := repositories.NewPostgresListingRepository(dbConn)
	regRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	gameRepo := repositories.NewPostgresGameRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	notifier := services.NewNotificationService(notificationRepo, wsHub, logger)
	notificationFeed := services.NewNotificationFeed(notificationRepo)

	var emailSender services.InviteEmailSender
	if cfg.EmailEnabled() {
		emailSender = services.NewEmailService(cfg)
		logger.Info("invite email delivery enabled", slog.String("smtp_host", cfg.SMTPHost))
	} else {
		logger.Info("invite email delivery disabled: SMTP is not configured")
	}

	matchmakingService := services.NewMatchmakingService(
		txManager,
		requestRepo,
		userRepo,
		gameRepo,
		notifier,
		logger,
		cfg.MatchRequestTTL,
	)
	inviteService := services.NewInviteService(
		inviteRepo,
		userRepo,
		tournamentRepo,
		leagueRepo,
		notifier,
		emailSender,
		logger,
		cfg.InviteTTL,
	)
	registrationService := services.NewRegistrationService(
		txManager,
		inviteRepo,
		userRepo,
		tournamentRepo,
		leagueRepo,
		regRepo,
		listingRepo,
		notifier,
		logger,
	)
	listingService := services.NewListingService(
		listingRepo,
		userRepo,
		tournamentRepo,
		leagueRepo,
		notifier,
	)
	logger.Info("services initialized")

	// Фоновая уборка просроченных заявок и приглашений
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweeper := services.NewSweeperService(requestRepo, inviteRepo, notifier, logger, cfg.SweepInterval)
	go sweeper.Run(sweeperCtx)

	// Инициализация обработчиков HTTP
	matchHandler := handlers.NewMatchHandler(matchmakingService)
	inviteHandler := handlers.NewInviteHandler(inviteService, registrationService)
	listingHandler := handlers.NewListingHandler(listingService)
	notificationHandler := handlers.NewNotificationHandler(notificationFeed)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		matchHandler,
		inviteHandler,
		listingHandler,
		notificationHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stopSweeper()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
