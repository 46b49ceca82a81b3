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

	"github.com/Dosada05/room-bracket/brackets"
	"github.com/Dosada05/room-bracket/config"
	"github.com/Dosada05/room-bracket/db"
	"github.com/Dosada05/room-bracket/handlers"
	"github.com/Dosada05/room-bracket/metrics"
	"github.com/Dosada05/room-bracket/repositories"
	api "github.com/Dosada05/room-bracket/routes"
	"github.com/Dosada05/room-bracket/services"
	"github.com/Dosada05/room-bracket/storage"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger) error {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Int("advances_per_room", cfg.AdvancesPerRoom),
		slog.Bool("simulation", cfg.SimulationEnabled),
		slog.Duration("sweep_interval", cfg.SweepInterval),
		slog.Duration("grace_period", cfg.SweepGracePeriod),
	)

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx, dbConn)
	cancelMigrate()
	if err != nil {
		return err
	}
	logger.Info("database connection established")

	m := metrics.New()

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run()

	// Инициализация репозиториев
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	roomRepo := repositories.NewPostgresRoomRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	walletRepo := repositories.NewPostgresWalletRepository(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)

	// Почта и архив квитанций опциональны
	var mailer services.Mailer
	if cfg.MailEnabled() {
		mailer = services.NewEmailService(cfg)
	} else {
		logger.Warn("SMTP is not configured, organizer emails are disabled")
	}

	var archiver services.ReceiptArchiver
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		archiver = storage.NewReceiptArchiver(uploader)
		logger.Info("refund receipts will be archived", slog.String("bucket", cfg.R2BucketName))
	}

	// Инициализация сервисов
	prizeService := services.NewPrizeService(dbConn, tournamentRepo, teamRepo, walletRepo, wsHub, logger)
	roundService := services.NewRoundService(dbConn, tournamentRepo, teamRepo, roomRepo, prizeService, wsHub, m, logger,
		services.RoundOptions{
			AdvancesPerRoom:   cfg.AdvancesPerRoom,
			SimulationEnabled: cfg.SimulationEnabled,
		})
	walletService := services.NewWalletService(walletRepo, logger)
	notificationService := services.NewNotificationService(mailer, userRepo, wsHub, logger)
	guard := services.NewLifecycleGuard(dbConn, tournamentRepo, registrationRepo, walletRepo,
		notificationService, archiver, m, logger,
		services.GuardPolicy{CancelOnPartialRefund: cfg.CancelOnPartialRefund})

	// Планировщик автоотмены зависших турниров
	scheduler, err := services.NewSweepScheduler(guard, cfg.SweepInterval, cfg.SweepGracePeriod, logger)
	if err != nil {
		return fmt.Errorf("failed to create sweep scheduler: %w", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("failed to stop sweep scheduler", slog.Any("error", err))
		}
	}()

	// Инициализация обработчиков HTTP
	roundHandler := handlers.NewRoundHandler(roundService)
	walletHandler := handlers.NewWalletHandler(walletService)
	adminHandler := handlers.NewAdminHandler(scheduler, roundService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins)

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        m.Handler(),
	}, roundHandler, walletHandler, adminHandler, webSocketHandler)

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
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
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	return nil
}
