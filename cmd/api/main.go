package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/local-shortener/internal/config"
	"github.com/SergeiKhy/local-shortener/internal/handler"
	"github.com/SergeiKhy/local-shortener/internal/middleware"
	"github.com/SergeiKhy/local-shortener/internal/repository"
	"github.com/SergeiKhy/local-shortener/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	location, err := time.LoadLocation(cfg.Shortener.Timezone)
	if err != nil {
		logger.Fatal("Invalid timezone", zap.String("timezone", cfg.Shortener.Timezone), zap.Error(err))
	}

	// Хранилище коллекций
	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer closeStore()

	repo := repository.NewCollectionRepository(store)

	// Инициализация сервиса
	shortener := service.NewShortenerService(repo, logger, service.Options{
		ShortcodeLength:        cfg.Shortener.ShortcodeLength,
		DefaultValidityMinutes: cfg.Shortener.DefaultValidityMinutes,
		Location:               location,
	})

	// Процессор кликов (Worker Pool)
	clickProcessor := service.NewClickProcessor(shortener, cfg.Shortener.ClickWorkers, logger)
	clickProcessor.Start()
	defer clickProcessor.Stop()

	// Фоновая очистка просроченных ссылок
	sweeper := service.NewExpirySweeper(shortener, cfg.Shortener.CleanupInterval, logger)
	sweeper.Start()
	defer sweeper.Stop()

	// Инициализация middleware
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	defer rateLimiter.Stop()

	// Настройка роутера
	router := handler.NewRouter(shortener, clickProcessor, rateLimiter, logger)

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting",
			zap.String("port", cfg.App.Port),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("timezone", location.String()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful Shutdown
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openStore подключает хранилище по STORAGE_DRIVER. Вторым значением
// возвращается функция закрытия соединений.
func openStore(cfg *config.Config, logger *zap.Logger) (repository.KeyValueStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.Storage.Driver {
	case config.DriverRedis:
		rdb, err := repository.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Connected to Redis")
		return repository.NewRedisStore(rdb.Client, cfg.Storage.Namespace), func() { _ = rdb.Close() }, nil

	case config.DriverPostgres:
		db, err := repository.NewPostgresDB(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Connected to PostgreSQL")

		store, err := repository.NewPostgresStore(ctx, db, cfg.Storage.Namespace)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory storage, links are lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("%w: %s", config.ErrUnknownDriver, cfg.Storage.Driver)
}
