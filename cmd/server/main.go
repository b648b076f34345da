package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"paywatch.backend/internal/config"
	"paywatch.backend/internal/domain/entities"
	"paywatch.backend/internal/infrastructure/blockchain"
	"paywatch.backend/internal/infrastructure/jobs"
	"paywatch.backend/internal/infrastructure/repositories"
	"paywatch.backend/internal/interfaces/http/handlers"
	"paywatch.backend/internal/usecases"
	"paywatch.backend/pkg/logger"
	"paywatch.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{})
	}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	logger.Init(cfg.Server.Env)
	logger.Info(context.Background(), "logger initialized", zap.String("env", cfg.Server.Env))

	// Redis is optional: the scan lock and status cache degrade gracefully.
	if err := redis.Init(cfg.Redis.URL, cfg.Redis.Password); err != nil {
		logger.Warn(context.Background(), "redis unavailable, continuing without it", zap.Error(err))
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	paymentRequestRepo := repositories.NewPaymentRequestRepository(db)

	assets := usecases.NewAssetRegistry(cfg.Networks)

	sources := blockchain.NewSourceRegistry()
	sources.Register(blockchain.NewTronClient(cfg.Networks[entities.NetworkTron]))
	sources.Register(blockchain.NewBscClient(cfg.Networks[entities.NetworkBSC]))

	monitorUsecase := usecases.NewPaymentMonitorUsecase(
		paymentRequestRepo,
		sources,
		assets,
		usecases.NewLogNotifier(),
		cfg.Monitor.GraceBuffer,
		cfg.Monitor.ToleranceBps,
	)

	monitorJob := jobs.NewPaymentMonitorJob(
		paymentRequestRepo,
		monitorUsecase,
		redis.NewScanLock(cfg.Monitor.LockTTL),
		cfg.Monitor,
	)
	if err := monitorJob.Start(); err != nil {
		return fmt.Errorf("failed to start payment monitor: %w", err)
	}

	paymentRequestUsecase := usecases.NewPaymentRequestUsecase(
		paymentRequestRepo,
		assets,
		cfg.Monitor.PaymentTTL,
		cfg.Frontend.BaseURL,
	)

	router := setupRouter(handlers.NewPaymentRequestHandler(paymentRequestUsecase))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "http server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		monitorJob.Stop()
		return err
	case sig := <-quit:
		logger.Info(context.Background(), "shutting down", zap.String("signal", sig.String()))
	}

	// Let the in-flight scan cycle finish so no payment write is torn.
	monitorJob.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
