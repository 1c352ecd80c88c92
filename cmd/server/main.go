package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/database"
	"github.com/examportal/portal-backend/internal/handler"
	"github.com/examportal/portal-backend/internal/logger"
	"github.com/examportal/portal-backend/internal/repository"
	"github.com/examportal/portal-backend/internal/router"
	"github.com/examportal/portal-backend/internal/service"
	"github.com/examportal/portal-backend/internal/validator"
	"github.com/examportal/portal-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg, "server")
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting exam portal backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	guestRepo := repository.NewGuestRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	reportRepo := repository.NewReportRepository(pool)

	tokenStore := repository.NewTokenStore(rdb)
	otpStore := repository.NewOTPStore(rdb)
	paperCache := repository.NewPaperCache(rdb, cfg.DepartmentCacheTTL)
	queue := repository.NewQueue(rdb)
	eventBus := repository.NewEventBus(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	deviceGuard := service.NewDeviceGuard(userRepo, log)
	authService := service.NewAuthService(cfg, userRepo, tokenStore, deviceGuard, queue, log)
	departmentService := service.NewDepartmentService(departmentRepo, paperCache, log)
	questionService := service.NewQuestionService(questionRepo, departmentRepo, paperCache, log)
	examService := service.NewExamService(examRepo, questionRepo, departmentRepo, paperCache, eventBus, log)
	demoService := service.NewDemoService(guestRepo, questionRepo, queue, queue, cfg.DemoQuestionsPerType, log)
	otpService := service.NewOTPService(otpStore, queue, cfg.OTPExpiry, cfg.OTPMaxAttempts, log)
	adminService := service.NewAdminService(userRepo, auditRepo, tokenStore, log)
	reportService := service.NewReportService(reportRepo, cfg.PassingScore)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, log),
		Department: handler.NewDepartmentHandler(departmentService, log),
		Question:   handler.NewQuestionHandler(questionService, log),
		Exam:       handler.NewExamHandler(examService, log),
		Demo:       handler.NewDemoHandler(demoService, log),
		OTP:        handler.NewOTPHandler(otpService, log),
		Admin:      handler.NewAdminHandler(adminService, demoService, log),
		Report:     handler.NewReportHandler(reportService, log),
		WS:         handler.NewWSHandler(eventBus, log, cfg.AllowedOrigins),
		System:     handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	auditWorker := worker.NewAuditWorker(rdb, auditRepo, log)
	notificationWorker := worker.NewNotificationWorker(rdb, worker.NewSender(cfg, log), log)

	workers.Add(2)
	go func() { defer workers.Done(); auditWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); notificationWorker.Start(workerCtx) }()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg, rdb, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
