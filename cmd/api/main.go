package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/netraseva/intake-api/internal/config"
	"github.com/netraseva/intake-api/internal/email"
	"github.com/netraseva/intake-api/internal/handler"
	appointmentHandler "github.com/netraseva/intake-api/internal/handler/appointment"
	authHandler "github.com/netraseva/intake-api/internal/handler/auth"
	intakeHandler "github.com/netraseva/intake-api/internal/handler/intake"
	"github.com/netraseva/intake-api/internal/middleware"
	"github.com/netraseva/intake-api/internal/repository/postgres"
	"github.com/netraseva/intake-api/internal/router"
	appointmentService "github.com/netraseva/intake-api/internal/service/appointment"
	authService "github.com/netraseva/intake-api/internal/service/auth"
	intakeService "github.com/netraseva/intake-api/internal/service/intake"
	"github.com/netraseva/intake-api/pkg/auth"
	"github.com/netraseva/intake-api/pkg/event"
	"github.com/netraseva/intake-api/pkg/logger"
	"github.com/netraseva/intake-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	baseRepo := postgres.NewBaseRepository(db)
	patientRepo := postgres.NewPatientRepository(baseRepo)
	completionRepo := postgres.NewCompletionRepository(baseRepo)
	historyRepo := postgres.NewHistoryRepository(baseRepo)
	visionRepo := postgres.NewVisionRepository(baseRepo)
	accountRepo := postgres.NewAccountRepository(baseRepo)
	appointmentRepo := postgres.NewAppointmentRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	m := metrics.NewMetrics("intake", "api")
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:      cfg.JWT.Secret,
		ExpiryHours: cfg.JWT.ExpiryHours,
	})
	emailSvc := email.NewSMTPService(cfg.SMTP)

	intakeSvc := intakeService.NewService(
		patientRepo, completionRepo, historyRepo, visionRepo, outboxRepo,
		appLogger, m,
	)
	authSvc := authService.NewService(
		accountRepo, outboxRepo, jwtSvc, emailSvc, appLogger, m,
	)
	appointmentSvc := appointmentService.NewService(appointmentRepo, patientRepo)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)
	eventTracker := event.NewEventTrackerMiddleware(outboxRepo)

	handler.RegisterValidators()

	h := handler.NewHandler()
	authH := authHandler.NewHandler(authSvc)
	intakeH := intakeHandler.NewHandler(intakeSvc)
	appointmentH := appointmentHandler.NewHandler(appointmentSvc)

	r := router.NewRouter(
		authMiddleware,
		authH,
		intakeH,
		appointmentH,
		h,
		eventTracker,
		router.RouterConfig{
			RateLimit:     rate.Limit(cfg.Server.RateLimitRPS),
			RateBurst:     cfg.Server.RateLimitBurst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "intake_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info("server exited")
}
