package main // Entry point package

import (
	"context"
	"errors"
	"log" // used until the zap logger exists
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"    // optional .env loading for local runs
	"github.com/labstack/echo/v4" // Echo web framework
	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/config"
	"github.com/iliyamo/dormboard/internal/database"
	"github.com/iliyamo/dormboard/internal/handler"
	"github.com/iliyamo/dormboard/internal/logger"
	"github.com/iliyamo/dormboard/internal/middleware"
	"github.com/iliyamo/dormboard/internal/queue"
	"github.com/iliyamo/dormboard/internal/repository"
	"github.com/iliyamo/dormboard/internal/router"
	"github.com/iliyamo/dormboard/internal/service"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; real env vars win
	cfg := config.Load()

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "dormboard")
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		lg.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		lg.Warn("redis unreachable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.RabbitURL, lg)
		consumer := queue.NewAuditConsumer(cfg.RabbitURL, cfg.AuditLogDir, lg)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	// repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	members := repository.NewMembershipRepo(db)
	buildings := repository.NewBuildingRepo(db)
	codes := repository.NewInviteCodeRepo(db)
	messages := repository.NewMessageRepo(db)
	pins := repository.NewPinnedMessageRepo(db)
	reports := repository.NewEmergencyRepo(db)

	// services
	creds := service.NewCredentialStore(users, cfg.BcryptCost, lg)
	gate := service.NewGate(service.NewResolver(members, lg), members, lg)
	invites := service.NewInviteAuthority(codes, buildings, gate, lg)
	enroll := service.NewEnrollmentService(db, creds, members, buildings, invites, gate,
		service.EnrollmentPolicy{EmailSuffixes: cfg.EmailSuffixes, MinPasswordLen: cfg.MinPasswordLen}, lg)
	emergencies := service.NewEmergencyService(db, reports, pins, buildings, gate, events, lg)
	board := service.NewBoardService(messages, pins, gate, lg)
	buildingSvc := service.NewBuildingService(buildings, members, gate, lg)

	cacheCfg := config.LoadCacheConfig()
	dev := cfg.IsDev()
	h := router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, creds, gate, enroll, tokens, lg),
		Board:       handler.NewBoardHandler(board, buildingSvc, dev, lg),
		Emergencies: handler.NewEmergencyHandler(emergencies, dev, lg),
		Invites:     handler.NewInviteHandler(invites, dev, lg),
		Buildings:   handler.NewBuildingHandler(buildingSvc, enroll, rdb, cacheCfg.Prefix, dev, lg),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(lg))
	router.RegisterAll(e, h, router.Deps{
		DB:        db,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     cacheCfg,
		Log:       lg,
	})

	addr := ":" + cfg.Port
	go func() {
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
}
