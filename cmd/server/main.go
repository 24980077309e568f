package main

import (
	"log"
	"time"

	"memetokenhub/internal/config"
	"memetokenhub/internal/database"
	"memetokenhub/internal/handlers"
	"memetokenhub/internal/logging"
	"memetokenhub/internal/retry"
	"memetokenhub/internal/services"
	"memetokenhub/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 2. Init DB
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to init database", zap.Error(err))
	}

	// 3. Domain services
	claimStore := store.New(db)
	challenges := services.NewChallengeService(time.Duration(cfg.ChallengeTTLMinutes) * time.Minute)
	evaluator := services.NewEvaluator(
		services.Ed25519Verifier{},
		&services.NetResolver{},
		services.StaticAuthorityRegistry(cfg.Authorities()),
		time.Duration(cfg.EvalTimeoutSeconds)*time.Second,
		logger,
	)
	profiles := services.NewProfileStore(db)
	coordinator := services.NewCoordinator(claimStore, evaluator, challenges, profiles,
		services.CoordinatorConfig{
			CryptoThreshold: cfg.CryptoApprovalThreshold,
			SocialThreshold: cfg.SocialApprovalThreshold,
			Retry:           retry.DefaultConfig(),
		}, logger)

	// 4. API Server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	api := e.Group("/api")
	submitLimiter := middleware.RateLimiter(
		middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.SubmitRateLimit)))

	h := handlers.NewClaimHandler(coordinator, challenges, profiles,
		cfg.Approvers(), cfg.MediaBaseURL, logger)
	handlers.RegisterRoutes(e, api, h, submitLimiter)

	logger.Info("MemeTokenHub claim service starting", zap.String("addr", cfg.ListenAddr))
	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}
