package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/cache"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/config"
	cronrunner "github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/cron"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/db"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/forecast"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/handler"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/logger"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/market"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/marketdata"
	gormrepository "github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository/gorm"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/sentiment"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/service"
)

func main() {
	cfgPath := os.Getenv("SENT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SENT_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	cacheStore := cache.New(cfg.Cache, logger)
	calendar := market.NewCalendar(cfg.Market.Timezone)

	quoteHTTP := &http.Client{Timeout: cfg.MarketData.Timeout}
	quotes := &marketdata.CachedProvider{
		Inner:  marketdata.NewYahooClient(quoteHTTP, cfg.MarketData.BaseURL),
		Store:  cacheStore,
		TTL:    cfg.MarketData.CacheTTL,
		Logger: logger,
	}

	var mlScorer sentiment.Scorer
	if cfg.Sentiment.ML.Enabled {
		mlHTTP := &http.Client{Timeout: cfg.Sentiment.ML.Timeout}
		mlScorer = sentiment.NewRemoteScorer(mlHTTP, cfg.Sentiment.ML.Endpoint)
	}

	articleSvc := &service.ArticleStoreService{Repo: store, Logger: logger}
	tickerSvc := &service.TickerRegistryService{Repo: store, Logger: logger}
	linkerSvc := &service.MentionLinkerService{
		Repo:      store,
		Logger:    logger,
		MaxTokens: cfg.Sentiment.MaxTokens,
	}
	aggregator := &service.SentimentAggregatorService{
		Repo:     store,
		Logger:   logger,
		Calendar: calendar,
		Weights:  cfg.Sentiment.Weights,
		Dynamic:  &sentiment.DynamicScorer{},
		ML:       mlScorer,
	}
	predictor := &service.PredictionEngineService{
		Repo:   store,
		Logger: logger,
		Model: &forecast.Baseline{
			MoveScalePct:       cfg.Forecast.MoveScalePct,
			ProbSlope:          cfg.Forecast.ProbSlope,
			AgeHalfLifeMinutes: cfg.Forecast.AgeHalfLifeMinutes,
		},
	}
	reconciler := &service.OutcomeReconcilerService{Repo: store, Logger: logger}
	scoringPass := &service.ScoringPassService{
		Repo:       store,
		Aggregator: aggregator,
		Engine:     predictor,
		Config:     cfg.Scoring,
		Logger:     logger,
	}
	outcomePass := &service.OutcomePassService{
		Repo:       store,
		Reconciler: reconciler,
		Provider:   quotes,
		Calendar:   calendar,
		Config:     cfg.Outcome,
		Logger:     logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(handler.RequestID())
	engine.Use(handler.RequestLogger(logger))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	articleHandler := &handler.ArticleHandler{Service: articleSvc, Repo: store, Logger: logger}
	articleHandler.Register(engine)
	tickerHandler := &handler.TickerHandler{Service: tickerSvc, Repo: store, Logger: logger}
	tickerHandler.Register(engine)
	linkHandler := &handler.LinkHandler{
		Linker:     linkerSvc,
		Aggregator: aggregator,
		Reconciler: reconciler,
		Repo:       store,
		Logger:     logger,
	}
	linkHandler.Register(engine)
	predictionHandler := &handler.PredictionHandler{Engine: predictor, Repo: store, Logger: logger}
	predictionHandler.Register(engine)
	actualHandler := &handler.ActualHandler{Reconciler: reconciler, Repo: store, Logger: logger}
	actualHandler.Register(engine)
	pipelineHandler := &handler.PipelineHandler{
		Repo:    store,
		Scoring: scoringPass,
		Outcome: outcomePass,
		Logger:  logger,
	}
	pipelineHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add("scoring_pass", cfg.Cron.ScoringPass, scoringPass.RunOnce); err != nil {
			logger.Warn("cron register scoring pass failed", zap.Error(err))
		}
		if _, err := cronRunner.Add("outcome_pass", cfg.Cron.OutcomePass, outcomePass.RunOnce); err != nil {
			logger.Warn("cron register outcome pass failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	// Sweep whatever queued up while the engine was down before the
	// first cron tick arrives.
	go func() {
		if err := scoringPass.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("initial scoring pass failed", zap.Error(err))
		}
		if err := outcomePass.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("initial outcome pass failed", zap.Error(err))
		}
	}()

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
