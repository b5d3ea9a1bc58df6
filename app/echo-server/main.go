package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"priceSense/app/echo-server/metrics"
	"priceSense/app/echo-server/router"
	"priceSense/business/bandit"
	"priceSense/business/explain"
	"priceSense/business/pathfinder"
	"priceSense/business/pipeline"
	"priceSense/business/ranking"
	"priceSense/business/routing"
	"priceSense/business/search"
	"priceSense/domain"
	"priceSense/internal/middleware"
	"priceSense/internal/repository/affordability"
	"priceSense/internal/repository/memory"
	psqlRepo "priceSense/internal/repository/postgres"
	redisRepo "priceSense/internal/repository/redis"
	"priceSense/internal/repository/vector"
	"priceSense/internal/rest"
	"priceSense/pkg/config"
	"priceSense/pkg/database"
	redisdb "priceSense/pkg/database/redis"
	"priceSense/pkg/llm"
	"priceSense/pkg/logger"
	appmetrics "priceSense/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type resultCache interface {
	search.ResultCache
	rest.CacheStats
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting PriceSense", "version", cfg.App.Version)

	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		logger.Fatal("Failed to load ranking policy", "error", err)
	}

	appmetrics.Init()
	metrics.Init()

	checks := map[string]rest.HealthCheck{}

	// Postgres is optional: without it there is no event log and no
	// catalog-backed cheaper-alternative lookup.
	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = database.InitPostgres(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		logger.Info("Database connected successfully")
		checks["postgres"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisdb.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, using in-process stores", "error", err)
		} else {
			logger.Info("Redis connected successfully")
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}
	defer func() {
		if err := redisdb.CloseRedisClient(redisClient); err != nil {
			logger.Error("Failed to close redis", "error", err)
		}
	}()

	// Init repo
	var (
		counters bandit.CounterStore
		cache    resultCache
	)
	if redisClient != nil {
		counters = redisRepo.NewCounterStore(redisClient, cfg.Bandit.PriorAlpha, cfg.Bandit.PriorBeta)
		cache = redisRepo.NewResultCache(redisClient)
	} else {
		counters = memory.NewCounterStore(cfg.Bandit.PriorAlpha, cfg.Bandit.PriorBeta)
		cache = memory.NewResultCache(cfg.Cache.Size, cfg.Cache.TTL)
	}

	var (
		feedbackRepo   bandit.FeedbackRepository
		actionCounter  rest.ActionCounter
		catalog        pathfinder.Catalog
		clusterCatalog pipeline.ClusterCatalog
		products       []domain.CandidateItem
	)
	if db != nil {
		fr := psqlRepo.NewFeedbackRepository(db)
		feedbackRepo, actionCounter = fr, fr

		cr := psqlRepo.NewCatalogRepository(db)
		catalog, clusterCatalog = cr, cr
		products, err = loadCatalog(cr)
		if err != nil {
			logger.Fatal("Failed to load catalog", "error", err)
		}
	}

	index, err := vector.NewIndex(cfg.Embedding.PersistPath, vector.EmbeddingFunc(cfg.Embedding))
	if err != nil {
		logger.Fatal("Failed to open vector index", "error", err)
	}
	if len(products) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		err := index.Load(ctx, products)
		cancel()
		if err != nil {
			logger.Fatal("Failed to index catalog", "error", err)
		}
	}

	oracle := affordability.NewOracleRepository(affordability.OracleConfig{
		BaseURL: cfg.Affordability.URL,
		Timeout: cfg.Affordability.Timeout,
	})

	var explainer explain.Explainer = explain.Template{}
	detailed := 0
	if cfg.LLM.APIKey != "" {
		explainer = explain.NewLLM(llm.NewOpenAIClient(cfg.LLM.Endpoint, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout))
		detailed = 3
	}

	// Init service
	weights := ranking.DefaultWeights()
	if w := policy.Weights; w != nil {
		weights = ranking.Weights{Bandit: w.Bandit, Affinity: w.Affinity, Relevance: w.Relevance, Diversity: w.Diversity}
	}
	if err := weights.Validate(); err != nil {
		logger.Fatal("Invalid ranking weights", "error", err)
	}

	banditStore := bandit.NewStore(counters, bandit.ConfigFrom(cfg.Bandit))
	ranker := ranking.NewRanker(banditStore, weights, ranking.NewDiversityInjector(ranking.DiversityConfig{
		OutputSize:       cfg.Ranking.OutputSize,
		ExploitPositions: cfg.Ranking.ExploitPositions,
		JitterSlots:      ranking.DefaultDiversityConfig().JitterSlots,
		JitterSigma:      cfg.Ranking.JitterSigma,
		MaxJitter:        cfg.Ranking.MaxJitter,
		SerendipityBonus: cfg.Ranking.SerendipityBonus,
	}))

	searchService := search.NewService(
		routing.NewEstimator(policy.FinancialKeywords, policy.SpecificityTerms),
		routing.NewRouter(routing.Thresholds{Fast: cfg.Routing.FastThreshold, Smart: cfg.Routing.SmartThreshold}),
		pipeline.Deps{
			Search:               index,
			Oracle:               oracle,
			Pathfinder:           pathfinder.New(catalog, oracle, pathfinder.DefaultConfig()),
			Ranker:               ranker,
			Explainer:            explainer,
			Catalog:              clusterCatalog,
			TopK:                 cfg.Search.TopK,
			ScoreThreshold:       cfg.Search.ScoreThreshold,
			DetailedExplanations: detailed,
			ExplainTimeout:       cfg.LLM.Timeout,
			ClusterAlternatives:  cfg.Ranking.ClusterAlternatives,
		},
		cache,
		search.Config{
			CacheTTL:       cfg.Cache.TTL,
			RequestTimeout: cfg.Server.RequestTimeout,
			StageTimeout:   cfg.Search.StageTimeout,
		},
	)
	feedbackService := bandit.NewFeedbackService(banditStore, bandit.DefaultRewardTable().WithOverrides(policy.Rewards), feedbackRepo)

	// Init handler
	searchHandler := rest.NewSearchHandler(searchService)
	banditHandler := rest.NewBanditHandler(feedbackService, banditStore, actionCounter)
	opsHandler := rest.NewOpsHandler(cache, checks, cfg.App.Version)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Setup routes
	api := e.Group("/api")
	router.SetupSearchRoutes(api, searchHandler)
	router.SetupBanditRoutes(api, banditHandler, middleware.OptionalJWT(cfg.JWT.SecretKey))
	router.SetupOpsRoutes(api, opsHandler)
	router.SetupMetricsRoute(e)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}

func loadCatalog(repo *psqlRepo.CatalogRepository) ([]domain.CandidateItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CandidateItem, len(rows))
	for i, p := range rows {
		items[i] = p.Candidate()
	}
	logger.Info("Catalog loaded", "products", len(items))
	return items, nil
}
