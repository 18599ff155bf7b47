package main

import (
	"net/http"
	"os"

	"parkinsight/internal/handlers"
	"parkinsight/internal/middleware"
	"parkinsight/internal/services"
	"parkinsight/pkg/cache"
	"parkinsight/pkg/cahcd"
	"parkinsight/pkg/config"
	"parkinsight/pkg/logger"
	"parkinsight/pkg/metrics"
	"parkinsight/pkg/mhvillage"
	"parkinsight/pkg/rivco"
	"parkinsight/pkg/webclient"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// App represents the application structure
type App struct {
	Config         *config.Config
	Router         *gin.Engine
	Store          cache.Store
	DatasetHandler *handlers.DatasetHandler
	RateLimiter    *middleware.RateLimiter
	Server         *http.Server
}

// Create and initialize a new App instance
func NewApp(cfg *config.Config) *App {
	app := &App{Config: cfg}

	// Initialize infrastructure
	app.initializeCache()
	app.initializeMetrics()
	app.initializeRateLimiter()

	// Initialize business logic
	app.initializeDependencies()

	// Initialize web layer
	app.initializeRouter()

	return app
}

// initialize the cache backend
func (a *App) initializeCache() {
	switch a.Config.Cache.Backend {
	case "redis":
		store, err := cache.NewRedisStore(cache.RedisOptions{
			Host:     a.Config.Redis.Host,
			Port:     a.Config.Redis.Port,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		if err != nil {
			logger.GlobalLogger.Errorf("Failed to initialize Redis cache: %v", err)
			os.Exit(1)
		}
		a.Store = store
	default:
		a.Store = cache.NewMemoryStore()
	}
}

// initialize Prometheus metrics
func (a *App) initializeMetrics() {
	metrics.Init()
}

// initialize the rate limiter
func (a *App) initializeRateLimiter() {
	a.RateLimiter = middleware.NewRateLimiter(rate.Limit(100/60.0), 10)
	go a.RateLimiter.Cleanup()
}

// initialize all dependencies
func (a *App) initializeDependencies() {
	web := webclient.NewClient()

	// source clients
	cahcdClient := cahcd.NewClient(a.Config.Sources.CAHCD.BaseURL, web)
	rivcoClient := rivco.NewClient(a.Config.Sources.RivCo.BaseURL, a.Config.Sources.Concurrency, web)
	mhvClient := mhvillage.NewClient(a.Config.Sources.MHVillage.BaseURL, a.Config.Sources.MHVillage.PageSize, a.Config.Sources.Concurrency, web)

	// services
	datasetService := services.NewDatasetService(a.Config, a.Store, cahcdClient, rivcoClient, mhvClient)

	// handlers
	a.DatasetHandler = handlers.NewDatasetHandler(datasetService)
}

// set up the Gin router with middleware and routes
func (a *App) initializeRouter() {
	a.Router = gin.New()
	a.setupMiddleware()
	a.setupRoutes()
}

// cleanup operations
func (a *App) cleanup() {
	if err := a.Store.Close(); err != nil {
		logger.GlobalLogger.Errorf("Failed to close cache store: %v", err)
	}
}
