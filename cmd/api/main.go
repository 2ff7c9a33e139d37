package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ai-declaration-api/api/swagger"
	"github.com/noah-isme/ai-declaration-api/internal/handler"
	"github.com/noah-isme/ai-declaration-api/internal/middleware"
	"github.com/noah-isme/ai-declaration-api/internal/repository"
	"github.com/noah-isme/ai-declaration-api/internal/service"
	"github.com/noah-isme/ai-declaration-api/internal/web"
	"github.com/noah-isme/ai-declaration-api/pkg/cache"
	"github.com/noah-isme/ai-declaration-api/pkg/config"
	"github.com/noah-isme/ai-declaration-api/pkg/database"
	appErrors "github.com/noah-isme/ai-declaration-api/pkg/errors"
	"github.com/noah-isme/ai-declaration-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ai-declaration-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ai-declaration-api/pkg/middleware/requestid"
	"github.com/noah-isme/ai-declaration-api/pkg/response"
	"github.com/noah-isme/ai-declaration-api/pkg/storage"
)

// @title AI Declaration API
// @version 1.0.0
// @description Students declare the AI tools they used on assignments.
// @BasePath /api
// @schemes http

type screenshotStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		logr.Info("database migrated")
	}

	store, err := newScreenshotStore(cfg, logr)
	if err != nil {
		return fmt.Errorf("init upload storage: %w", err)
	}

	metrics := service.NewMetricsService()

	var redisClient *redis.Client
	listCache := service.NewListingCache(nil, metrics, cfg.ListCache.TTL, logr)
	if cfg.ListCache.Enabled {
		redisClient, err = cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Warn("list cache disabled, redis unavailable", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			listCache = service.NewListingCache(repository.NewListingCacheRepository(redisClient, "aidecl:"), metrics, cfg.ListCache.TTL, logr)
		}
	}

	declarationRepo := repository.NewDeclarationRepository(db)
	declarationSvc := service.NewDeclarationService(declarationRepo, store, listCache, metrics, validator.New(), logr, service.DeclarationServiceConfig{
		MaxFileSize: cfg.Uploads.MaxFileSizeBytes,
		PublicPath:  cfg.Uploads.PublicPath,
	})
	exportSvc := service.NewExportService(declarationSvc, logr)

	router, err := newRouter(cfg, logr, routerDeps{
		declarations: handler.NewDeclarationHandler(declarationSvc, exportSvc),
		uploads:      handler.NewUploadHandler(store),
		metrics:      handler.NewMetricsHandler(metrics, declarationRepo),
		pages: web.NewPages(declarationSvc, logr, web.Options{
			APIPrefix:     cfg.APIPrefix,
			MaxUploadSize: cfg.Uploads.MaxFileSizeBytes,
		}),
		metricsSvc: metrics,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logr.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}

func newScreenshotStore(cfg *config.Config, logr *zap.Logger) (screenshotStore, error) {
	switch cfg.Uploads.Driver {
	case config.UploadDriverMinIO:
		return storage.NewMinIOStorage(cfg.MinIO, logr)
	case config.UploadDriverLocal, "":
		return storage.NewLocalStorage(cfg.Uploads.Dir)
	default:
		return nil, fmt.Errorf("unknown upload driver %q", cfg.Uploads.Driver)
	}
}

type routerDeps struct {
	declarations *handler.DeclarationHandler
	uploads      *handler.UploadHandler
	metrics      *handler.MetricsHandler
	pages        *web.Pages
	metricsSvc   *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes
	r.Use(logger.GinRecovery(logr))
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(deps.metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(response.ExposeDetails(!cfg.IsProduction()))

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/health", deps.metrics.Health)
		api.GET("/health/ready", deps.metrics.Ready)
		api.GET("/declarations", deps.declarations.List)
		api.POST("/declarations", deps.declarations.Create)
		api.GET("/declarations/groups", deps.declarations.Groups)
		api.GET("/declarations/export", deps.declarations.Export)
	}

	r.GET("/metrics", deps.metrics.Prometheus)
	r.GET(cfg.Uploads.PublicPath+"/:filename", deps.uploads.Serve)

	if !cfg.IsProduction() {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if err := deps.pages.Register(r); err != nil {
		return nil, fmt.Errorf("register pages: %w", err)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.ErrRouteNotFound)
	})

	return r, nil
}
