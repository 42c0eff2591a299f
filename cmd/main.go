package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"go.uber.org/zap"

	"furnistore/internal/caching"
	"furnistore/internal/config"
	"furnistore/internal/handlers"
	"furnistore/internal/jobs"
	"furnistore/internal/logger"
	"furnistore/internal/middleware"
	"furnistore/internal/repositories"
	"furnistore/internal/services"
	"furnistore/migrations"
	"furnistore/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Logger, cfg.IsDevelopment())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := database.NewPool(ctx, cfg.Postgres, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Postgres.AutoMigrate {
		if err := migrations.Apply(ctx, pool, log); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	// Cache. Without Redis every read goes to Postgres.
	cacheSvc := caching.NewNopCache()
	if cfg.Redis.Addr != "" {
		client, err := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Warn("redis disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheSvc = caching.NewRedisCacheService(client, log)
		}
	}

	// Object storage
	storage, err := services.NewMinioService(services.MinioConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		URLExpiry: cfg.Storage.URLExpiry,
	})
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if err := storage.EnsureBucketExists(ctx); err != nil {
		log.Warn("image bucket unavailable, image URLs will be empty", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
	}

	// Repositories
	categoryRepo := repositories.NewCategoryRepo(pool)
	brandRepo := repositories.NewBrandRepo(pool)
	productRepo := repositories.NewProductRepo(pool)
	productImageRepo := repositories.NewProductImageRepo(pool)
	summaryRepo := repositories.NewSummaryRepo(pool)
	auditRepo := repositories.NewAuditLogsRepo(pool)

	// Services
	categorySvc := services.NewCategoryService(categoryRepo, cacheSvc, storage, log.Named("categories"), cfg.Cache.CategoryTreeTTL)
	brandSvc := services.NewBrandService(brandRepo, cacheSvc, storage, log.Named("brands"))
	productSvc := services.NewProductService(services.ProductServiceDeps{
		Products:   productRepo,
		Images:     productImageRepo,
		Categories: categoryRepo,
		Brands:     brandRepo,
		Cache:      cacheSvc,
		Storage:    storage,
		Logger:     log.Named("products"),
		ListingTTL: cfg.Cache.ListingTTL,
		ProductTTL: cfg.Cache.ProductTTL,
	})
	auditSvc := services.NewAuditLogsService(auditRepo, log.Named("audit"))

	// Background jobs
	scheduler, err := jobs.NewScheduler(log)
	if err != nil {
		return err
	}
	if cfg.Jobs.Enabled {
		catalogJobs := jobs.NewCatalogJobs(summaryRepo, productSvc, categorySvc, log)
		if err := catalogJobs.Register(scheduler, cfg.Jobs.SummaryRefreshInterval, cfg.Jobs.IntegrityInterval); err != nil {
			return err
		}
		scheduler.Start()
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Warn("job scheduler stop", zap.Error(err))
		}
	}()

	// Admin authentication
	if cfg.Auth.JWKSURL == "" && cfg.Auth.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.Auth.JWTSecret = random.String(32)
		log.Warn("using a generated JWT secret, admin tokens will not survive a restart")
	}
	adminAuth, err := middleware.NewAdminAuth(ctx, cfg.Auth, log)
	if err != nil {
		return err
	}
	defer adminAuth.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.APIVersionResolver())

	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, storage, version)
	e.GET("/health", healthHandlers.LivenessCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/detailed", healthHandlers.DetailedHealthCheck)

	registerRoutes(e, routeDeps{
		categories: handlers.NewCategoryHandlers(categorySvc),
		brands:     handlers.NewBrandHandlers(brandSvc),
		products:   handlers.NewProductHandlers(productSvc, log.Named("http")),
		jobs:       handlers.NewJobHandlers(scheduler),
		auditLogs:  handlers.NewAuditLogsHandlers(auditSvc),
		version:    versionMiddleware,
		rateLimit:  middleware.RateLimit(cacheSvc, cfg.Server.RateLimit, cfg.Server.RateWindow, log),
		adminAuth:  adminAuth.Middleware(),
		audit:      middleware.NewAuditMiddleware(log, auditSvc).AuditWrites(),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Server.AppEnv), zap.String("version", version))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

type routeDeps struct {
	categories *handlers.CategoryHandlers
	brands     *handlers.BrandHandlers
	products   *handlers.ProductHandlers
	jobs       *handlers.JobHandlers
	auditLogs  *handlers.AuditLogsHandlers
	version    *middleware.VersionMiddleware
	rateLimit  echo.MiddlewareFunc
	adminAuth  echo.MiddlewareFunc
	audit      echo.MiddlewareFunc
}

func registerRoutes(e *echo.Echo, d routeDeps) {
	v1 := e.Group("/v1", d.version.VersionHeader("v1"), d.rateLimit)

	// Storefront
	v1.GET("/categories", d.categories.ListCategories)
	v1.GET("/categories/tree", d.categories.GetTree)
	v1.GET("/categories/:slug", d.categories.GetCategory)
	v1.GET("/brands", d.brands.ListBrands)
	v1.GET("/brands/:slug", d.brands.GetBrand)
	v1.GET("/products", d.products.ListProducts)
	v1.GET("/products/:slug", d.products.GetProduct)

	admin := v1.Group("/admin", d.adminAuth, d.audit)

	admin.GET("/categories/tree", d.categories.GetTree)
	admin.GET("/categories/editor", d.categories.GetEditorNodes)
	admin.GET("/categories/integrity", d.categories.CheckIntegrity)
	admin.POST("/categories", d.categories.CreateCategory)
	admin.PUT("/categories/hierarchy", d.categories.ApplyHierarchy)
	admin.PUT("/categories/:id", d.categories.UpdateCategory)
	admin.DELETE("/categories/:id", d.categories.DeleteCategory)

	admin.POST("/brands", d.brands.CreateBrand)
	admin.PUT("/brands/:id", d.brands.UpdateBrand)
	admin.DELETE("/brands/:id", d.brands.DeleteBrand)

	admin.GET("/products", d.products.AdminListProducts)
	admin.GET("/products/export", d.products.ExportProducts)
	admin.POST("/products/bulk/update", d.products.BulkUpdateProducts)
	admin.POST("/products/bulk/delete", d.products.BulkDeleteProducts)
	admin.GET("/products/:id", d.products.AdminGetProduct)
	admin.POST("/products", d.products.CreateProduct)
	admin.PUT("/products/:id", d.products.UpdateProduct)
	admin.DELETE("/products/:id", d.products.DeleteProduct)
	admin.GET("/products/:id/images", d.products.ListProductImages)
	admin.POST("/products/:id/images", d.products.AddProductImage)
	admin.DELETE("/products/:id/images/:imageId", d.products.DeleteProductImage)

	admin.GET("/jobs", d.jobs.ListJobs)
	admin.POST("/jobs/:name/run", d.jobs.RunJob)

	admin.GET("/audit-logs", d.auditLogs.ListAuditLogs)
	admin.GET("/audit-logs/summary", d.auditLogs.GetAuditSummary)
}
