package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/bizdesk/internal/application/cachesync"
	clientapp "github.com/erp/bizdesk/internal/application/client"
	companyapp "github.com/erp/bizdesk/internal/application/company"
	"github.com/erp/bizdesk/internal/application/document"
	identityapp "github.com/erp/bizdesk/internal/application/identity"
	orderapp "github.com/erp/bizdesk/internal/application/order"
	quoteapp "github.com/erp/bizdesk/internal/application/quote"
	reportapp "github.com/erp/bizdesk/internal/application/report"
	"github.com/erp/bizdesk/internal/domain/report"
	"github.com/erp/bizdesk/internal/infrastructure/auth"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/erp/bizdesk/internal/infrastructure/config"
	"github.com/erp/bizdesk/internal/infrastructure/event"
	"github.com/erp/bizdesk/internal/infrastructure/logger"
	"github.com/erp/bizdesk/internal/infrastructure/persistence"
	"github.com/erp/bizdesk/internal/infrastructure/printing"
	"github.com/erp/bizdesk/internal/infrastructure/storage"
	"github.com/erp/bizdesk/internal/infrastructure/telemetry"
	"github.com/erp/bizdesk/internal/interfaces/http/handler"
	"github.com/erp/bizdesk/internal/interfaces/http/middleware"
	"github.com/erp/bizdesk/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync(log)

	ctx := context.Background()

	// Telemetry providers are no-ops when disabled
	tel, err := telemetry.Setup(ctx, cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	if tel.Logs.IsEnabled() {
		level := logger.ParseLevel(cfg.Log.Level)
		log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, tel.Logs.Core(level))
		}))
	}

	log.Info("Starting bizdesk",
		zap.String("app", cfg.App.Name),
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	// Database with zap-backed GORM logger and telemetry plugins
	dbPlugins, err := tel.DBPlugins(cfg.Telemetry, cfg.Database.Driver)
	if err != nil {
		log.Fatal("Failed to create database instrumentation", zap.Error(err))
	}
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh),
		persistence.WithPlugins(dbPlugins...),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if cfg.Database.Driver == "sqlite" {
		// Versioned migrations target postgres; sqlite schemas come from the models
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to create sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	repos := persistence.NewRepositories(db.DB)

	// Reactive data manager over the repositories
	cacheMetrics, err := tel.CacheRecorder()
	if err != nil {
		log.Fatal("Failed to create cache metrics", zap.Error(err))
	}
	dm := cache.NewDataManager(repos.DataSource(),
		cache.WithLogger(log),
		cache.WithRecorder(cacheMetrics),
	)

	// Cross-instance invalidation; in-process when Redis is not configured
	broadcaster := cache.NewBroadcaster(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Cache.InvalidationChannel, log)
	syncer := cache.NewSyncer(dm, broadcaster, log)

	// Confirmed writes reload the affected collections through the event bus
	eventBus := event.NewInMemoryEventBus(log)
	invalidation := cachesync.NewInvalidationHandler(dm, syncer, log)
	eventBus.Subscribe(invalidation)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	log.Info("Event handlers registered", zap.Strings("cache_sync_events", invalidation.EventTypes()))

	// Object storage; nil when the provider is "none"
	objects, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	log.Info("Object storage ready", zap.String("provider", cfg.Storage.Provider))

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(repos.Users, jwtService, log)
	userService := identityapp.NewUserService(repos.Users, log)
	clientService := clientapp.NewClientService(repos.Clients, dm, log)
	quoteService := quoteapp.NewQuoteService(repos.Quotes, repos.Orders, repos.Clients, dm, log)
	orderService := orderapp.NewOrderService(repos.Orders, dm, log)
	companyService := companyapp.NewCompanyService(repos.Settings, dm, objects, log)

	clientService.SetEventPublisher(eventBus)
	quoteService.SetEventPublisher(eventBus)
	orderService.SetEventPublisher(eventBus)
	companyService.SetEventPublisher(eventBus)

	// PDF rendering
	var (
		documents *document.DocumentService
		renderer  *printing.ChromedpRenderer
		renders   *printing.RenderCache
		printer   reportapp.Printer
		display   report.Formatter
	)
	if cfg.Printing.Enabled {
		var engine *printing.TemplateEngine
		documents, engine, renderer, renders = newDocumentService(cfg, repos, dm, objects, companyService, tel, log)
		printer = documents
		display = engine.Formatter()
	} else {
		log.Info("PDF rendering disabled")
	}
	reportService := reportapp.NewReportService(dm, printer, display, log)

	// Warm the cache before accepting traffic
	if cfg.Cache.WarmOnStart {
		warmCtx, cancel := context.WithTimeout(ctx, cfg.Cache.ReloadTimeout)
		if _, err := dm.InvalidateAll(warmCtx); err != nil {
			log.Warn("Cache warm-up failed, collections load on first read", zap.Error(err))
		} else {
			log.Info("Cache warmed", zap.Strings("collections", collectionNames()))
		}
		cancel()
	}

	// Subscribe to invalidations from other instances
	syncCtx, stopSync := context.WithCancel(ctx)
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		if err := syncer.Run(syncCtx); err != nil {
			log.Error("Cache invalidation subscription ended", zap.Error(err))
		}
	}()

	// HTTP handlers
	eventsHandler := handler.NewEventsHandler(dm,
		handler.WithSSELogger(log),
		handler.WithSSEHeartbeat(cfg.HTTP.SSEHeartbeat),
	)
	if err := eventsHandler.Start(); err != nil {
		log.Fatal("Failed to start event stream", zap.Error(err))
	}

	handlers := router.APIHandlers{
		Auth:    handler.NewAuthHandler(authService),
		Users:   handler.NewUserHandler(userService),
		Clients: handler.NewClientHandler(clientService),
		Quotes:  handler.NewQuoteHandler(quoteService, documents),
		Orders:  handler.NewOrderHandler(orderService, documents),
		Company: handler.NewCompanyHandler(companyService),
		Reports: handler.NewReportHandler(reportService),
		Events:  eventsHandler,
		Cache:   handler.NewCacheHandler(dm, syncer),
		System:  handler.NewSystemHandler(cfg.App.Name, version, db, dm),
	}
	if _, ok := objects.(*storage.LocalObjectStorage); ok {
		handlers.Files = handler.NewFileHandler(objects)
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Logger - Log requests
	// 3. Recovery - Catch panics
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. Tracing - Server spans, error status, metrics
	// 8. RateLimit - Apply rate limiting (if enabled)
	// 9. JWT - Authenticate everything but the public paths
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log, "/health", "/api/v1/health"))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Secure())

	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-Page-Count", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine.Use(bodyLimit(cfg.HTTP))

	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tel.Tracer.IsEnabled(),
	}))
	engine.Use(middleware.SpanErrorMarker())
	if tel.Meter.IsEnabled() {
		httpMetrics, err := middleware.HTTPMetrics(tel.Meter)
		if err != nil {
			log.Fatal("Failed to create HTTP metrics", zap.Error(err))
		}
		engine.Use(httpMetrics)
	}

	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	engine.Use(loginRateLimit(middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)))

	engine.Use(middleware.Profiling(tel.Profiler.IsEnabled(), "/health", "/api/v1/health", "/api/v1/events"))

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))
	engine.Use(middleware.TracingAttributeInjector())

	router.RegisterAPI(engine, router.NewRouter(engine, router.WithAPIVersion("v1")), handlers)

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var result *multierror.Error
	// Streams never finish on their own, so end them before draining
	eventsHandler.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	stopSync()
	<-syncDone
	if err := broadcaster.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	if renders != nil {
		renders.Close()
	}
	if renderer != nil {
		if err := renderer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := db.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		log.Error("Server exited with errors", zap.Error(err))
		logger.Sync(log)
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

// newDocumentService wires templates, the Chromium renderer and the render
// cache. The browser starts on the first render.
func newDocumentService(
	cfg *config.Config,
	repos *persistence.Repositories,
	dm *cache.DataManager,
	objects storage.ObjectStorage,
	logos document.LogoSource,
	tel *telemetry.Telemetry,
	log *zap.Logger,
) (*document.DocumentService, *printing.TemplateEngine, *printing.ChromedpRenderer, *printing.RenderCache) {
	templates, err := printing.NewTemplateStore("")
	if err != nil {
		log.Fatal("Failed to load document templates", zap.Error(err))
	}
	engine, err := printing.NewTemplateEngine(cfg.Printing.Locale, cfg.Printing.Currency)
	if err != nil {
		log.Fatal("Failed to create template engine", zap.Error(err))
	}
	renderer := printing.NewChromedpRenderer(printing.ChromedpConfig{
		DefaultTimeout: cfg.Printing.RenderTimeout,
		RemoteURL:      cfg.Printing.RemoteURL,
		ExecPath:       cfg.Printing.ChromePath,
		NoSandbox:      os.Geteuid() == 0,
		MaxConcurrent:  cfg.Printing.MaxConcurrent,
		Logger:         log,
	})
	renders := printing.NewRenderCache(cfg.Printing.CacheTTL, cfg.Printing.CacheCapacity)

	docs := document.NewDocumentService(repos.Quotes, repos.Orders, dm, templates, engine, renderer, renders, log)
	docs.SetLogoSource(logos)
	if objects != nil {
		docs.SetStorage(objects, cfg.Storage.PresignExpiry)
	}
	metrics, err := tel.DocumentMetrics()
	if err != nil {
		log.Fatal("Failed to create document metrics", zap.Error(err))
	}
	docs.SetMetrics(metrics)

	log.Info("PDF rendering enabled",
		zap.String("locale", cfg.Printing.Locale),
		zap.String("currency", cfg.Printing.Currency),
		zap.Int("max_concurrent", cfg.Printing.MaxConcurrent),
		zap.Bool("remote_browser", cfg.Printing.RemoteURL != ""),
	)
	return docs, engine, renderer, renders
}

// bodyLimit applies the upload limit to the logo route and the general
// limit everywhere else
func bodyLimit(cfg config.HTTPConfig) gin.HandlerFunc {
	general := middleware.BodyLimit(cfg.MaxBodySize)
	upload := middleware.BodyLimit(cfg.MaxUploadSize)
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/api/v1/company/logo" {
			upload(c)
			return
		}
		general(c)
	}
}

// loginRateLimit throttles login attempts per client IP
func loginRateLimit(limiter *middleware.RateLimiter) gin.HandlerFunc {
	limit := middleware.RateLimit(limiter)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost && c.Request.URL.Path == "/api/v1/auth/login" {
			limit(c)
			return
		}
		c.Next()
	}
}

func collectionNames() []string {
	all := cache.AllCollections()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = string(c)
	}
	return names
}
