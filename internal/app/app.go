package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/pasteleia/bakery/internal/domain/auth"
	"github.com/pasteleia/bakery/internal/domain/finance"
	"github.com/pasteleia/bakery/internal/domain/order"
	"github.com/pasteleia/bakery/internal/domain/product"
	"github.com/pasteleia/bakery/internal/domain/recipe"
	"github.com/pasteleia/bakery/internal/handler"
	"github.com/pasteleia/bakery/internal/media"
	"github.com/pasteleia/bakery/internal/notify/whatsapp"
	"github.com/pasteleia/bakery/internal/storage/postgres"
	"github.com/pasteleia/bakery/internal/storage/redis"
	"github.com/pasteleia/bakery/pkg/health"
	"github.com/pasteleia/bakery/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return errors.Wrap(err, "load timezone")
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Redis keeps carts and back-office sessions.
	rdb, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	defer func() { _ = rdb.Close() }()

	// Health check service.
	healthSvc := health.New()
	healthSvc.Add(health.Readiness, "postgres", health.PingCheck(pool), health.WithTimeout(5*time.Second))
	healthSvc.Add(health.Readiness, "redis", health.RedisCheck(rdb))
	healthSvc.Add(health.Liveness, "goroutines", health.GoroutineCountCheck(10000), health.WithTimeout(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Product images.
	var (
		images       product.ImageUploader
		mediaHandler http.Handler
	)
	switch cfg.Storage.Driver {
	case "dir":
		dir := media.NewDirUploader(cfg.Storage.Dir, "/media")
		images = media.NewProductImages(dir)
		mediaHandler = dir.Handler()
	case "s3":
		s3cfg := media.S3Config{
			Bucket:          cfg.Storage.S3.Bucket,
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			UsePathStyle:    cfg.Storage.S3.UsePathStyle,
			PublicURL:       cfg.Storage.S3.PublicURL,
		}
		client, err := media.NewS3Client(ctx, s3cfg)
		if err != nil {
			return errors.Wrap(err, "create s3 client")
		}
		images = media.NewProductImages(media.NewS3Uploader(client, s3cfg))
	default:
		lg.Warn("Image uploads disabled", zap.String("driver", cfg.Storage.Driver))
	}

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	inventoryRepo := postgres.NewInventoryRepository(pool)
	financeRepo := postgres.NewFinanceRepository(pool)
	recipeRepo := postgres.NewRecipeRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	// Domain services.
	submitterOpts := []order.SubmitterOption{
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	}
	if cfg.Orders.Compensate {
		submitterOpts = append(submitterOpts, order.WithCompensation())
	}
	submitter, err := order.NewSubmitter(orderRepo, inventoryRepo, submitterOpts...)
	if err != nil {
		return errors.Wrap(err, "create order submitter")
	}

	// HTTP handlers.
	h := handler.New(handler.Config{
		SecureCookies:  cfg.SecureCookies,
		CartTTL:        cfg.Cart.TTL,
		Location:       loc,
		LoginRateLimit: cfg.Auth.LoginRateLimit,
		StrictPhone:    cfg.Orders.StrictPhone,
	}, handler.Deps{
		Products:  product.NewService(productRepo, images),
		Carts:     redis.NewCartStorage(rdb, cfg.Cart.TTL),
		Submitter: submitter,
		Orders:    order.NewService(orderRepo),
		Finance:   finance.NewService(financeRepo, productRepo, finance.WithLocation(loc)),
		Recipes:   recipe.NewService(recipeRepo),
		Auth:      auth.NewService(userRepo, redis.NewSessionStore(rdb), []byte(cfg.Auth.Pepper), cfg.Auth.SessionTTL),
		Notifier:  whatsapp.NewNotifier(cfg.WhatsApp.Phone),
		Media:     mediaHandler,
	})

	// Router: health endpoints + API routes on one server.
	router := chi.NewRouter()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	router.Mount("/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				Skip:   isProbe,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("bakery-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func isProbe(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}
