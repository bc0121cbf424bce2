package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/recipehub/internal/auth"
	"github.com/geocoder89/recipehub/internal/config"
	"github.com/geocoder89/recipehub/internal/db"
	httpx "github.com/geocoder89/recipehub/internal/http"
	"github.com/geocoder89/recipehub/internal/http/handlers"
	"github.com/geocoder89/recipehub/internal/identity"
	"github.com/geocoder89/recipehub/internal/images"
	"github.com/geocoder89/recipehub/internal/observability"
	"github.com/geocoder89/recipehub/internal/recipes"
	"github.com/geocoder89/recipehub/internal/redisclient"
	"github.com/geocoder89/recipehub/internal/repo/memory"
	"github.com/geocoder89/recipehub/internal/repo/postgres"
	"github.com/geocoder89/recipehub/internal/repo/redisstore"
	"github.com/geocoder89/recipehub/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if cfg.OTLPEndpoint != "" {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
		cancel()
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	checks := map[string]handlers.Pinger{}

	var (
		users      identity.UserStore
		lookup     auth.UserLookup
		tokenStore auth.TokenStore
		labels     recipes.LabelStore
		recipeRepo recipes.RecipeStore
	)

	switch cfg.StoreBackend {
	case config.StorePostgres:
		ctx, cancel := config.WithTimeout(10 * time.Second)
		pool, err := db.NewPool(ctx, cfg.DBURL)
		cancel()
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer pool.Close()

		ctx, cancel = config.WithTimeout(30 * time.Second)
		err = db.Migrate(ctx, pool)
		cancel()
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		usersRepo := postgres.NewUsersRepo(pool, prom)
		users, lookup = usersRepo, usersRepo
		tokenStore = postgres.NewTokensRepo(pool, prom)
		labels = postgres.NewLabelsRepo(pool, prom)
		recipeRepo = postgres.NewRecipesRepo(pool, prom)
		checks["postgres"] = pool.Ping

	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on restart")
		usersRepo := memory.NewUsersRepo()
		users, lookup = usersRepo, usersRepo
		tokenStore = memory.NewTokensRepo()
		catalog := memory.NewCatalog()
		labels, recipeRepo = catalog.Labels(), catalog.Recipes()
	}

	if cfg.TokenBackend == config.TokensRedis {
		rc := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rc.Close()

		ctx, cancel := config.WithTimeout(3 * time.Second)
		err := rc.Ping(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}

		tokenStore = redisstore.NewTokensRepo(rc.Raw(), "recipehub:")
		checks["redis"] = rc.Ping
	}

	var (
		blobs     images.BlobStore
		mediaRoot string
	)
	switch cfg.BlobBackend {
	case config.BlobS3:
		ctx, cancel := config.WithTimeout(10 * time.Second)
		s3Store, err := images.NewS3Store(ctx, images.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("s3 store: %w", err)
		}
		blobs = s3Store

	default:
		fsStore, err := images.NewFSStore(cfg.MediaRoot, cfg.MediaURL)
		if err != nil {
			return err
		}
		blobs, mediaRoot = fsStore, fsStore.Root()
	}

	hasher := security.NewBcryptHasher(0)
	identitySvc := identity.NewService(users, hasher, log)

	ctx, cancel := config.WithTimeout(10 * time.Second)
	err := identitySvc.EnsureSuperuser(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
	cancel()
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}

	// set up routers with the log
	router := httpx.NewRouter(log, cfg, httpx.Deps{
		Users:     identitySvc,
		Verifier:  auth.NewVerifier(lookup, hasher),
		Tokens:    auth.NewTokenIssuer(auth.NewManager(cfg.JWTSecret, cfg.TokenTTL), tokenStore),
		Recipes:   recipes.NewService(labels, recipeRepo, images.Instrument(blobs, prom), log, prom),
		Prom:      prom,
		Gatherer:  reg,
		MediaRoot: mediaRoot,
		Checks:    checks,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env,
			"store", cfg.StoreBackend, "tokens", cfg.TokenBackend, "blobs", cfg.BlobBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-stop:
	}
	log.Info("server shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
