package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/bmbroch/ceylonstay/internal/auth"
	"github.com/bmbroch/ceylonstay/internal/cache"
	"github.com/bmbroch/ceylonstay/internal/config"
	"github.com/bmbroch/ceylonstay/internal/db"
	"github.com/bmbroch/ceylonstay/internal/listing"
	"github.com/bmbroch/ceylonstay/internal/middleware"
	"github.com/bmbroch/ceylonstay/internal/storage"
	"github.com/bmbroch/ceylonstay/internal/store"
	"github.com/bmbroch/ceylonstay/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB, cfg.ListingsCollection)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected", slog.String("db", cfg.MongoDB))
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second

	var cacheStore cache.Cache
	switch {
	case cfg.RedisURL != "":
		redisCache, err := cache.NewRedisFromURL(cfg.RedisURL)
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected (url)")
		cacheStore = redisCache
	case cfg.RedisAddr != "":
		redisCache := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected", slog.String("addr", cfg.RedisAddr))
		cacheStore = redisCache
	default:
		memory := cache.NewMemory(cacheTTL)
		defer memory.Stop()
		logger.Info("in-memory cache enabled", slog.Int("ttl_seconds", cfg.CacheTTLSeconds))
		cacheStore = memory
	}

	jwtManager := &auth.Manager{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
		RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
		Issuer:     "ceylonstay",
	}
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not set; auth endpoints disabled")
	}

	gridFS, err := storage.NewGridFS(cols.Database, cfg.PublicBaseURL)
	if err != nil {
		logger.Error("storage init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	uploader := storage.NewUploader(gridFS, jwtManager, logger)

	val := validation.New()
	listings := store.NewClient(cols.Listings, cacheStore, cacheTTL, logger)
	catalog := listing.NewCatalog(listings, nil)
	service := listing.NewService(listings, uploader, logger, nil)

	listingHandler := listing.NewHandler(service, catalog, val, logger, cfg.WhatsAppNumber, cfg.MaxUploadMB)
	authHandler := auth.NewHandler(jwtManager, cfg.AdminPasscode, cfg.AdminPasscodeHash, cfg.CookieSecure, val, logger)
	mediaHandler := storage.NewHandler(gridFS, logger)

	adminAuth := middleware.AdminAuth(cfg.AdminAPIKey, auth.AccessCookie, func(token string) bool {
		claims, err := jwtManager.Parse(token)
		return err == nil && claims.Role == auth.RoleAdmin
	})

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigin))
	r.Use(chiMiddleware.Timeout(90 * time.Second))

	window := time.Duration(cfg.RateLimitWindowSec) * time.Second
	loginLimiter := middleware.NewRateLimiter(cfg.RateLimitLogin, window)
	sessionLimiter := middleware.NewRateLimiter(cfg.RateLimitSessions, window)

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/listings", listingHandler.PublicList)
		api.Get("/listings/{id}", listingHandler.PublicGet)
		api.With(sessionLimiter.Middleware).Post("/auth/anonymous", authHandler.AnonymousSession)

		api.Route("/admin", func(admin chi.Router) {
			admin.With(loginLimiter.Middleware).Post("/login", authHandler.Login)
			admin.Post("/refresh", authHandler.Refresh)
			admin.Post("/logout", authHandler.Logout)

			// chi requires middlewares before routes; login/refresh/logout stay
			// public and the rest go through a protected sub-router.
			admin.Group(func(protected chi.Router) {
				protected.Use(adminAuth)
				protected.Get("/listings", listingHandler.AdminList)
				protected.Post("/listings", listingHandler.AdminCreate)
				protected.Get("/listings/{id}", listingHandler.AdminGet)
				protected.Patch("/listings/{id}", listingHandler.AdminUpdate)
				protected.Patch("/listings/{id}/listed", listingHandler.AdminSetListed)
				protected.Post("/listings/{id}/photos", listingHandler.AdminAddPhotos)
				protected.Delete("/listings/{id}/photos/{photoID}", listingHandler.AdminDeletePhoto)
				protected.Put("/listings/{id}/photos/order", listingHandler.AdminReorderPhotos)
			})
		})
	})

	r.Get("/media/*", mediaHandler.ServeMedia)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
}
