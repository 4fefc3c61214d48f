package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"realestate/internal/config"
	"realestate/internal/handlers/account"
	"realestate/internal/handlers/admin"
	"realestate/internal/handlers/analytics"
	"realestate/internal/handlers/calculator"
	"realestate/internal/handlers/community"
	"realestate/internal/handlers/listings"
	"realestate/internal/handlers/predict"
	apphttp "realestate/internal/http"
	"realestate/internal/observability"
	"realestate/internal/services/auth"
	"realestate/internal/services/cache"
	"realestate/internal/services/docstore"
	"realestate/internal/services/estimator"
	"realestate/internal/services/metrics"
	"realestate/internal/services/mortgage"
	"realestate/internal/services/storage"
	"realestate/internal/templates"
	"realestate/internal/version"
	"realestate/web"
)

var (
	cfg         *config.Config
	files       *storage.Storage
	docs        docstore.Store
	resultCache cache.Cache
	authSvc     *auth.Service
	promMetrics *observability.Metrics
	renderer    *templates.Renderer
)

// SetupDependencies opens storage, the document store and the cache, then
// initializes every handler package. files must already be opened and
// unlocked.
func SetupDependencies(c *config.Config) error {
	cfg = c

	var err error
	docs, err = openDocStore(c, files)
	if err != nil {
		return err
	}

	resultCache = openCache(c)
	promMetrics = observability.NewMetrics()

	tokens, err := auth.NewTokenService(c.Auth.JWTSecret, c.Auth.Issuer, c.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	authSvc = auth.NewService(docs, tokens)
	authSvc.Subscribe(func(e auth.Event) {
		promMetrics.ObserveAuthEvent(string(e.Type))
		slog.Info("session event", "type", e.Type, "uid", e.Principal.UID)
	})

	templateFS, err := templateFiles(c)
	if err != nil {
		return err
	}
	renderer, err = templates.New(templateFS, c.Server.Debug)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	calc := mortgage.NewCalculator(c.Policy)
	var model estimator.Estimator = &estimator.Process{
		Command: c.Estimator.Command,
		Args:    c.Estimator.Args,
		Timeout: c.Estimator.Timeout,
	}
	model = estimator.NewCached(model, resultCache, c.Cache.TTL)

	calculator.Initialize(renderer, calc, resultCache, promMetrics, c)
	listings.Initialize(docs, files, calc, c)
	analytics.Initialize(docs, metrics.New())
	community.Initialize(docs)
	admin.Initialize(docs, authSvc, files)
	account.Initialize(authSvc, !c.Server.Debug)
	predict.Initialize(model, c.Estimator.RateLimit, promMetrics)
	return nil
}

// openDocStore selects the configured backend
func openDocStore(c *config.Config, s *storage.Storage) (docstore.Store, error) {
	switch c.Store.Backend {
	case config.BackendMemory:
		slog.Warn("using the in-memory document store; data is lost on exit")
		return docstore.NewMemoryStore(), nil
	case config.BackendSQLite:
		store, err := docstore.OpenSQLite(c.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		slog.Info("document store ready", "backend", "sqlite", "path", c.Store.SQLitePath)
		return store, nil
	default:
		slog.Info("document store ready", "backend", "file", "dir", s.BaseDir(), "encrypted", s.IsEncrypted())
		return docstore.NewFileStore(s), nil
	}
}

// openCache connects to Redis when configured, falling back to memory
func openCache(c *config.Config) cache.Cache {
	if c.Cache.RedisAddr == "" {
		return cache.NewMemoryCache(c.Cache.MaxEntries)
	}

	rc := cache.NewRedisCache(c.Cache.RedisAddr, c.Cache.RedisPassword, c.Cache.RedisDB, "realestate:")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		slog.Warn("redis unavailable, using in-memory cache", "addr", c.Cache.RedisAddr, "error", err)
		rc.Close()
		return cache.NewMemoryCache(c.Cache.MaxEntries)
	}
	slog.Info("cache ready", "backend", "redis", "addr", c.Cache.RedisAddr)
	return rc
}

// templateFiles returns the embedded templates unless a directory override is set
func templateFiles(c *config.Config) (fs.FS, error) {
	if dir := c.Server.TemplatesDirectory; dir != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(web.FS, "templates")
}

// SetupRouter creates and configures the chi router with all routes
func SetupRouter() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(promMetrics.Middleware)
	r.Use(authSvc.Middleware)

	// Static files
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calculator", http.StatusTemporaryRedirect)
	})

	r.Get("/api/health", handleHealth)
	r.Get("/api/version", handleVersion)
	r.Handle("/metrics", promMetrics.Handler())

	calculator.RegisterRoutes(r)
	account.RegisterRoutes(r)
	listings.RegisterRoutes(r)
	analytics.RegisterRoutes(r)
	community.RegisterRoutes(r)
	admin.RegisterRoutes(r)
	predict.RegisterRoutes(r)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	apphttp.WriteJSON(w, http.StatusOK, version.Get())
}

// closeDependencies releases the document store and Redis connections and
// drops the storage key
func closeDependencies() {
	predict.Shutdown()
	if docs != nil {
		if err := docs.Close(); err != nil {
			slog.Warn("closing document store", "error", err)
		}
	}
	if rc, ok := resultCache.(*cache.RedisCache); ok {
		rc.Close()
	}
	if files != nil {
		files.Lock()
	}
}
