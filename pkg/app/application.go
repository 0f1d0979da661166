package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remoteassist/pkg/config"
	"remoteassist/pkg/contracts"
	"remoteassist/pkg/middleware"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

// Paths served by the health handler with minimal middleware.
var healthPaths = []string{"/health", "/ready", "/test", "/{$}"}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

type Application struct {
	cfg              *config.Config
	server           *http.Server
	handler          http.Handler
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      *middleware.ClientRateLimiter
	redisClient      *redis.Client
	closers          []closer
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

// SetApp builds the HTTP stack: healthHandler owns the probe and diagnostic
// routes, appHandlers the API routes behind the full middleware chain.
func (a *Application) SetApp(healthHandler contracts.Handler, appHandlers ...contracts.Handler) {
	mux := http.NewServeMux()

	health := a.buildHealthHandler(healthHandler)
	for _, path := range healthPaths {
		mux.Handle(path, health)
	}
	mux.Handle("/", a.buildAppHandler(appHandlers))

	a.handler = a.withCORS(mux)
	a.setAppServer()
}

// OnShutdown registers fn to run, in registration order, after the HTTP
// server has stopped.
func (a *Application) OnShutdown(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *Application) Handler() http.Handler {
	return a.handler
}

type wrapper func(http.Handler) http.Handler

// chain wraps h so the first wrapper sees the request first.
func chain(h http.Handler, wrappers ...wrapper) http.Handler {
	for i := len(wrappers) - 1; i >= 0; i-- {
		h = wrappers[i](h)
	}
	return h
}

// buildHealthHandler serves health and diagnostics with only recovery and
// request logging so they keep answering under load or storage trouble.
func (a *Application) buildHealthHandler(h contracts.Handler) http.Handler {
	router := httprouter.New()
	h.RegisterRoutes(router)

	return chain(router,
		middleware.Recovery(a.cfg.Log),
		middleware.RequestLogging(a.cfg.Log),
	)
}

func (a *Application) buildAppHandler(handlers []contracts.Handler) http.Handler {
	router := httprouter.New()
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}

	a.idempotencyStore = a.newIdempotencyStore()
	a.rateLimiter = middleware.NewClientRateLimiter(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow, a.cfg.Log)

	return chain(router,
		middleware.Recovery(a.cfg.Log),
		middleware.RequestLogging(a.cfg.Log),
		middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize)),
		middleware.ContentTypeValidation(a.cfg.Log),
		middleware.RateLimit(a.rateLimiter),
		middleware.RequestTimeout(a.cfg.RequestTimeout),
		middleware.Idempotency(a.idempotencyStore, middleware.DefaultIdempotencyHeader, a.cfg.Log),
	)
}

// newIdempotencyStore prefers Redis when configured and reachable.
func (a *Application) newIdempotencyStore() middleware.IdempotencyStore {
	if !a.cfg.RedisConfigured() {
		return middleware.NewMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		a.cfg.Log.Warn("Redis unreachable; falling back to in-memory idempotency store",
			"addr", a.cfg.RedisAddr,
			"error", err,
		)
		_ = client.Close()
		return middleware.NewMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	}

	a.redisClient = client
	a.cfg.Log.Info("Using Redis idempotency store", "addr", a.cfg.RedisAddr)
	return middleware.NewRedisIdempotencyStore(client, a.cfg.IdempotencyTTL, a.cfg.Log)
}

func (a *Application) withCORS(h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   a.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})
	return c.Handler(h)
}

func (a *Application) setAppServer() {
	a.server = &http.Server{
		Addr:         a.cfg.Addr(),
		Handler:      a.handler,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}
}

// Run serves until SIGINT or SIGTERM, then drains the server and runs the
// shutdown steps within ShutdownTimeout.
func (a *Application) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		listenErr <- a.server.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		if !errors.Is(err, http.ErrServerClosed) {
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}
		return
	case <-ctx.Done():
		a.cfg.Log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.cfg.Log.Error("Graceful shutdown failed; closing connections", "error", err)
		_ = a.server.Close()
	}
	a.Close(shutdownCtx)
	a.cfg.Log.Info("Server stopped")
}

// Close stops the middleware workers and then runs the OnShutdown steps.
// A failed step is logged and does not stop the ones after it.
func (a *Application) Close(ctx context.Context) {
	if a.idempotencyStore != nil {
		a.idempotencyStore.Stop()
	}
	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.cfg.Log.Error("Failed to close Redis client", "error", err)
		}
	}

	for _, c := range a.closers {
		log := a.cfg.Log.With("step", c.name)
		if err := c.fn(ctx); err != nil {
			log.Error("Shutdown step failed", "error", err)
			continue
		}
		log.Info("Shutdown step completed")
	}
}
