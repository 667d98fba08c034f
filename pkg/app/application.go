package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cinebook/pkg/config"
	"cinebook/pkg/contracts"
	"cinebook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"
)

const WebhookPath = "/payment/webhook"

// Worker is a long running background loop supervised next to the HTTP
// server. Run must return once ctx is cancelled.
type Worker struct {
	Name string
	Run  func(ctx context.Context) error
}

type Application struct {
	cfg         *config.Config
	server      *http.Server
	workers     []Worker
	handler     http.Handler
	idempotency middleware.IdempotencyStore
	rateLimiter middleware.RateLimiter
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

// SetApp builds three middleware chains: health endpoints get recovery and
// logging only, the payment webhook additionally keeps its raw body for
// signature checks, and every other route gets the full authenticated stack.
func (a *Application) SetApp(health contracts.Handler, webhook contracts.WebhookHandler, appHandlers ...contracts.Handler) {
	a.setStores()

	mux := http.NewServeMux()
	healthHandler := a.healthChain(health)
	mux.Handle("/health", healthHandler)
	mux.Handle("/ready", healthHandler)
	if webhook != nil {
		mux.Handle(WebhookPath, a.webhookChain(webhook))
	}
	mux.Handle("/", a.appChain(appHandlers))

	a.handler = mux
	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}
	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// AddWorker registers a background loop that runs for the lifetime of the
// server.
func (a *Application) AddWorker(name string, run func(ctx context.Context) error) {
	a.workers = append(a.workers, Worker{Name: name, Run: run})
}

func (a *Application) Handler() http.Handler {
	return a.handler
}

func (a *Application) setStores() {
	if a.cfg.Client != nil && a.cfg.Client.Redis != nil {
		a.idempotency = middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL, a.cfg.RequestTimeout)
		a.rateLimiter = middleware.NewRedisRateLimiter(a.cfg.Client.Redis, a.cfg.RateLimitRequests, a.cfg.RateLimitWindow)
		a.cfg.Log.Info("Idempotency and rate limiting backed by Redis")
		return
	}
	a.idempotency = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	a.rateLimiter = middleware.NewInMemoryRateLimiter(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow)
	a.cfg.Log.Warn("Redis not configured, idempotency and rate limiting are per instance")
}

func (a *Application) healthChain(health contracts.Handler) http.Handler {
	router := httprouter.New()
	health.RegisterRoutes(router)

	var h http.Handler = router
	h = middleware.RequestLogging(a.cfg.Log)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
	return h
}

func (a *Application) webhookChain(webhook contracts.WebhookHandler) http.Handler {
	router := httprouter.New()
	webhook.RegisterWebhook(router)

	var h http.Handler = router
	h = middleware.WebhookRawBody(webhook.SignatureHeader(), int64(a.cfg.MaxRequestSize), a.cfg.Log)(h)
	h = middleware.RequestLogging(a.cfg.Log)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.cfg.Log.Info("Payment webhook configured with raw body capture", "path", WebhookPath)
	return h
}

func (a *Application) appChain(handlers []contracts.Handler) http.Handler {
	router := httprouter.New()
	for _, handler := range handlers {
		handler.RegisterRoutes(router)
	}

	var h http.Handler = router
	h = middleware.Idempotency(a.idempotency, a.cfg.Log)(h)
	h = middleware.RequestTimeout(a.cfg.RequestTimeout)(h)
	h = middleware.UserRateLimit(a.rateLimiter, a.cfg.Log)(h)
	h = middleware.Identity(a.cfg.JWTSecret, a.cfg.Log)(h)
	h = middleware.ContentTypeValidation(a.cfg.Log)(h)
	h = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(h)
	h = middleware.RequestLogging(a.cfg.Log)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.cfg.Log.Info("Application endpoints configured with full security middleware stack")
	return h
}

// Run serves HTTP and every worker until SIGINT/SIGTERM or until one of them
// fails, then shuts everything down.
func (a *Application) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.RunContext(ctx); err != nil {
		a.cfg.Log.Fatal("Application stopped with error", "error", err)
	}
	a.cfg.Log.Info("Application stopped gracefully")
}

func (a *Application) RunContext(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			a.cfg.Log.Info("Starting graceful shutdown...")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.cfg.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				a.cfg.Log.Error("Server shutdown failed", "error", err)
				return a.server.Close()
			}
			a.cfg.Log.Info("Server stopped gracefully")
			return nil
		})
	}

	for _, w := range a.workers {
		g.Go(func() error {
			a.cfg.Log.Info("Starting worker", "worker", w.Name)
			err := w.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.cfg.Log.Error("Worker failed", "worker", w.Name, "error", err)
				return err
			}
			a.cfg.Log.Info("Worker stopped", "worker", w.Name)
			return nil
		})
	}

	return g.Wait()
}
