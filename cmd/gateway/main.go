package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/vnmchuo/palm-gateway/config"
	"github.com/vnmchuo/palm-gateway/internal/auth"
	"github.com/vnmchuo/palm-gateway/internal/provider/palm"
	"github.com/vnmchuo/palm-gateway/internal/proxy"
	"github.com/vnmchuo/palm-gateway/internal/requestlog"
	"github.com/vnmchuo/palm-gateway/internal/telemetry"
	"github.com/vnmchuo/palm-gateway/pkg/ratelimit"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("palm-gateway", cfg)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer()

	ctx := context.Background()

	// 3. Request log (optional)
	var requests requestlog.Store = requestlog.NopStore{}
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to connect postgres: %v", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			log.Fatalf("failed to ping postgres: %v", err)
		}
		store := requestlog.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			log.Fatalf("failed to migrate request log: %v", err)
		}
		requests = store
		log.Println("PostgreSQL connected, request log enabled")
	}

	// 4. Rate limiter (optional)
	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to ping redis: %v", err)
		}
		limiter = ratelimit.NewLimiter(rdb, cfg.RateLimitRPM)
		log.Printf("Redis connected, rate limit %d requests/min per key", cfg.RateLimitRPM)
	}

	// 5. Init backend and router
	backend := palm.New(cfg.BackendBaseURL, &http.Client{Timeout: cfg.BackendTimeout})
	router := proxy.NewRouter(backend, cfg.Models)
	log.Printf("Models: chat=%s text=%s embedding=%s", cfg.Models.Chat, cfg.Models.Text, cfg.Models.Embedding)

	// 6. Init handler
	tracer := otel.GetTracerProvider().Tracer("palm-gateway")
	handler := proxy.NewHandler(router, requests, limiter, tracer)

	// 7. HTTP surface
	mux := proxy.NewMux(handler, auth.NewMiddleware())

	// 8. Graceful shutdown
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		// Leaves room for a full backend call followed by the emulated stream.
		WriteTimeout: cfg.BackendTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("PaLM gateway starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
