package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"gatehouse/internal/audit"
	"gatehouse/internal/auth"
	authhandler "gatehouse/internal/auth/handler"
	"gatehouse/internal/content"
	"gatehouse/internal/entity"
	"gatehouse/internal/platform/config"
	"gatehouse/internal/platform/httpserver"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/platform/middleware"
	redisplatform "gatehouse/internal/platform/redis"
	"gatehouse/internal/sandbox"
	"gatehouse/internal/sandbox/cache"
	sandboxhandler "gatehouse/internal/sandbox/handler"
	"gatehouse/internal/sandbox/metrics"
)

// main wires the moderation engine, its stores, and the HTTP surface. In-memory
// stores are the default; Postgres, Redis, and Kafka attach when configured.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	bus := sandbox.NewBus(log)

	// Entity and sandbox storage. The in-memory entity store hosts the
	// built-in entry type; applications embedding the engine supply their own.
	entities := entity.NewMemoryStore(content.Definition())

	var sandboxes sandbox.Store = sandbox.NewMemoryStore()
	var auditStore audit.Store = audit.NewMemoryStore()
	var auditOutbox audit.Outbox
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.ErrorContext(ctx, "postgres pool init failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		sandboxes = sandbox.NewPostgresStore(pool)

		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.ErrorContext(ctx, "audit database init failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := audit.NewPostgresStore(db)
		auditStore = pg
		auditOutbox = pg
	} else if mem, ok := auditStore.(*audit.MemoryStore); ok {
		auditOutbox = mem
	}

	auditPublisher := audit.NewPublisher(auditStore, log)
	bus.Subscribe(audit.DecisionSubscriber(auditPublisher))

	serviceOpts := []sandbox.ServiceOption{sandbox.WithTrail(auditPublisher)}
	engineOpts := []sandbox.EngineOption{sandbox.WithStagingTrail(auditPublisher)}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.ErrorContext(ctx, "redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		statusCache := cache.NewStatusCache(redisClient.Client, cfg.Redis.TTL, log)
		bus.Subscribe(cache.DecisionSubscriber(statusCache))
		serviceOpts = append(serviceOpts, sandbox.WithStatusCache(statusCache))
		// Staging can move a decided record back to pending; the cache must
		// not keep serving the old decision until its TTL.
		engineOpts = append(engineOpts, sandbox.WithStatusInvalidator(statusCache))
	}

	registry := sandbox.NewRegistry()
	merger := sandbox.NewMerger(registry, entities, sandboxes, bus, log, m)
	policy := sandbox.NewPolicy(merger, log, m)
	engine := sandbox.NewEngine(registry, entities, sandboxes, policy, log, m, engineOpts...)

	if err := engine.Register(content.ModerationConfig()); err != nil {
		log.ErrorContext(ctx, "entry moderation config rejected", "error", err)
		os.Exit(1)
	}

	moderation := sandbox.NewService(registry, sandboxes, merger, log, m, serviceOpts...)

	jwtService := auth.NewJWTService(cfg.JWTSigningKey, "gatehouse", "gatehouse-moderation")
	credentials := auth.NewMemoryCredentialStore()
	if name := os.Getenv("MODERATOR_NAME"); name != "" {
		if err := credentials.Seed("moderator-1", name, os.Getenv("MODERATOR_PASSWORD")); err != nil {
			log.ErrorContext(ctx, "moderator seed failed", "error", err)
			os.Exit(1)
		}
	}
	authService := auth.NewService(credentials, jwtService, log)

	router := newRouter(log, moderation, authService, jwtService)
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.InfoContext(ctx, "starting gatehouse", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 && auditOutbox != nil {
		sink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.ErrorContext(ctx, "kafka sink init failed", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		worker := audit.NewWorker(auditOutbox, sink, log)
		group.Go(func() error {
			return worker.Run(ctx)
		})
	}

	if err := group.Wait(); err != nil {
		log.ErrorContext(context.Background(), "server exited", "error", err)
		os.Exit(1)
	}
}

// newRouter assembles the public surface: open auth and health endpoints,
// token-guarded moderation endpoints, and Prometheus metrics.
func newRouter(log *slog.Logger, moderation *sandbox.Service, authService *auth.Service, jwtService *auth.JWTService) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	authhandler.New(authService, log).Register(r)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireModerator(jwtValidator{jwtService}, log))
		sandboxhandler.New(moderation, log).Register(r)
	})
	return r
}

// jwtValidator adapts the JWT service to the middleware's claim shape.
type jwtValidator struct {
	jwt *auth.JWTService
}

func (v jwtValidator) ValidateToken(tokenString string) (*middleware.ModeratorClaims, error) {
	claims, err := v.jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.ModeratorClaims{ModeratorID: claims.ModeratorID, Name: claims.Name}, nil
}
