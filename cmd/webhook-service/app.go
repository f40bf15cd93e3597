package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redislib "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"tagwright/internal/broker"
	"tagwright/internal/config"
	"tagwright/internal/constants"
	"tagwright/internal/logger"
	"tagwright/internal/products"
	"tagwright/internal/rules"
	"tagwright/internal/tagging"
	"tagwright/pkg/bootstrap"
	"tagwright/pkg/cel"
	"tagwright/pkg/circuitbreaker"
	"tagwright/pkg/health"
	"tagwright/pkg/logging"
	"tagwright/pkg/metrics"
	"tagwright/pkg/models"
	"tagwright/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redisClient    *redislib.Client
	cachedStore    *rules.CachedStore
	service        *tagging.Service
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("webhook-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initStorage(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := a.initService(); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	if err := a.InitBroker("webhook-service"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, "webhook-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterTaggingMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.initHTTPServer()

	return nil
}

// InitializeBackfill wires storage and the tagging pipeline without the
// broker; backfill feeds the pipeline from a file instead.
func (a *App) InitializeBackfill(ctx context.Context) error {
	if err := a.initStorage(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := a.initService(); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	metrics.RegisterTaggingMetrics()
	return nil
}

func (a *App) initStorage(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	if a.Config.Tagging.Cache.Enabled {
		redisClient, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			return err
		}
		a.redisClient = redisClient
	}

	return nil
}

func (a *App) initService() error {
	var store rules.Store = rules.NewPostgresStore(a.db)
	if a.redisClient != nil {
		ttl := time.Duration(a.Config.Tagging.Cache.TTLSeconds) * time.Second
		a.cachedStore = rules.NewCachedStore(store, a.redisClient, ttl, a.Logger)
		store = a.cachedStore
	}

	celEvaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create expression evaluator: %w", err)
	}

	var breaker *circuitbreaker.Wrapper
	if a.Config.CircuitBreaker.Enabled {
		breaker = circuitbreaker.NewWrapper(breakerConfig(a.Config.CircuitBreaker))
	}
	mutator := products.NewAdminClient(a.Config.AdminAPI, breaker)

	evaluator := tagging.NewEvaluator(celEvaluator)
	a.service = tagging.NewService(store, evaluator, mutator, a.Logger)

	return nil
}

func breakerConfig(cfg config.CircuitBreakerConfig) circuitbreaker.Config {
	breakerCfg := circuitbreaker.DefaultConfig("admin-api")
	if cfg.MaxRequests > 0 {
		breakerCfg.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		breakerCfg.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		breakerCfg.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 {
		minRequests := cfg.MinRequests
		if minRequests == 0 {
			minRequests = 3
		}
		breakerCfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= cfg.FailureRatio
		}
	}
	return breakerCfg
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	if a.db != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.redisClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redisClient))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	if a.cachedStore != nil {
		configConsumer, err := broker.NewConsumer(a.Config.Broker, a.Logger)
		if err != nil {
			invalidateCtx := logging.WithServiceName(ctx, "webhook-service")
			a.Logger.WarnwCtx(invalidateCtx, "Failed to create config event consumer, cache invalidation relies on TTL only",
				"error", err,
			)
		} else {
			configConsumer.SetServiceName("webhook-service")
			defer configConsumer.Close()
			invalidator := rules.NewRuleCacheInvalidator(a.cachedStore, a.Logger)

			configTopic := a.Config.Broker.Kafka.ConfigTopic
			if configTopic == "" {
				configTopic = constants.DefaultConfigTopic
			}

			g.Go(func() error {
				a.Logger.InfowCtx(gCtx, "Starting config event consumer", "topic", configTopic)
				return configConsumer.Consume(gCtx, configTopic, invalidator.Handle)
			})
		}
	}

	webhookTopic := a.Config.Broker.Kafka.WebhookTopic
	if webhookTopic == "" {
		webhookTopic = constants.DefaultWebhookTopic
	}

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "Starting webhook consumer", "topic", webhookTopic)
		return a.Consumer.Consume(gCtx, webhookTopic, a.service.HandleWebhook)
	})

	return g.Wait()
}

// RunBackfill pushes each line of a JSON-lines product dump through the same
// pipeline a live webhook takes.
func (a *App) RunBackfill(ctx context.Context, shopDomain, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open backfill file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNumber := 0
	processed := 0
	for scanner.Scan() {
		lineNumber++

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			a.Logger.WarnwCtx(ctx, "Skipping invalid backfill line", "line", lineNumber)
			continue
		}

		envelope := models.WebhookEnvelope{
			ID:         uuid.New().String(),
			ShopDomain: shopDomain,
			Topic:      models.TopicProductsUpdate,
			Timestamp:  time.Now(),
			Payload:    json.RawMessage(append([]byte(nil), line...)),
		}

		if err := a.service.HandleWebhook(ctx, envelope); err != nil {
			return fmt.Errorf("backfill stopped at line %d: %w", lineNumber, err)
		}
		processed++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read backfill file: %w", err)
	}

	a.Logger.InfowCtx(ctx, "Backfill complete", "shop", shopDomain, "products", processed)
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, "webhook-service")
	a.Logger.InfowCtx(shutdownCtx, "Shutting down webhook service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.tracerProvider != nil {
			tracingCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.tracerProvider.Shutdown(tracingCtx); err != nil {
				errs = append(errs, fmt.Errorf("tracer shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(a.redisClient, a.db)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
