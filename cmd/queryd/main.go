package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/server"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/translate"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/redis"
)

const cacheMaintenanceInterval = 15 * time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting query service", "port", cfg.Server.Port)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		metricsShutdown := metrics.StartServer(cfg.Metrics.Port)
		defer metricsShutdown(context.Background())
	}

	pg, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, cache hot layer disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		slog.Info("cache hot layer enabled", "addr", cfg.Redis.Addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, err := docstore.New(ctx, pg, cfg.Search.PageContentCache)
	if err != nil {
		slog.Error("failed to initialize document store", "error", err)
		os.Exit(1)
	}

	idx := index.NewPageIndex()
	indexed, err := idx.Rebuild(ctx, docs)
	if err != nil {
		slog.Warn("index warm-up incomplete", "documents", indexed, "error", err)
	}
	stats := idx.Stats()
	m.IndexedDocuments.Set(float64(stats.Documents))
	m.IndexedTerms.Set(float64(stats.Terms))
	slog.Info("index warmed up from store",
		"documents", stats.Documents, "pages", stats.Pages, "terms", stats.Terms)

	var cacheStore cache.Store
	cacheStore, err = cache.NewPostgresStore(ctx, pg)
	if err != nil {
		slog.Warn("durable cache unavailable, using in-memory cache", "error", err)
		cacheStore = cache.NewMemoryStore()
	}
	var hotLayer cache.HotLayer
	if redisClient != nil {
		hotLayer = redisClient
	}
	cacheSvc := cache.NewService(cacheStore, hotLayer, cfg.Cache, m)
	go func() {
		ticker := time.NewTicker(cacheMaintenanceInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if report, err := cacheSvc.Maintenance(ctx); err != nil {
					slog.Error("cache maintenance failed", "error", err)
				} else if report.Expired > 0 || report.Evicted > 0 {
					slog.Info("cache maintenance",
						"expired", report.Expired,
						"evicted", report.Evicted,
						"remaining", report.Remaining)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	aggregator := search.NewAggregator(idx, docs, cfg.Search)
	translator := translate.NewClient(cfg.Translate, m)

	var collector *analytics.Collector
	statsAgg := analytics.NewAggregator()
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()

		eventsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents, analytics.HandleEvent(statsAgg))
		go func() {
			if err := eventsConsumer.Start(ctx); err != nil {
				slog.Error("analytics consumer stopped", "error", err)
			}
		}()

		if store, err := analytics.NewStore(ctx, pg); err != nil {
			slog.Warn("analytics snapshots disabled", "error", err)
		} else {
			store.StartPeriodicSave(ctx, statsAgg, cfg.Analytics.SnapshotInterval)
		}
		slog.Info("analytics enabled", "topic", cfg.Kafka.Topics.QueryEvents)
	}
	analyticsH := analytics.NewHandler(statsAgg)

	ingestor := ingest.NewHandler(docs, idx, cacheSvc, collector, m)
	pagesConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentPages, ingestor.HandlePages())
	removedConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentRemoved, ingestor.HandleRemoved())
	go func() {
		if err := pagesConsumer.Start(ctx); err != nil {
			slog.Error("document pages consumer stopped", "error", err)
		}
	}()
	go func() {
		if err := removedConsumer.Start(ctx); err != nil {
			slog.Error("document removed consumer stopped", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := pg.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		s := idx.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", s.Documents, s.Terms),
		}
	})

	apiHandler := server.NewHandler(aggregator, docs, cacheSvc, ingestor, idx, translator, collector, m)
	mux := http.NewServeMux()
	apiHandler.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("query service listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("query service stopped")
}
