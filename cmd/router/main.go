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

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/live"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/router"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/router/handler"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/topic"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/vector"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/rpc"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/tracing"
	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting campus query router", "port", cfg.Server.Port, "corpus_source", cfg.Corpus.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	docs, err := loadCorpus(ctx, cfg)
	if err != nil {
		slog.Error("failed to load corpus", "error", err)
		os.Exit(1)
	}
	set, err := index.Build(ctx, docs)
	if err != nil {
		slog.Error("failed to build indexes", "error", err)
		os.Exit(1)
	}
	for domain, n := range set.Counts() {
		m.SetIndexDocuments(string(domain), n)
	}
	slog.Info("indexes built",
		"courses", set.Courses.Len(),
		"faculty", set.Faculty.Len(),
		"campus", set.Campus.Len(),
	)

	var emb vector.Embedder = vector.NewHashEmbedder(cfg.Embedding.Dimension)
	if cfg.Embedding.Provider == "http" {
		emb = vector.NewCachingEmbedder(vector.NewHTTPEmbedder(cfg.Embedding), cfg.Embedding.CacheSize)
	}
	buildOpts := vector.BuildOptions{Workers: cfg.Vector.BuildWorkers, BatchSize: cfg.Vector.BatchSize}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if n := len(set.Docs()); n > 0 {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", n)}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "empty corpus"}
	})

	var store vector.Store
	switch cfg.Vector.Store {
	case "milvus":
		ms, err := vector.NewMilvusStore(cfg.Milvus)
		if err != nil {
			slog.Error("failed to connect to milvus", "error", err)
			os.Exit(1)
		}
		defer ms.Close(context.Background())
		created, err := ms.EnsureCollection(ctx, emb.Dimension())
		if err != nil {
			slog.Error("failed to prepare milvus collection", "error", err)
			os.Exit(1)
		}
		if created {
			if err := vector.SyncMilvus(ctx, ms, set.Docs(), emb, buildOpts); err != nil {
				slog.Error("failed to load embeddings into milvus", "error", err)
				os.Exit(1)
			}
		}
		checker.RegisterOptional("milvus", func(ctx context.Context) health.ComponentHealth {
			if err := ms.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		store = ms
	default:
		mem, err := vector.BuildMemoryStore(ctx, set.Docs(), emb, buildOpts)
		if err != nil {
			slog.Error("failed to build embedding index", "error", err)
			os.Exit(1)
		}
		slog.Info("embedding index built", "vectors", mem.Len(), "dimension", emb.Dimension())
		store = mem
	}

	limits := retriever.Limits{TopResults: cfg.Router.DefaultLimit, CompleteList: cfg.Router.CompleteListLimit}
	topics := topic.NewResolver(set.Courses, topic.DefaultMapping, topic.Options{MinScore: cfg.Topic.MinScore, TopK: cfg.Topic.TopK})
	campus := retriever.NewCampusRetriever(set.Campus, limits)

	deps := router.Deps{
		Preprocessor: query.NewPreprocessor(query.Vocabulary{
			Subjects: set.Courses.Subjects(),
			Words:    set.Courses.TitleWords(),
			Known:    set.Faculty.NameTokens(),
		}),
		Classifier: classifier.New(ctx, emb, classifier.Options{
			Threshold:         cfg.Classifier.Threshold,
			ExemplarThreshold: cfg.Classifier.ExemplarThreshold,
			EmbedTimeout:      cfg.Vector.Timeout,
		}, m),
		Retrievers: map[query.Intent]retriever.Retriever{
			query.IntentCourseInfo:    retriever.NewCourseRetriever(set.Courses, topics, limits),
			query.IntentFacultySearch: retriever.NewFacultyRetriever(set.Faculty, limits),
			query.IntentDiningInfo:    campus,
			query.IntentTransitInfo:   campus,
		},
		Fallback: vector.NewFallback(emb, store, set.Lookup, vector.FallbackOptions{
			TopK:     cfg.Vector.TopK,
			MinScore: cfg.Vector.MinScore,
			Timeout:  cfg.Vector.Timeout,
		}, m),
		Tracer:  tracing.NewTracer(cfg.Tracing.Enabled, cfg.Tracing.SampleRate),
		Metrics: m,
	}

	var liveClient *live.Client
	if cfg.Live.Enabled {
		var shared live.Store
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, live cache is process-local", "error", err)
		} else {
			defer redisClient.Close()
			shared = redisClient
			checker.RegisterOptional("redis", func(ctx context.Context) health.ComponentHealth {
				if err := redisClient.Ping(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
		}
		liveCache := live.NewCache(shared, live.CacheOptions{
			ShortTTL:      cfg.Live.ShortTTL,
			ShortCapacity: cfg.Live.ShortCapacity,
			FreshTTL:      cfg.Live.FreshTTL,
			Retention:     cfg.Live.Retention,
		}, m)
		liveClient, err = live.NewClient(live.NewClassSearchFetcher(cfg.Live, m), liveCache, live.Options{
			Semester: cfg.Live.Semester,
			Timeout:  cfg.Live.Timeout,
		}, m)
		if err != nil {
			slog.Error("failed to create live client", "error", err)
			os.Exit(1)
		}
		deps.Live = liveClient
		slog.Info("live lookups enabled", "semester", cfg.Live.Semester, "shared_cache", shared != nil)
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RouteEvents)
		collector := analytics.NewCollector(producer, cfg.Router.EventBuffer, 100, time.Second)
		collector.Start(ctx)
		defer func() {
			collector.Close()
			producer.Close()
		}()
		deps.Events = collector
		slog.Info("route events enabled", "topic", cfg.Kafka.Topics.RouteEvents)

		if liveClient != nil {
			// Every replica must see every control message, so each one
			// joins its own consumer group.
			group := fmt.Sprintf("%s-live-%s", cfg.Kafka.ConsumerGroup, uuid.NewString()[:8])
			control := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.LiveControl, group, liveClient.HandleControl)
			go func() {
				if err := control.Start(ctx); err != nil {
					slog.Error("live control consumer error", "error", err)
				}
			}()
		}
	}

	rt := router.New(deps)

	var liveAdmin handler.LiveAdmin
	if liveClient != nil {
		liveAdmin = liveClient
	}
	h := handler.New(rt, liveAdmin, 0)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcServer = rpc.NewServer(cfg.Server.WriteTimeout)
		h.RegisterRPC(rpcServer)
		go func() {
			if err := rpcServer.ListenAndServe(cfg.RPC.Addr); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		if rpcServer != nil {
			rpcServer.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("router listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("campus query router stopped")
}

func loadCorpus(ctx context.Context, cfg *config.Config) ([]corpus.Document, error) {
	if cfg.Corpus.Source != "postgres" {
		return corpus.FileLoader{Dir: cfg.Corpus.Dir}.Load(ctx)
	}
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	store, err := corpus.NewPostgresStore(db, cfg.Corpus.Table)
	if err != nil {
		return nil, err
	}
	return store.Load(ctx)
}
