package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mohammad-safakhou/askweb/config"
	"github.com/mohammad-safakhou/askweb/internal/chat"
	"github.com/mohammad-safakhou/askweb/internal/logging"
	"github.com/mohammad-safakhou/askweb/internal/telemetry"
	"github.com/mohammad-safakhou/askweb/provider"
	"github.com/mohammad-safakhou/askweb/provider/models"
	"github.com/mohammad-safakhou/askweb/session"
	"github.com/mohammad-safakhou/askweb/session/inmemory"
	"github.com/mohammad-safakhou/askweb/tools/embedding"
	"github.com/mohammad-safakhou/askweb/tools/retriever"
	"github.com/mohammad-safakhou/askweb/tools/search"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch/cache"
	"github.com/mohammad-safakhou/askweb/tools/web_ingest"
	"github.com/mohammad-safakhou/askweb/tools/web_search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App is the fully wired service shared by the HTTP server and the ask CLI.
type App struct {
	Config       *config.Config
	Orchestrator *chat.Orchestrator
	Sessions     *inmemory.Store
	Registry     *prometheus.Registry // nil when metrics are disabled

	janitor   *session.Janitor
	telemetry *telemetry.Telemetry
	closers   []io.Closer
}

// Version is reported as the service.version trace attribute.
var Version = "dev"

// NewApp builds every collaborator from cfg and starts the session janitor.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	tel, err := telemetry.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*App, error) {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}
	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return fail(fmt.Errorf("llm provider: %w", err))
	}
	searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), web_search.Options{
		APIKey:  cfg.Search.APIKey,
		CSEID:   cfg.Search.CSEID,
		Timeout: cfg.Search.Timeout,
	})
	if err != nil {
		return fail(err)
	}
	fetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Fetch.Driver), cfg.Fetch.Timeout, cfg.Fetch.MaxChars, cfg.Fetch.UserAgent)
	if err != nil {
		return fail(err)
	}
	embedder, err := embedding.NewFactory(embedding.Mode(cfg.Index.Embedding), llm)
	if err != nil {
		return fail(err)
	}
	pages, err := cache.New(ctx, cache.Driver(cfg.Cache.Driver), cfg.Cache.TTL, cache.RedisOptions{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
		Timeout:  cfg.Storage.Redis.Timeout,
	})
	if err != nil {
		return fail(fmt.Errorf("page cache: %w", err))
	}

	app := &App{Config: cfg, telemetry: tel}
	if c, ok := pages.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}

	var metrics *chat.Metrics
	var store *inmemory.Store
	if cfg.Telemetry.MetricsEnabled {
		app.Registry = prometheus.NewRegistry()
		app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = chat.NewMetrics(app.Registry, func() int { return store.Len() })
	}
	store = inmemory.NewInMemorySessionStore(inmemory.Options{
		TTL:         cfg.Session.TTL,
		MaxSessions: cfg.Session.MaxSessions,
		Logger:      logging.New("session"),
		OnEvict: func(_ string, reason inmemory.EvictReason) {
			metrics.ObserveEviction(string(reason))
		},
	})
	app.Sessions = store

	if cfg.Session.TTL > 0 && cfg.Session.SweepSchedule != "" {
		app.janitor, err = session.NewJanitor(store, cfg.Session.SweepSchedule, logging.New("session"))
		if err != nil {
			app.Close()
			return nil, err
		}
		app.janitor.Start()
	}

	chatLogger := logging.New("chat")
	app.Orchestrator = &chat.Orchestrator{
		Sessions: store,
		Retriever: &retriever.Retriever{
			Searcher:      searcher,
			Fetcher:       fetcher,
			Cache:         pages,
			Workers:       cfg.Fetch.Workers,
			MaxResults:    cfg.Search.MaxResults,
			SearchTimeout: cfg.Search.Timeout,
			Permit:        cfg.Fetch.Policy.Permits,
			Logger:        logging.New("retrieve"),
		},
		Indexer: web_ingest.NewIngest(
			web_ingest.NewSplitter(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap),
			search.Builder{Embedder: embedder, EmbedTimeout: cfg.Index.Timeout, Logger: logging.New("index")},
		),
		Gate: &chat.TopicGate{
			LLM: llm,
			Params: models.Params{
				Model:       cfg.LLM.CompletionModel,
				Temperature: cfg.Gate.Temperature,
				MaxTokens:   cfg.Gate.MaxTokens,
			},
			ContextChars:  cfg.Gate.ContextChars,
			MinSimilarity: cfg.Gate.MinSimilarity,
			OnFailure:     chat.GateFailurePolicy(cfg.Gate.OnFailure),
			Timeout:       cfg.Gate.Timeout,
			Logger:        chatLogger,
		},
		Generator: &chat.ResponseGenerator{
			LLM: llm,
			Params: models.Params{
				Model:       cfg.LLM.CompletionModel,
				Temperature: cfg.LLM.Temperature,
				MaxTokens:   cfg.LLM.MaxTokens,
				TopP:        cfg.LLM.TopP,
			},
			OnFailure: chat.GenerationFailurePolicy(cfg.Generation.OnFailure),
			Timeout:   cfg.Generation.Timeout,
			Logger:    chatLogger,
			Metrics:   metrics,
		},
		ProbeK:       cfg.Index.ProbeK,
		ContextK:     cfg.Index.ContextK,
		IndexTimeout: cfg.Index.Timeout,
		Metrics:      metrics,
		Logger:       chatLogger,
	}
	return app, nil
}

// Deps adapts the app to the HTTP surface.
func (a *App) Deps() Deps {
	d := Deps{
		Chat:           a.Orchestrator,
		Sessions:       a.Sessions,
		AllowOrigins:   a.Config.Server.AllowOrigins,
		RequestTimeout: a.Config.Server.RequestTimeout,
		Logger:         logging.New("http"),
	}
	if a.Registry != nil {
		d.Gatherer = a.Registry
	}
	return d
}

// Close stops the janitor, drops every session and releases external connections.
func (a *App) Close() error {
	if a.janitor != nil {
		a.janitor.Stop()
	}
	if a.Sessions != nil {
		for _, info := range a.Sessions.List() {
			_ = a.Sessions.Delete(info.ID)
		}
	}
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errs = append(errs, a.telemetry.Shutdown(ctx))
	return errors.Join(errs...)
}
