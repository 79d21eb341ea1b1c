// Package bootstrap builds the application's dependency graph from config.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"coverletter-backend/internal/agents"
	"coverletter-backend/internal/analyses"
	"coverletter-backend/internal/cache"
	"coverletter-backend/internal/coverletters"
	"coverletter-backend/internal/documents"
	"coverletter-backend/internal/llm"
	"coverletter-backend/internal/llm/openai"
	"coverletter-backend/internal/pipeline"
	"coverletter-backend/internal/services/health"
	"coverletter-backend/internal/shared/config"
	"coverletter-backend/internal/shared/server"
	"coverletter-backend/internal/shared/storage/db"
	"coverletter-backend/internal/shared/storage/object"
	localstore "coverletter-backend/internal/shared/storage/object/local"
	s3store "coverletter-backend/internal/shared/storage/object/s3"
	"coverletter-backend/internal/shared/telemetry"
	"coverletter-backend/internal/vectorstore"
)

// App holds shared dependencies and the HTTP router.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Store        object.ObjectStore
	Cache        cache.Cache
	LLM          llm.Client
	Vectors      *vectorstore.Store
	Pipeline     *pipeline.Orchestrator
	Documents    *documents.Service
	CoverLetters *coverletters.Service
	Health       *health.Service

	closers []func() error
}

// Option customizes Build, mostly for tests.
type Option func(*buildOptions)

type buildOptions struct {
	llmClient llm.Client
	embedder  vectorstore.Embedder
	now       func() time.Time
}

// WithLLMClient replaces the configured model client. Retries are not added.
func WithLLMClient(c llm.Client) Option {
	return func(o *buildOptions) { o.llmClient = c }
}

// WithEmbedder replaces the configured embedder.
func WithEmbedder(e vectorstore.Embedder) Option {
	return func(o *buildOptions) { o.embedder = e }
}

// WithClock fixes the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *buildOptions) { o.now = now }
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if bo.now == nil {
		bo.now = time.Now
	}
	ctx := context.Background()

	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		app.DB = sqlDB
		app.closers = append(app.closers, sqlDB.Close)
		app.Health.Register("database", sqlDB.PingContext)
	}

	app.Store, err = buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Cache, err = buildCache(ctx, cfg, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.LLM = bo.llmClient
	if app.LLM == nil {
		app.LLM, err = buildLLM(cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	embedder := bo.embedder
	if embedder == nil {
		embedder = buildEmbedder(cfg)
	}
	index, err := buildIndex(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Vectors = vectorstore.NewStore(vectorstore.Chunker{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}, embedder, index)

	if err := buildServices(app, bo.now); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Close releases the database and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, DBOptions(cfg, db.DefaultServerOptions()))
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// DBOptions applies the configured pool overrides to base.
func DBOptions(cfg config.Config, base db.Options) db.Options {
	return base.WithOverrides(db.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		PingTimeout:     cfg.DBPingTimeout,
		ConnectAttempts: cfg.DBConnectAttempts,
	})
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildCache(ctx context.Context, cfg config.Config, app *App) (cache.Cache, error) {
	if cfg.CacheBackend == "redis" {
		rc, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "cl:cache:",
		})
		if err == nil {
			app.closers = append(app.closers, rc.Close)
			app.Health.Register("cache", func(ctx context.Context) error {
				_, _, err := rc.Get(ctx, "health")
				return err
			})
			return rc, nil
		}
		if !isDevLike(cfg.Env) {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		telemetry.Warn("bootstrap.memory_cache", map[string]any{"reason": err.Error()})
	}
	mc := cache.NewMemory(cache.MemoryOptions{
		MaxEntries:      cfg.CacheMaxEntries,
		JanitorInterval: time.Minute,
	})
	app.closers = append(app.closers, mc.Close)
	return mc, nil
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "openai" {
		telemetry.Warn("bootstrap.placeholder_llm", map[string]any{"provider": cfg.LLMProvider})
		return llm.PlaceholderClient{}, nil
	}
	client, err := openai.NewClient(openai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.LLMTimeout,
	})
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.placeholder_llm", map[string]any{"reason": err.Error()})
			return llm.PlaceholderClient{}, nil
		}
		return nil, err
	}
	return llm.NewRetrying(client, llm.RetryPolicy{
		MaxAttempts: cfg.LLMMaxAttempts,
		BaseDelay:   cfg.LLMRetryBaseDelay,
	}), nil
}

func buildEmbedder(cfg config.Config) vectorstore.Embedder {
	if cfg.LLMProvider == "openai" && strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		emb, err := openai.NewEmbedder(openai.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.EmbeddingModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err == nil {
			return emb
		}
		telemetry.Warn("bootstrap.hash_embedder", map[string]any{"reason": err.Error()})
	}
	return vectorstore.HashEmbedder{Dim: cfg.EmbeddingDim}
}

func buildIndex(ctx context.Context, cfg config.Config) (vectorstore.Index, error) {
	if cfg.VectorBackend != "qdrant" {
		return vectorstore.NewMemoryIndex(), nil
	}
	q := vectorstore.NewQdrantIndex(cfg.QdrantURL, cfg.QdrantCollection, cfg.EmbeddingDim)
	if err := q.EnsureCollection(ctx); err != nil {
		if !isDevLike(cfg.Env) {
			return nil, err
		}
		telemetry.Warn("bootstrap.memory_index", map[string]any{"reason": err.Error()})
		return vectorstore.NewMemoryIndex(), nil
	}
	return q, nil
}

func buildServices(app *App, now func() time.Time) error {
	params, err := config.LoadAgentParams(app.Config.AgentParamsFile)
	if err != nil {
		return err
	}
	runner := agents.NewRunner(app.LLM, cache.NewLoader(app.Cache, app.Config.CacheTTL),
		agents.WithParams(params),
		agents.WithClock(now),
	)

	skills := agents.NewSkillsAgent(runner)
	requirements := agents.NewRequirementsAgent(runner)
	strategy := agents.NewStrategyAgent(runner, app.Vectors)
	generation := agents.NewGenerationAgent(runner)
	validation := agents.NewValidationAgent(runner)
	ats := agents.NewATSAgent(runner)
	terms := agents.NewTermsAgent(runner)

	app.Pipeline = pipeline.New(pipeline.Deps{
		Skills:       skills,
		Requirements: requirements,
		Strategy:     strategy,
		Generation:   generation,
		Validation:   validation,
		ATS:          ats,
		Retriever:    app.Vectors,
	})

	var docRepo documents.DocumentsRepo
	var letterRepo coverletters.Repo
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		letterRepo = &coverletters.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		letterRepo = coverletters.NewMemoryRepo()
	}

	app.Documents = &documents.Service{
		Repo:  docRepo,
		Store: app.Store,
		Index: app.Vectors,
		Now:   now,
	}
	app.CoverLetters = &coverletters.Service{
		Repo:      letterRepo,
		Pipeline:  app.Pipeline,
		Refiner:   generation,
		Documents: app.Documents,
		Index:     app.Vectors,
		Now:       now,
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		DocumentHandler: documents.NewHandler(app.Documents),
		AnalysisHandler: &analyses.Handler{
			Skills:       skills,
			Requirements: requirements,
			Strategy:     strategy,
			ATS:          ats,
			Validation:   validation,
			Terms:        terms,
		},
		LetterHandler: coverletters.NewHandler(app.CoverLetters),
		Health:        app.Health,
	})
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
