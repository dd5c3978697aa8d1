package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/nctb-tutor/internal/config"
	"github.com/kirillkom/nctb-tutor/internal/core/availability"
	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/core/ports"
	"github.com/kirillkom/nctb-tutor/internal/core/usecase"
	rediscache "github.com/kirillkom/nctb-tutor/internal/infrastructure/cache/redis"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/chunking"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/curriculum"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/extractor"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/llm/openai"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/queue/nats"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/repository/memory"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/resilience"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/vector/chromem"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/vector/qdrant"
)

// Hooks let the composition root observe the pipeline without the core
// depending on a metrics library.
type Hooks struct {
	OnStateChange  func(domain.ServiceState)
	OnTokenUsage   openai.UsageRecorder
	OnQuizFallback func()
	OnBreakerState resilience.StateObserver
}

type App struct {
	Config     config.Config
	Curriculum domain.Curriculum
	Gateway    *availability.Gateway

	// Queue is nil when NATS_URL is not configured.
	Queue *nats.Queue

	closeFn func() error
}

// New wires the static parts eagerly and hands pipeline construction to the
// availability controller, so missing credentials or unreachable backends
// degrade the service instead of failing startup.
func New(_ context.Context, cfg config.Config, hooks Hooks) (*App, error) {
	curr, err := curriculum.Load(cfg.CurriculumFile)
	if err != nil {
		return nil, fmt.Errorf("load curriculum: %w", err)
	}

	policy := resilience.DefaultPolicy()
	policy.Retry.MaxAttempts = cfg.RetryMaxAttempts
	policy.Retry.InitialBackoff = cfg.RetryInitialBackoff
	policy.Breaker.Enabled = cfg.BreakerEnabled
	policy.Breaker.FailureRatio = cfg.BreakerFailureRatio
	policy.Breaker.OpenTimeout = cfg.BreakerOpenTimeout
	executor := resilience.NewExecutor(policy)
	if hooks.OnBreakerState != nil {
		executor.WithStateObserver(hooks.OnBreakerState)
	}

	var queue *nats.Queue
	switch {
	case strings.TrimSpace(cfg.NATSURL) == "":
	case !SharedStores(cfg):
		// A worker would index into its own memory and the API would never
		// see the chunks.
		slog.Warn("async_ingestion_disabled",
			"reason", "async ingestion needs POSTGRES_DSN and VECTOR_BACKEND=qdrant",
			"vector_backend", cfg.VectorBackend,
		)
	default:
		queue, err = nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
	}

	factory := PipelineFactory(cfg, curr, queue, executor, hooks)
	ctrl := availability.NewController(factory, availability.Options[availability.Service]{
		InitTimeout:   cfg.RAGInitTimeout,
		RetryCooldown: cfg.RAGInitRetryCooldown,
		Release: func(svc availability.Service) error {
			if closer, ok := svc.(interface{ Close() error }); ok {
				return closer.Close()
			}
			return nil
		},
		OnStateChange: hooks.OnStateChange,
	})

	return &App{
		Config:     cfg,
		Curriculum: curr,
		Gateway:    availability.NewGateway(ctrl),
		Queue:      queue,
		closeFn: func() error {
			err := ctrl.Close()
			if queue != nil {
				queue.Close()
			}
			return err
		},
	}, nil
}

// SharedStores reports whether chunk metadata and vectors live outside the
// process, so that separate api and worker processes see the same data.
func SharedStores(cfg config.Config) bool {
	backend := strings.ToLower(strings.TrimSpace(cfg.VectorBackend))
	return strings.TrimSpace(cfg.PostgresDSN) != "" && (backend == "" || backend == "qdrant")
}

// Warmup starts pipeline initialization without waiting for a request.
func (a *App) Warmup(ctx context.Context) {
	go func() {
		if err := a.Gateway.Warmup(ctx); err != nil {
			slog.Warn("rag_warmup_failed", "error", err)
		}
	}()
}

func (a *App) Close() error {
	if a.closeFn != nil {
		return a.closeFn()
	}
	return nil
}

type vectorBackend interface {
	ports.VectorIndex
	EnsureIndex(ctx context.Context) error
}

// PipelineFactory builds every pipeline collaborator from configuration.
func PipelineFactory(
	cfg config.Config,
	curr domain.Curriculum,
	queue *nats.Queue,
	executor *resilience.Executor,
	hooks Hooks,
) availability.Factory[availability.Service] {
	return func(ctx context.Context) (svc availability.Service, err error) {
		var closers []func() error
		defer func() {
			if err != nil {
				for i := len(closers) - 1; i >= 0; i-- {
					_ = closers[i]()
				}
			}
		}()

		embedder, completer, dims, err := newModels(cfg, executor, hooks.OnTokenUsage)
		if err != nil {
			return nil, err
		}

		index, err := newVectorIndex(cfg, dims, executor)
		if err != nil {
			return nil, err
		}
		if err := index.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("ensure vector index: %w", err)
		}

		var store ports.ChunkStore
		var registry ports.TextbookRegistry
		if strings.TrimSpace(cfg.PostgresDSN) != "" {
			db, err := postgres.OpenDB(cfg.PostgresDSN)
			if err != nil {
				return nil, domain.WrapError(domain.ErrUpstreamService, "open postgres", err)
			}
			closers = append(closers, db.Close)
			if err := postgres.EnsureSchema(ctx, db); err != nil {
				return nil, domain.WrapError(domain.ErrUpstreamService, "ensure schema", err)
			}
			store = postgres.NewChunkRepository(db)
			registry = postgres.NewTextbookRepository(db)
		} else {
			slog.Warn("chunk_store_in_memory", "reason", "POSTGRES_DSN is not set")
			store = memory.NewChunkStore()
			registry = memory.NewTextbookRegistry()
		}

		if strings.TrimSpace(cfg.RedisAddr) != "" {
			client, err := rediscache.Connect(ctx, rediscache.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			if err != nil {
				return nil, domain.WrapError(domain.ErrUpstreamService, "connect redis", err)
			}
			closers = append(closers, client.Close)
			store = rediscache.NewChunkCache(store, client, cfg.RedisTTL, slog.Default())
		}

		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}

		var tokenizer chunking.Tokenizer = chunking.WordTokenizer{}
		if bpe, err := chunking.NewBPETokenizer(cfg.TokenizerEncoding); err != nil {
			slog.Warn("tokenizer_fallback_to_words", "encoding", cfg.TokenizerEncoding, "error", err)
		} else {
			tokenizer = bpe
		}
		splitter := chunking.NewSplitter(cfg.ChunkMaxTokens, cfg.ChunkOverlapTokens, tokenizer)

		deps := usecase.Dependencies{
			Chunker:    splitter,
			Embedder:   embedder,
			Completer:  completer,
			Index:      index,
			Store:      store,
			Registry:   registry,
			Storage:    storage,
			Extractor:  extractor.NewRouter(),
			Curriculum: curr,
		}
		if queue != nil {
			deps.Queue = queue
		}

		return usecase.NewPipeline(deps, usecase.Settings{
			TopK:               cfg.RAGTopK,
			EmbedMaxChars:      cfg.EmbedMaxChars,
			ResolveConcurrency: cfg.RetrievalResolveConcurrency,
			OverlapWords:       splitter.OverlapTokens / 2,
			OnQuizFallback:     hooks.OnQuizFallback,
		}, closers...), nil
	}
}

func newModels(cfg config.Config, executor *resilience.Executor, usage openai.UsageRecorder) (ports.Embedder, ports.Completer, int, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", "openai":
		client, err := openai.New(cfg.OpenAIAPIKey, openai.Options{
			BaseURL:    cfg.OpenAIBaseURL,
			ChatModel:  cfg.OpenAIChatModel,
			EmbedModel: cfg.OpenAIEmbedModel,
			Dimensions: cfg.EmbeddingDimensions,
			Executor:   executor,
			Usage:      usage,
		})
		if err != nil {
			return nil, nil, 0, err
		}
		return openai.NewEmbedder(client), openai.NewCompleter(client), cfg.EmbeddingDimensions, nil
	case "ollama":
		client, err := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
		if err != nil {
			return nil, nil, 0, err
		}
		return ollama.NewEmbedder(client), ollama.NewCompleter(client), cfg.EmbeddingDimensions, nil
	default:
		return nil, nil, 0, domain.WrapError(domain.ErrInvalidInput, "select llm provider",
			fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider))
	}
}

func newVectorIndex(cfg config.Config, dims int, executor *resilience.Executor) (vectorBackend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.VectorBackend)) {
	case "", "qdrant":
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, qdrant.Options{
			APIKey:     cfg.QdrantAPIKey,
			Dimensions: dims,
			Executor:   executor,
		})
	case "chromem":
		return chromem.New(cfg.ChromemPath, cfg.QdrantCollection)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "select vector backend",
			fmt.Errorf("unknown VECTOR_BACKEND %q", cfg.VectorBackend))
	}
}
