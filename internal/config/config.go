package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort  string
	LogLevel string

	LLMProvider string

	OpenAIAPIKey        string
	OpenAIBaseURL       string
	OpenAIEmbedModel    string
	OpenAIChatModel     string
	EmbeddingDimensions int

	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	VectorBackend    string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	ChromemPath      string

	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	NATSURL     string
	NATSSubject string

	StoragePath    string
	CurriculumFile string

	ChunkMaxTokens     int
	ChunkOverlapTokens int
	TokenizerEncoding  string
	EmbedMaxChars      int

	RAGTopK                     int
	RetrievalResolveConcurrency int
	RAGInitTimeout              time.Duration
	RAGInitRetryCooldown        time.Duration

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	BreakerEnabled      bool
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration

	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int
	APIMaxConnections int
	RequestTimeout    time.Duration
	UploadMaxBytes    int64

	WorkerMetricsPort string
}

// Load reads the process environment. A .env file in the working directory,
// when present, fills variables that are not already set.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("dotenv_load_failed", "error", err)
	}

	return Config{
		APIPort:  mustEnv("API_PORT", "8000"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		LLMProvider: mustEnv("LLM_PROVIDER", "openai"),

		OpenAIAPIKey:        mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       mustEnv("OPENAI_BASE_URL", ""),
		OpenAIEmbedModel:    mustEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		OpenAIChatModel:     mustEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingDimensions: mustEnvInt("EMBEDDING_DIMENSIONS", 1536),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		VectorBackend:    mustEnv("VECTOR_BACKEND", "qdrant"),
		QdrantURL:        mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     mustEnv("QDRANT_API_KEY", ""),
		QdrantCollection: mustEnv("QDRANT_COLLECTION", "nctb-textbooks"),
		ChromemPath:      mustEnv("CHROMEM_PATH", ""),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		RedisAddr:     mustEnv("REDIS_ADDR", ""),
		RedisPassword: mustEnv("REDIS_PASSWORD", ""),
		RedisDB:       mustEnvInt("REDIS_DB", 0),
		RedisTTL:      mustEnvDuration("REDIS_TTL", 24*time.Hour),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "textbooks.ingest"),

		StoragePath:    mustEnv("STORAGE_PATH", "./data/uploads"),
		CurriculumFile: mustEnv("CURRICULUM_FILE", ""),

		ChunkMaxTokens:     mustEnvInt("CHUNK_MAX_TOKENS", 500),
		ChunkOverlapTokens: mustEnvInt("CHUNK_OVERLAP_TOKENS", 50),
		TokenizerEncoding:  mustEnv("TOKENIZER_ENCODING", "cl100k_base"),
		EmbedMaxChars:      mustEnvInt("EMBED_MAX_CHARS", 1000),

		RAGTopK:                     mustEnvInt("RAG_TOP_K", 5),
		RetrievalResolveConcurrency: mustEnvInt("RETRIEVAL_RESOLVE_CONCURRENCY", 8),
		RAGInitTimeout:              mustEnvDuration("RAG_INIT_TIMEOUT", 2*time.Minute),
		RAGInitRetryCooldown:        mustEnvDuration("RAG_INIT_RETRY_COOLDOWN", 30*time.Second),

		RetryMaxAttempts:    mustEnvInt("RETRY_MAX_ATTEMPTS", 1),
		RetryInitialBackoff: mustEnvDuration("RETRY_INITIAL_BACKOFF", 200*time.Millisecond),
		BreakerEnabled:      mustEnvBool("BREAKER_ENABLED", true),
		BreakerFailureRatio: mustEnvFloat("BREAKER_FAILURE_RATIO", 0.6),
		BreakerOpenTimeout:  mustEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIMaxInFlight:    mustEnvInt("API_MAX_INFLIGHT", 64),
		APIMaxConnections: mustEnvInt("API_MAX_CONNECTIONS", 256),
		RequestTimeout:    mustEnvDuration("REQUEST_TIMEOUT", 120*time.Second),
		UploadMaxBytes:    int64(mustEnvInt("UPLOAD_MAX_BYTES", 200<<20)),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go duration strings and bare seconds.
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
