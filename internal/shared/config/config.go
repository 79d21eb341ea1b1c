package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	DatabaseURL     string

	// Postgres pool. Zero values keep the db package defaults.
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	DBPingTimeout     time.Duration
	DBConnectAttempts int

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	LLMProvider       string
	LLMModel          string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	LLMTimeout        time.Duration
	LLMMaxAttempts    int
	LLMRetryBaseDelay time.Duration
	EmbeddingModel    string
	AgentParamsFile   string

	CacheBackend    string
	CacheTTL        time.Duration
	CacheMaxEntries int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	VectorBackend    string
	QdrantURL        string
	QdrantCollection string
	ChunkSize        int
	ChunkOverlap     float64
	EmbeddingDim     int

	LogLevel  string
	LogFormat string

	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,
		DatabaseURL:     dbURL,

		DBMaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 0),
		DBMaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 0),
		DBConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 0),
		DBConnMaxIdleTime: getDuration("DB_CONN_MAX_IDLE_TIME", 0),
		DBPingTimeout:     getDuration("DB_PING_TIMEOUT", 0),
		DBConnectAttempts: getInt("DB_CONNECT_ATTEMPTS", 0),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
		LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		LLMTimeout:        getDuration("LLM_TIMEOUT", 60*time.Second),
		LLMMaxAttempts:    getInt("LLM_MAX_ATTEMPTS", 3),
		LLMRetryBaseDelay: getDuration("LLM_RETRY_BASE_DELAY", 500*time.Millisecond),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		AgentParamsFile:   getEnv("AGENT_PARAMS_FILE", ""),

		CacheBackend:    normalizeBackend(getEnv("CACHE_BACKEND", "memory"), "redis"),
		CacheTTL:        getDuration("CACHE_TTL", time.Hour),
		CacheMaxEntries: getInt("CACHE_MAX_ENTRIES", 1000),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getInt("REDIS_DB", 0),

		VectorBackend:    normalizeBackend(getEnv("VECTOR_BACKEND", "memory"), "qdrant"),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "cover_letter_chunks"),
		ChunkSize:        getInt("CHUNK_SIZE", 1000),
		ChunkOverlap:     getFloat("CHUNK_OVERLAP", 0.2),
		EmbeddingDim:     getInt("EMBEDDING_DIM", 1536),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		RateLimitPerSecond: getFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 10),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config %s invalid float: %v", key, err)
		return def
	}
	return val
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// normalizeBackend returns remote when raw names it, otherwise "memory".
func normalizeBackend(raw, remote string) string {
	if strings.EqualFold(strings.TrimSpace(raw), remote) {
		return remote
	}
	return "memory"
}
