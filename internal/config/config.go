package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Auth
	JWTSecret    string
	JWTExpiresIn string
	BcryptCost   int

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Uploads
	MaxFileSize         int64
	AllowedTypes        []string
	FileStorageDir      string
	SyncProcessingLimit int64

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Chunking fallbacks. The chunker picks size/overlap per document; these
	// only apply when a document is empty.
	BaseChunkSize    int
	BaseChunkOverlap int

	// Gemini
	GeminiAPIKey    string
	EmbeddingModel  string
	GenerationModel string
	EmbeddingDim    int
	EmbeddingRPM    int
	GenerationRPM   int

	// Ingestion tuning
	IngestMaxAttempts    int
	EmbedTimeoutSec      int
	PersistTimeoutSec    int
	FinalRetryTimeoutSec int
	FinalRetryLimit      int

	// MongoDB Vector Search
	VectorSearchEnabled bool
	VectorIndexName     string

	// OCR fallback for scanned documents; disabled when the URL is empty.
	OCRServiceURL string
	OCRTimeoutSec int

	// Maintenance
	CleanupIntervalMin int
	FailedDocTTLHours  int

	// Telemetry
	OTLPEndpoint   string
	TracingEnabled bool
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/hebrew_rag"),
		DBName:      getEnv("DB_NAME", "hebrew_rag"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiresIn: getEnv("JWT_EXPIRES_IN", "24h"),
		BcryptCost:   getEnvInt("BCRYPT_COST", 12),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		AllowedTypes:        strings.Split(getEnv("ALLOWED_FILE_TYPES", "application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,text/html"), ","),
		FileStorageDir:      getEnv("FILE_STORAGE_DIR", "./storage"),
		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 20971520), // 20MB, larger uploads go through the queue

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		BaseChunkSize:    getEnvInt("BASE_CHUNK_SIZE", 1000),
		BaseChunkOverlap: getEnvInt("BASE_CHUNK_OVERLAP", 200),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		GenerationModel: getEnv("GENERATION_MODEL", "gemini-2.0-flash"),
		EmbeddingDim:    getEnvInt("VECTOR_DIM", 768),
		EmbeddingRPM:    getEnvInt("EMBEDDING_RPM", 150),
		GenerationRPM:   getEnvInt("GENERATION_RPM", 15),

		IngestMaxAttempts:    getEnvInt("INGEST_MAX_ATTEMPTS", 3),
		EmbedTimeoutSec:      getEnvInt("EMBED_TIMEOUT_SEC", 20),
		PersistTimeoutSec:    getEnvInt("PERSIST_TIMEOUT_SEC", 15),
		FinalRetryTimeoutSec: getEnvInt("FINAL_RETRY_TIMEOUT_SEC", 30),
		FinalRetryLimit:      getEnvInt("FINAL_RETRY_LIMIT", 10),

		VectorSearchEnabled: getEnvBool("MONGODB_VECTOR_ENABLED", true),
		VectorIndexName:     getEnv("MONGODB_VECTOR_INDEX", "doc_chunks_vector"),

		OCRServiceURL: getEnv("OCR_SERVICE_URL", ""),
		OCRTimeoutSec: getEnvInt("OCR_TIMEOUT_SEC", 120),

		CleanupIntervalMin: getEnvInt("CLEANUP_INTERVAL_MIN", 60),
		FailedDocTTLHours:  getEnvInt("FAILED_DOC_TTL_HOURS", 24),

		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
