package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Pipeline PipelineConfig
	Mece     MeceConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	EmbeddingModel    string
	OllamaBaseURL     string
	GeminiAPIKey      string
	LLMProvider       string // "ollama"
	LLMModel          string // e.g. "llama3", "qwen2.5"
	LLMTimeoutSeconds int
	CostPer1KTokens   float64
}

// PipelineConfig holds the orchestration defaults. Per-run values from the
// start request override these; zero request values fall back here.
type PipelineConfig struct {
	MinClusterSize      int
	MinSamples          int
	MaxDepth            int
	ExemplarsPerCluster int
	GenerationWorkers   int
	Eps                 float64
	ConfidenceThreshold float64
	JobTopic            string
}

// MeceConfig holds the validator policy. Thresholds are tunable policy,
// not hard contract values.
type MeceConfig struct {
	OverlapWarnThreshold  float64
	OverlapErrorThreshold float64
	GapFraction           float64
	ErrorOverlapWeight    float64
	WarnOverlapWeight     float64
	UncoveredWeight       float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-004"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMTimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 120),
			CostPer1KTokens:   getEnvAsFloat("COST_PER_1K_TOKENS", 0.002),
		},
		Pipeline: PipelineConfig{
			MinClusterSize:      getEnvAsInt("MIN_CLUSTER_SIZE", 5),
			MinSamples:          getEnvAsInt("MIN_SAMPLES", 3),
			MaxDepth:            getEnvAsInt("MAX_HIERARCHY_DEPTH", 3),
			ExemplarsPerCluster: getEnvAsInt("EXEMPLARS_PER_CLUSTER", 12),
			GenerationWorkers:   getEnvAsInt("GENERATION_WORKERS", 4),
			Eps:                 getEnvAsFloat("CLUSTER_EPS", 0.35),
			ConfidenceThreshold: getEnvAsFloat("APPLY_CONFIDENCE_THRESHOLD", 0.7),
			JobTopic:            getEnv("GENERATION_JOB_TOPIC_NAME", "GENERATE_CODEFRAME"),
		},
		Mece: MeceConfig{
			OverlapWarnThreshold:  getEnvAsFloat("MECE_OVERLAP_WARN", 0.70),
			OverlapErrorThreshold: getEnvAsFloat("MECE_OVERLAP_ERROR", 0.85),
			GapFraction:           getEnvAsFloat("MECE_GAP_FRACTION", 0.10),
			ErrorOverlapWeight:    getEnvAsFloat("MECE_ERROR_WEIGHT", 40),
			WarnOverlapWeight:     getEnvAsFloat("MECE_WARN_WEIGHT", 15),
			UncoveredWeight:       getEnvAsFloat("MECE_UNCOVERED_WEIGHT", 100),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
