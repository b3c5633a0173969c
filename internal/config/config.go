package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Azure   AzureConfig
	Ai      AIConfig
	Loan    LoanConfig
	Session SessionConfig
	Tools   ToolsConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type AzureConfig struct {
	DocIntelEndpoint string
	DocIntelKey      string

	SearchEndpoint string
	SearchKey      string
	SearchIndex    string

	LanguageEndpoint string
	LanguageKey      string

	OpenAIEndpoint            string
	OpenAIKey                 string
	OpenAIChatDeployment      string
	OpenAIEmbeddingDeployment string
	OpenAIAPIVersion          string
}

type AIConfig struct {
	LLMProvider       string // "azure" or "ollama"
	LLMModel          string
	EmbeddingProvider string // "azure" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
}

// LoanConfig holds the default eligibility thresholds used when the
// policy corpus yields no parseable numbers.
type LoanConfig struct {
	MinAnnualRevenue    float64
	MinCreditScore      float64
	MinMonthsInBusiness float64
	MaxLoanToRevenue    float64
	MaxDebtToRevenue    float64
	MinNetMargin        float64
	MinCashReserves     float64
}

type SessionConfig struct {
	TTLMinutes   int
	PurgeMinutes int
	MaxDocuments int
	HistoryTurns int
}

type ToolsConfig struct {
	TimeoutSeconds     int
	RetryBackoffMillis int
	PolicyTopK         int
	MaxUploadBytes     int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Azure: AzureConfig{
			DocIntelEndpoint:          getEnv("AZURE_DOCINTEL_ENDPOINT", ""),
			DocIntelKey:               getEnv("AZURE_DOCINTEL_KEY", ""),
			SearchEndpoint:            getEnv("AZURE_SEARCH_ENDPOINT", ""),
			SearchKey:                 getEnv("AZURE_SEARCH_KEY", ""),
			SearchIndex:               getEnv("AZURE_SEARCH_INDEX", "lending-policies"),
			LanguageEndpoint:          getEnv("AZURE_LANGUAGE_ENDPOINT", ""),
			LanguageKey:               getEnv("AZURE_LANGUAGE_KEY", ""),
			OpenAIEndpoint:            getEnv("AZURE_OPENAI_ENDPOINT", ""),
			OpenAIKey:                 getEnv("AZURE_OPENAI_KEY", ""),
			OpenAIChatDeployment:      getEnv("AZURE_OPENAI_CHAT_DEPLOYMENT", "gpt-4o-mini"),
			OpenAIEmbeddingDeployment: getEnv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT", "text-embedding-3-small"),
			OpenAIAPIVersion:          getEnv("AZURE_OPENAI_API_VERSION", "2024-06-01"),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "azure"),
			LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "azure"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Loan: LoanConfig{
			MinAnnualRevenue:    getEnvAsFloat("LOAN_MIN_ANNUAL_REVENUE", 250000),
			MinCreditScore:      getEnvAsFloat("LOAN_MIN_CREDIT_SCORE", 680),
			MinMonthsInBusiness: getEnvAsFloat("LOAN_MIN_MONTHS_IN_BUSINESS", 12),
			MaxLoanToRevenue:    getEnvAsFloat("LOAN_MAX_LOAN_TO_REVENUE", 0.25),
			MaxDebtToRevenue:    getEnvAsFloat("LOAN_MAX_DEBT_TO_REVENUE", 0.20),
			MinNetMargin:        getEnvAsFloat("LOAN_MIN_NET_MARGIN", 0.05),
			MinCashReserves:     getEnvAsFloat("LOAN_MIN_CASH_RESERVES", 25000),
		},
		Session: SessionConfig{
			TTLMinutes:   getEnvAsInt("SESSION_TTL_MINUTES", 60),
			PurgeMinutes: getEnvAsInt("SESSION_PURGE_MINUTES", 10),
			MaxDocuments: getEnvAsInt("SESSION_MAX_DOCUMENTS", 20),
			HistoryTurns: getEnvAsInt("SESSION_HISTORY_TURNS", 50),
		},
		Tools: ToolsConfig{
			TimeoutSeconds:     getEnvAsInt("TOOL_TIMEOUT_SECONDS", 30),
			RetryBackoffMillis: getEnvAsInt("TOOL_RETRY_BACKOFF_MILLIS", 500),
			PolicyTopK:         getEnvAsInt("POLICY_SEARCH_TOP_K", 5),
			MaxUploadBytes:     getEnvAsInt("MAX_UPLOAD_BYTES", 10*1024*1024),
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
