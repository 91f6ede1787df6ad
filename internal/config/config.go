package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Config holds the configuration for the application.
type Config struct {
	LLMProvider        string
	OpenRouterAPIKey   string
	OpenRouterBaseURL  string
	OpenRouterSiteURL  string
	OpenRouterSiteName string
	GeminiAPIKey       string

	// Generation settings
	LLMModel          string
	LLMTemperature    float64
	LLMMaxTokens      int
	PlanLanguage      string
	GenerationTimeout time.Duration

	DatabasePath    string
	DiagnosticsPath string

	// HTTP API
	Port               string
	JWTSecret          string
	CORSAllowedOrigins []string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LLM_PROVIDER", ProviderOpenRouter)
	v.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("LLM_TEMPERATURE", 0.7)
	v.SetDefault("LLM_MAX_TOKENS", 4000)
	v.SetDefault("PLAN_LANGUAGE", "Polish")
	v.SetDefault("GENERATION_TIMEOUT", "60s")
	v.SetDefault("DATABASE_PATH", "data/travel-planner.db")
	v.SetDefault("DIAGNOSTICS_PATH", "data/diagnostics")
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

// NewFromEnv creates a new Config object from environment variables. A .env
// file in the working directory is loaded first when present.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	provider := strings.ToLower(v.GetString("LLM_PROVIDER"))
	cfg := &Config{
		LLMProvider:        provider,
		OpenRouterAPIKey:   v.GetString("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:  v.GetString("OPENROUTER_BASE_URL"),
		OpenRouterSiteURL:  v.GetString("OPENROUTER_SITE_URL"),
		OpenRouterSiteName: v.GetString("OPENROUTER_SITE_NAME"),
		GeminiAPIKey:       v.GetString("GEMINI_API_KEY"),
		LLMModel:           v.GetString("LLM_MODEL"),
		LLMTemperature:     v.GetFloat64("LLM_TEMPERATURE"),
		LLMMaxTokens:       v.GetInt("LLM_MAX_TOKENS"),
		PlanLanguage:       v.GetString("PLAN_LANGUAGE"),
		GenerationTimeout:  v.GetDuration("GENERATION_TIMEOUT"),
		DatabasePath:       v.GetString("DATABASE_PATH"),
		DiagnosticsPath:    v.GetString("DIAGNOSTICS_PATH"),
		Port:               v.GetString("PORT"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		TelegramBotToken:   v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: v.GetString("TELEGRAM_WEBHOOK_URL"),
		AdminTelegramID:    v.GetInt64("ADMIN_TELEGRAM_ID"),
	}

	switch provider {
	case ProviderOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable not set")
		}
		if cfg.LLMModel == "" {
			cfg.LLMModel = "openai/gpt-4o-mini"
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
		if cfg.LLMModel == "" {
			cfg.LLMModel = "gemini-1.5-flash"
		}
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", provider)
	}

	if cfg.GenerationTimeout <= 0 {
		return nil, fmt.Errorf("GENERATION_TIMEOUT must be a positive duration")
	}
	if cfg.LLMMaxTokens <= 0 {
		return nil, fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}

	ids, err := parseUserIDs(v.GetString("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.TelegramAllowedUserIDs = ids

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseUserIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
