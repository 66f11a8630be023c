package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"chefbot_go_backend/internal/database"
	"chefbot_go_backend/internal/llm"
	"chefbot_go_backend/internal/models"
	"chefbot_go_backend/internal/services"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	LogPretty      bool

	Database database.Config
	LLM      llm.Settings

	LLMTimeout      time.Duration
	RefusalSentinel string

	CacheTTLs         models.CacheTTLs
	CachePromptPrefix int

	SessionTTL          time.Duration
	SessionHistoryLimit int

	Limits        services.Limits
	Trial         services.TrialPolicy
	UsageLocation *time.Location

	Schedule services.ScheduleConfig

	GatewayJWTSecret string
	Stripe           services.StripeConfig
}

// Load reads the environment. Unset variables take their defaults; malformed values
// and missing provider secrets are errors.
func Load() (*Config, error) {
	e := &env{}
	cfg := &Config{
		Port:           e.str("PORT", "3000"),
		AllowedOrigins: e.list("ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:       e.str("LOG_LEVEL", "info"),
		LogPretty:      e.boolean("LOG_PRETTY", false),

		Database: database.Config{
			URL:             e.str("DATABASE_URL", ""),
			Host:            e.str("DB_HOST", "localhost"),
			User:            e.str("DB_USER", "chefbot"),
			Password:        e.str("DB_PASSWORD", ""),
			Name:            e.str("DB_NAME", "chefbot"),
			Port:            e.str("DB_PORT", "5432"),
			MaxOpenConns:    e.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    e.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},

		LLM: llm.Settings{
			Provider:              strings.ToLower(e.str("LLM_PROVIDER", llm.ProviderGemini)),
			GeminiAPIKey:          e.str("GOOGLE_AI_STUDIO_API_KEY", ""),
			GeminiModel:           e.str("GEMINI_MODEL", "gemini-1.5-flash"),
			OpenAIAPIKey:          e.str("OPENAI_API_KEY", ""),
			OpenAIModel:           e.str("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:         e.str("OPENAI_BASE_URL", ""),
			OpenAITranscribeModel: e.str("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
			AnthropicAPIKey:       e.str("ANTHROPIC_API_KEY", ""),
			AnthropicModel:        e.str("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		},
		LLMTimeout:      e.duration("LLM_TIMEOUT", 60*time.Second),
		RefusalSentinel: e.str("SAFETY_REFUSAL_SENTINEL", "[[DECLINED]]"),

		CacheTTLs: models.CacheTTLs{
			Short: e.duration("CACHE_TTL_SHORT", time.Hour),
			Long:  e.duration("CACHE_TTL_LONG", 24*time.Hour),
		},
		CachePromptPrefix: e.integer("CACHE_PROMPT_PREFIX", 300),

		SessionTTL:          e.duration("SESSION_TTL", 24*time.Hour),
		SessionHistoryLimit: e.integer("SESSION_HISTORY_LIMIT", 10),

		Limits: services.Limits{
			FreeText:     e.integer("FREE_TEXT_LIMIT", 10),
			FreeVoice:    e.integer("FREE_VOICE_LIMIT", 1),
			PremiumText:  e.integer("PREMIUM_TEXT_LIMIT", 100),
			PremiumVoice: e.integer("PREMIUM_VOICE_LIMIT", 50),
		},
		Trial: services.TrialPolicy{
			Delay: e.duration("TRIAL_DELAY", 48*time.Hour),
			Days:  e.integer("TRIAL_DAYS", 7),
		},

		GatewayJWTSecret: e.str("GATEWAY_JWT_SECRET", ""),
		Stripe: services.StripeConfig{
			SecretKey:                e.str("STRIPE_SECRET_KEY", ""),
			WebhookSecret:            e.str("STRIPE_WEBHOOK_SECRET", ""),
			PriceCents:               int64(e.integer("PREMIUM_PRICE_CENTS", 499)),
			PremiumDays:              e.integer("PREMIUM_DAYS", 30),
			SuccessURL:               e.str("CHECKOUT_SUCCESS_URL", "http://localhost:5173/premium/success"),
			CancelURL:                e.str("CHECKOUT_CANCEL_URL", "http://localhost:5173/premium/cancel"),
			IgnoreAPIVersionMismatch: e.boolean("STRIPE_IGNORE_API_VERSION", false),
		},
	}
	cfg.Schedule = services.ScheduleConfig{
		CacheSweep:   e.duration("CACHE_SWEEP_INTERVAL", time.Hour),
		PremiumSweep: e.duration("PREMIUM_SWEEP_INTERVAL", time.Hour),
		TrialSweep:   e.duration("TRIAL_SWEEP_INTERVAL", 30*time.Minute),
		SessionSweep: e.duration("SESSION_SWEEP_INTERVAL", 30*time.Minute),
		TrialDays:    cfg.Trial.Days,
	}

	tz := e.str("USAGE_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		e.fail("USAGE_TIMEZONE", tz, err)
	}
	cfg.UsageLocation = loc

	if e.err != nil {
		return nil, e.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case llm.ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GOOGLE_AI_STUDIO_API_KEY is not set in the environment")
		}
	case llm.ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set in the environment")
		}
	case llm.ProviderAnthropic:
		if c.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is not set in the environment")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q (supported: gemini, openai, anthropic)", c.LLM.Provider)
	}
	if c.GatewayJWTSecret == "" {
		return fmt.Errorf("GATEWAY_JWT_SECRET is not set in the environment")
	}
	if c.SessionHistoryLimit < 1 {
		return fmt.Errorf("SESSION_HISTORY_LIMIT must be positive")
	}
	return nil
}

// env collects the first parse error so Load can report it after reading everything.
type env struct {
	err error
}

func (e *env) fail(key, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (e *env) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) list(key, def string) []string {
	var out []string
	for _, part := range strings.Split(e.str(key, def), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *env) integer(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e *env) boolean(key string, def bool) bool {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}
