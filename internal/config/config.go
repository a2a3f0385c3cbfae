package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type StoreBackend string

const (
	BackendFile     StoreBackend = "file"
	BackendSQLite   StoreBackend = "sqlite"
	BackendPostgres StoreBackend = "postgres"
)

const defaultSystemPrompt = "Ты умный AI-ассистент с доступом к интернету. Используй предоставленную информацию из интернета для ответа. Отвечай подробно на русском языке."

type Config struct {
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN,required"`
	AdminIDs         []int64 `env:"ADMIN_IDS" envSeparator:","`

	// LLM settings
	LLMProvider      LLMProvider   `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL"`
	OpenAIModel      string        `env:"OPENAI_MODEL" envDefault:"gpt-4"`
	YandexOAuthToken string        `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string        `env:"YANDEX_FOLDER_ID"`
	LLMTimeout       time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Prompts
	SystemPrompt     string `env:"SYSTEM_PROMPT"`
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH"`
	HistoryLimit     int    `env:"HISTORY_LIMIT" envDefault:"20"`

	// Web search
	SearchBaseURL    string        `env:"SEARCH_BASE_URL" envDefault:"https://html.duckduckgo.com/html/"`
	SearchMaxResults int           `env:"SEARCH_MAX_RESULTS" envDefault:"5"`
	SearchTimeout    time.Duration `env:"SEARCH_TIMEOUT" envDefault:"20s"`

	// Admin console
	BroadcastDelay time.Duration `env:"BROADCAST_DELAY" envDefault:"50ms"`
	ReportCron     string        `env:"REPORT_CRON" envDefault:"0 21 * * *"`

	InteractionLogPath string `env:"INTERACTION_LOG_PATH" envDefault:"data/interactions.jsonl"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Store StoreConfig
}

// StoreConfig is kept separate so tools that only touch persistence can load it
// without a bot token.
type StoreConfig struct {
	Backend      StoreBackend `env:"STORE_BACKEND" envDefault:"file"`
	DataDir      string       `env:"DATA_DIR" envDefault:"data"`
	ChannelsFile string       `env:"CHANNELS_FILE" envDefault:"channels.json"`
	UsersFile    string       `env:"USERS_FILE" envDefault:"users.json"`
	StatsFile    string       `env:"STATS_FILE" envDefault:"stats.json"`
	SQLitePath   string       `env:"SQLITE_PATH" envDefault:"data/bot.db"`
	DatabaseURL  string       `env:"DATABASE_URL"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", cfg.HistoryLimit)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func NewStore() (*StoreConfig, error) {
	cfg := &StoreConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse store config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *StoreConfig) validate() error {
	switch s.Backend {
	case BackendFile, BackendSQLite:
	case BackendPostgres:
		if s.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", s.Backend)
	}
	return nil
}

// Path resolves a JSON document name against DataDir unless it is already absolute.
func (s *StoreConfig) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.DataDir, name)
}
