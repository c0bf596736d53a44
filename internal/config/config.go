package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	StoreSQLite    = "sqlite"
	StoreFirestore = "firestore"
	StoreMemory    = "memory"

	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Config holds the configuration for the application.
type Config struct {
	// LLM
	LLMProvider  string `yaml:"llm_provider"`
	GeminiAPIKey string `yaml:"-"`
	GeminiModel  string `yaml:"gemini_model"`
	GroqAPIKey   string `yaml:"-"`
	GroqModel    string `yaml:"groq_model"`

	// Storage
	StoreBackend     string `yaml:"store_backend"`
	DatabasePath     string `yaml:"database_path"`
	FirestoreProject string `yaml:"firestore_project"`

	// Household scheduling
	Timezone             string `yaml:"timezone"`
	AssignmentPermissive bool   `yaml:"assignment_permissive"`

	// Identity
	TokenSecret string `yaml:"-"`
	// FirebaseAuth verifies requester tokens with Firebase instead of local session tokens.
	FirebaseAuth bool `yaml:"firebase_auth"`

	// Logging
	LogDir string `yaml:"log_dir"`
	Debug  bool   `yaml:"debug"`

	// Server
	HTTPPort string `yaml:"http_port"`

	// Telegram Config
	TelegramBotToken   string           `yaml:"-"`
	TelegramWebhookURL string           `yaml:"telegram_webhook_url"`
	TelegramUsers      map[int64]string `yaml:"telegram_users"`
	AdminTelegramID    int64            `yaml:"admin_telegram_id"`
}

func defaults() *Config {
	return &Config{
		LLMProvider:  ProviderGemini,
		GeminiModel:  "gemini-2.5-flash",
		GroqModel:    "llama-3.3-70b-versatile",
		StoreBackend: StoreSQLite,
		DatabasePath: "data/myflex.db",
		Timezone:     "Local",
		LogDir:       "data/logs",
		HTTPPort:     "8080",
	}
}

// NewFromEnv creates a new Config object from environment variables. When
// MYFLEX_CONFIG names a YAML file, its values are loaded first and
// environment variables override them.
func NewFromEnv() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("MYFLEX_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	setString(&cfg.LLMProvider, "MYFLEX_LLM_PROVIDER")
	setString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.GeminiModel, "GEMINI_MODEL")
	setString(&cfg.GroqAPIKey, "GROQ_API_KEY")
	setString(&cfg.GroqModel, "GROQ_MODEL")
	setString(&cfg.StoreBackend, "MYFLEX_STORE")
	setString(&cfg.DatabasePath, "MYFLEX_DATABASE_PATH")
	setString(&cfg.FirestoreProject, "FIRESTORE_PROJECT")
	setString(&cfg.Timezone, "MYFLEX_TIMEZONE")
	setString(&cfg.TokenSecret, "MYFLEX_TOKEN_SECRET")
	setString(&cfg.LogDir, "MYFLEX_LOG_DIR")
	setString(&cfg.HTTPPort, "PORT")
	setString(&cfg.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.TelegramWebhookURL, "TELEGRAM_WEBHOOK_URL")

	if err := setBool(&cfg.AssignmentPermissive, "MYFLEX_ASSIGNMENT_PERMISSIVE"); err != nil {
		return nil, err
	}
	if err := setBool(&cfg.FirebaseAuth, "MYFLEX_FIREBASE_AUTH"); err != nil {
		return nil, err
	}
	if err := setBool(&cfg.Debug, "MYFLEX_DEBUG"); err != nil {
		return nil, err
	}

	if v := os.Getenv("TELEGRAM_ADMIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_ID %q: %w", v, err)
		}
		cfg.AdminTelegramID = id
	}

	if v := os.Getenv("TELEGRAM_USERS"); v != "" {
		users, err := ParseTelegramUsers(v)
		if err != nil {
			return nil, err
		}
		cfg.TelegramUsers = users
	}

	switch cfg.LLMProvider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}

	switch cfg.StoreBackend {
	case StoreSQLite, StoreMemory:
	case StoreFirestore:
		if cfg.FirestoreProject == "" {
			return nil, fmt.Errorf("FIRESTORE_PROJECT environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	return cfg, nil
}

// ParseTelegramUsers parses "telegramID:userID" pairs separated by commas.
func ParseTelegramUsers(s string) (map[int64]string, error) {
	users := make(map[int64]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idStr, userID, ok := strings.Cut(pair, ":")
		if !ok || userID == "" {
			return nil, fmt.Errorf("invalid TELEGRAM_USERS entry %q: expected telegramID:userID", pair)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_USERS entry %q: %w", pair, err)
		}
		users[id] = strings.TrimSpace(userID)
	}
	return users, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}
