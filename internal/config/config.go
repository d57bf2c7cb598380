package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderGoogle     = "google"
	ProviderElevenLabs = "elevenlabs"
	ProviderMock       = "mock"

	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 10.0
	defaultRateLimitBurst = 20
	defaultEnvFile        = ".env"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	Port                   string        `yaml:"port"`
	Development            bool          `yaml:"development"`
	LogLevel               string        `yaml:"log_level"`
	ShutdownGracePeriod    time.Duration `yaml:"shutdown_grace_period"`
	SessionCleanupInterval time.Duration `yaml:"session_cleanup_interval"`
	RateLimit              RateLimit     `yaml:"rate_limit"`
	LLM                    LLM           `yaml:"llm"`
	Search                 Search        `yaml:"search"`
	Speech                 Speech        `yaml:"speech"`
	TTS                    TTS           `yaml:"tts"`
	Storage                Storage       `yaml:"storage"`
	Auth                   Auth          `yaml:"auth"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LLM struct {
	Provider        string  `yaml:"provider"`
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
	AnthropicModel  string  `yaml:"anthropic_model"`
	GeminiAPIKey    string  `yaml:"gemini_api_key"`
	GeminiModel     string  `yaml:"gemini_model"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
}

// Search configures the Programmable Search Engine used for site search
type Search struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	EngineID string `yaml:"cx_id"`
}

type Speech struct {
	Provider string `yaml:"provider"`
	// CredentialsFile is optional; the Google SDK falls back to
	// GOOGLE_APPLICATION_CREDENTIALS and application default credentials.
	CredentialsFile string `yaml:"credentials_file"`
}

type TTS struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	ModelID  string `yaml:"model_id"`
}

type Storage struct {
	Driver        string `yaml:"driver"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	// GeneratedSecret is set when no secret was configured and a random one
	// was created; tokens will not survive a restart.
	GeneratedSecret bool `yaml:"-"`
}

// CLIOverrides holds command-line flag overrides. Nil fields are not set.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	Port           *string
	Development    *bool
	LLMProvider    *string
	StorageDriver  *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load resolves the configuration. A missing .env file is not an error.
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	envFile := defaultEnvFile
	if overrides != nil && overrides.EnvFile != "" {
		envFile = overrides.EnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	if overrides != nil && overrides.ConfigFile != "" {
		if err := loadFromFile(overrides.ConfigFile, &cfg); err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
	}

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = uuid.NewString()
		cfg.Auth.GeneratedSecret = true
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		Port:                   defaultPort,
		ShutdownGracePeriod:    10 * time.Second,
		SessionCleanupInterval: 10 * time.Minute,
		RateLimit: RateLimit{
			RPS:   defaultRateLimitRPS,
			Burst: defaultRateLimitBurst,
		},
		LLM: LLM{
			Provider:    ProviderAnthropic,
			MaxTokens:   1024,
			Temperature: 0.3,
		},
		Search: Search{Provider: ProviderGoogle},
		Speech: Speech{Provider: ProviderGoogle},
		TTS:    TTS{Provider: ProviderElevenLabs},
		Storage: Storage{
			Driver:        StorageMemory,
			MongoDatabase: "geostat_assistant",
		},
		Auth: Auth{TokenTTL: 24 * time.Hour},
	}
}

// loadFromFile decodes the YAML file on top of cfg, keeping values the file omits
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}
	return nil
}

func envString(name string, target *string) {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		*target = value
	}
}

func envDuration(name string, target *time.Duration) error {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*target = d
	return nil
}

func applyEnvConfig(cfg *Config) error {
	envString("PORT", &cfg.Port)
	envString("LOG_LEVEL", &cfg.LogLevel)

	if dev := strings.TrimSpace(os.Getenv("DEVELOPMENT")); dev != "" {
		value, err := strconv.ParseBool(dev)
		if err != nil {
			return fmt.Errorf("invalid DEVELOPMENT: %w", err)
		}
		cfg.Development = value
	}

	if err := envDuration("SHUTDOWN_GRACE_PERIOD", &cfg.ShutdownGracePeriod); err != nil {
		return err
	}
	if err := envDuration("SESSION_CLEANUP_INTERVAL", &cfg.SessionCleanupInterval); err != nil {
		return err
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimit.RPS = value
		}
	}
	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimit.Burst = value
		}
	}

	envString("LLM_PROVIDER", &cfg.LLM.Provider)
	envString("ANTHROPIC_API_KEY", &cfg.LLM.AnthropicAPIKey)
	envString("ANTHROPIC_MODEL", &cfg.LLM.AnthropicModel)
	envString("GEMINI_API_KEY", &cfg.LLM.GeminiAPIKey)
	envString("GEMINI_MODEL", &cfg.LLM.GeminiModel)

	envString("SEARCH_PROVIDER", &cfg.Search.Provider)
	envString("GEOSTAT_BOT_API_KEY", &cfg.Search.APIKey)
	envString("GEOSTAT_BOT_CX_ID", &cfg.Search.EngineID)

	envString("SPEECH_PROVIDER", &cfg.Speech.Provider)
	envString("GOOGLE_APPLICATION_CREDENTIALS", &cfg.Speech.CredentialsFile)

	envString("TTS_PROVIDER", &cfg.TTS.Provider)
	envString("ELEVENLABS_API_KEY", &cfg.TTS.APIKey)
	envString("ELEVENLABS_API_BASE_URL", &cfg.TTS.BaseURL)
	envString("ELEVENLABS_MODEL_ID", &cfg.TTS.ModelID)

	envString("STORAGE_DRIVER", &cfg.Storage.Driver)
	envString("MONGODB_URI", &cfg.Storage.MongoURI)
	envString("MONGODB_DATABASE", &cfg.Storage.MongoDatabase)

	envString("JWT_SECRET", &cfg.Auth.JWTSecret)
	return envDuration("JWT_TTL", &cfg.Auth.TokenTTL)
}

func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}
	if overrides.Development != nil {
		cfg.Development = *overrides.Development
	}
	if overrides.LLMProvider != nil && *overrides.LLMProvider != "" {
		cfg.LLM.Provider = *overrides.LLMProvider
	}
	if overrides.StorageDriver != nil && *overrides.StorageDriver != "" {
		cfg.Storage.Driver = *overrides.StorageDriver
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimit.RPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimit.Burst = *overrides.RateLimitBurst
	}
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func validateConfig(cfg Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if cfg.RateLimit.RPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if cfg.SessionCleanupInterval <= 0 {
		return fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive")
	}

	switch cfg.LLM.Provider {
	case ProviderAnthropic:
		if cfg.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderGemini:
		if cfg.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	switch cfg.Search.Provider {
	case ProviderGoogle:
		if cfg.Search.APIKey == "" || cfg.Search.EngineID == "" {
			return fmt.Errorf("GEOSTAT_BOT_API_KEY and GEOSTAT_BOT_CX_ID are required for the google search provider")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown search provider %q", cfg.Search.Provider)
	}

	if !oneOf(cfg.Speech.Provider, ProviderGoogle, ProviderMock) {
		return fmt.Errorf("unknown speech provider %q", cfg.Speech.Provider)
	}

	switch cfg.TTS.Provider {
	case ProviderElevenLabs:
		if cfg.TTS.APIKey == "" {
			return fmt.Errorf("ELEVENLABS_API_KEY is required for the elevenlabs provider")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown tts provider %q", cfg.TTS.Provider)
	}

	if !oneOf(cfg.Storage.Driver, StorageMemory, StorageMongo) {
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	return nil
}
