package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	Logging    Logging    `mapstructure:"logging"`
	Database   Database   `mapstructure:"database"`
	Sync       Sync       `mapstructure:"sync"`
	Generation Generation `mapstructure:"generation"`
	Lock       Lock       `mapstructure:"lock"`
	Publish    Publish    `mapstructure:"publish"`
	Server     Server     `mapstructure:"server"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Database selects and configures the persistence backend
type Database struct {
	Driver           string `mapstructure:"driver"` // sqlite or postgres
	ConnectionString string `mapstructure:"connection_string"`
	Path             string `mapstructure:"path"` // SQLite file, relative to app.data_dir
	MaxOpenConns     int    `mapstructure:"max_open_conns"`
}

// Sync holds sync-cycle configuration
type Sync struct {
	Timeout           string `mapstructure:"timeout"`
	FetchTimeout      string `mapstructure:"fetch_timeout"`
	MaxConcurrency    int    `mapstructure:"max_concurrency"`
	MaxItemsPerSource int    `mapstructure:"max_items_per_source"`
	UserAgent         string `mapstructure:"user_agent"`
}

// Generation holds text-generation configuration
type Generation struct {
	Provider    string       `mapstructure:"provider"` // openai or gemini
	Timeout     string       `mapstructure:"timeout"`
	Temperature float32      `mapstructure:"temperature"`
	OpenAI      OpenAIConfig `mapstructure:"openai"`
	Gemini      GeminiConfig `mapstructure:"gemini"`
}

// OpenAIConfig configures any OpenAI-compatible chat completions endpoint
type OpenAIConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Endpoint string `mapstructure:"endpoint"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Lock configures the run lock that keeps cycles from overlapping
type Lock struct {
	Backend string      `mapstructure:"backend"` // local or redis
	TTL     string      `mapstructure:"ttl"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Publish configures where finished drafts are emitted
type Publish struct {
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// KafkaConfig holds Kafka producer settings
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// WebhookConfig holds a Slack-compatible incoming webhook
type WebhookConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Timeout  string `mapstructure:"timeout"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".creatorpulse")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".creatorpulse")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "creatorpulse.db")
	viper.SetDefault("database.max_open_conns", 10)

	viper.SetDefault("sync.timeout", "10m")
	viper.SetDefault("sync.fetch_timeout", "30s")
	viper.SetDefault("sync.max_concurrency", 5)
	viper.SetDefault("sync.max_items_per_source", 0)
	viper.SetDefault("sync.user_agent", "CreatorPulse/1.0")

	viper.SetDefault("generation.provider", "openai")
	viper.SetDefault("generation.timeout", "60s")
	viper.SetDefault("generation.temperature", 0.7)
	viper.SetDefault("generation.openai.model", "gpt-4o-mini")
	viper.SetDefault("generation.openai.endpoint", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("generation.gemini.model", "gemini-2.5-flash")

	viper.SetDefault("lock.backend", "local")
	viper.SetDefault("lock.ttl", "15m")
	viper.SetDefault("lock.redis.addr", "localhost:6379")

	viper.SetDefault("publish.kafka.topic", "creatorpulse.drafts")
	viper.SetDefault("publish.webhook.username", "CreatorPulse")
	viper.SetDefault("publish.webhook.timeout", "10s")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "90s")
	viper.SetDefault("server.cors.enabled", false)
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("generation.openai.api_key", []string{
		"OPENAI_API_KEY",
		"LLM_API_KEY",
	})

	bindEnvKeys("generation.openai.endpoint", []string{
		"LLM_ENDPOINT",
		"OPENAI_CHAT_ENDPOINT",
	})

	bindEnvKeys("generation.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("generation.provider", []string{
		"GENERATION_PROVIDER",
	})

	bindEnvKeys("database.connection_string", []string{
		"DATABASE_URL",
	})

	bindEnvKeys("lock.redis.addr", []string{
		"REDIS_ADDR",
		"REDIS_URL",
	})

	bindEnvKeys("lock.redis.password", []string{
		"REDIS_PASSWORD",
		"REDIS_PASS",
	})

	bindEnvKeys("publish.webhook.url", []string{
		"SLACK_WEBHOOK_URL",
		"SLACK_WEBHOOK",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"CREATORPULSE_DEBUG",
	})

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		viper.Set("publish.kafka.brokers", splitList(brokers))
	}
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Database.Path != "" && !filepath.IsAbs(config.Database.Path) {
		config.Database.Path = filepath.Join(config.App.DataDir, config.Database.Path)
	}
	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	durations := map[string]string{
		"sync.timeout":            config.Sync.Timeout,
		"sync.fetch_timeout":      config.Sync.FetchTimeout,
		"generation.timeout":      config.Generation.Timeout,
		"lock.ttl":                config.Lock.TTL,
		"publish.webhook.timeout": config.Publish.Webhook.Timeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures the selected backends are usable.
// API keys are checked lazily when a generator is built so that
// commands which never call the model still work without one.
func validateConfig(config *Config) error {
	var errors []string

	switch config.Database.Driver {
	case "sqlite":
	case "postgres":
		if config.Database.ConnectionString == "" {
			errors = append(errors, "PostgreSQL requires a connection string. Set DATABASE_URL or database.connection_string")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown database driver: %s. Supported: sqlite, postgres", config.Database.Driver))
	}

	switch config.Generation.Provider {
	case "openai", "gemini":
	default:
		errors = append(errors, fmt.Sprintf("Unknown generation provider: %s. Supported: openai, gemini", config.Generation.Provider))
	}

	switch config.Lock.Backend {
	case "local", "redis":
	default:
		errors = append(errors, fmt.Sprintf("Unknown lock backend: %s. Supported: local, redis", config.Lock.Backend))
	}

	if config.Sync.MaxConcurrency < 1 {
		errors = append(errors, "sync.max_concurrency must be at least 1")
	}

	if len(config.Publish.Kafka.Brokers) > 0 && config.Publish.Kafka.Topic == "" {
		errors = append(errors, "publish.kafka.topic is required when Kafka brokers are configured")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Duration parses a duration already validated by postProcessConfig,
// returning fallback for empty values.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// Convenience getters for commonly used configuration values
func GetApp() App               { return Get().App }
func GetLogging() Logging       { return Get().Logging }
func GetDatabase() Database     { return Get().Database }
func GetSync() Sync             { return Get().Sync }
func GetGeneration() Generation { return Get().Generation }
func GetServer() Server         { return Get().Server }
func IsDebugMode() bool         { return Get().App.Debug }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
