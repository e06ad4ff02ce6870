package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	ContentAPI ContentAPIConfig `mapstructure:"content_api"`
	Translator TranslatorConfig `mapstructure:"translator"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`   // sqlite file path
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ContentAPIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TranslatorConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	SourceLang string        `mapstructure:"source_lang"`
	TargetLang string        `mapstructure:"target_lang"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
}

type CacheConfig struct {
	Environment string        `mapstructure:"environment"` // cache key namespace
	KeywordTTL  time.Duration `mapstructure:"keyword_ttl"`
	MetricsTTL  time.Duration `mapstructure:"metrics_ttl"`
	BreakerTTL  time.Duration `mapstructure:"breaker_ttl"`
	WarmingSpec string        `mapstructure:"warming_spec"` // cron spec, empty disables warming
}

type PipelineConfig struct {
	Workers           int           `mapstructure:"workers"`
	FetchConcurrency  int           `mapstructure:"fetch_concurrency"`
	RetryMaxAttempts  int           `mapstructure:"retry_max_attempts"`
	RetryBaseBackoff  time.Duration `mapstructure:"retry_base_backoff"`
	ImportShare       int           `mapstructure:"import_share"` // percent of job progress the import phase covers
	ApprovalThreshold int           `mapstructure:"approval_threshold"`
}

type AlertsConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("content_api.base_url", "CONTENT_API_BASE_URL")
	v.BindEnv("translator.base_url", "TRANSLATOR_BASE_URL")
	v.BindEnv("translator.api_key", "TRANSLATOR_API_KEY")
	v.BindEnv("alerts.webhook_url", "ALERT_WEBHOOK_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/comments.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "comment_analysis")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("content_api.base_url", "https://jsonplaceholder.typicode.com")
	v.SetDefault("content_api.timeout", "30s")

	v.SetDefault("translator.base_url", "https://libretranslate.com")
	v.SetDefault("translator.source_lang", "en")
	v.SetDefault("translator.target_lang", "pt")
	v.SetDefault("translator.timeout", "30s")

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.recovery_timeout", "60s")
	v.SetDefault("breaker.success_threshold", 2)
	v.SetDefault("breaker.call_timeout", "30s")

	v.SetDefault("cache.environment", "development")
	v.SetDefault("cache.keyword_ttl", "30m")
	v.SetDefault("cache.metrics_ttl", "1h")
	v.SetDefault("cache.breaker_ttl", "24h")
	v.SetDefault("cache.warming_spec", "@every 1h")

	v.SetDefault("pipeline.workers", 5)
	v.SetDefault("pipeline.fetch_concurrency", 4)
	v.SetDefault("pipeline.retry_max_attempts", 3)
	v.SetDefault("pipeline.retry_base_backoff", "500ms")
	v.SetDefault("pipeline.import_share", 50)
	v.SetDefault("pipeline.approval_threshold", 2)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
}
