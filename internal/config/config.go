package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Version is injected at build time via ldflags.
var Version = "dev"

// Backend kinds for user data persistence.
const (
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	AI        AIConfig        `mapstructure:"ai"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	AdminToken string `mapstructure:"admin_token"`
	// AllowedOrigins lists browser origins allowed by CORS. Empty allows same-origin only.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// RecommendRateLimit is the AI recommendation requests allowed per minute per user.
	RecommendRateLimit int `mapstructure:"recommend_rate_limit"`
	// AuthRateLimit is the sign-in and sign-up requests allowed per minute per IP.
	AuthRateLimit int `mapstructure:"auth_rate_limit"`
}

// DatabaseConfig holds local database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// AuthConfig holds access token verification settings.
type AuthConfig struct {
	// JWTSecret is the backend project's JWT signing secret.
	JWTSecret string `mapstructure:"jwt_secret"`
	Audience  string `mapstructure:"audience"`
}

// MetadataConfig holds movie catalog provider configuration.
type MetadataConfig struct {
	TMDB TMDBConfig `mapstructure:"tmdb"`
}

// TMDBConfig holds TMDB API settings.
type TMDBConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url"`
	Timeout      int    `mapstructure:"timeout"`
	// RetryAttempts bounds attempts when TMDB answers 429.
	RetryAttempts int `mapstructure:"retry_attempts"`
	// SearchOrdering re-ranks search results by relevance score instead of TMDB order.
	SearchOrdering bool `mapstructure:"search_ordering"`
}

// AIConfig holds completion endpoint settings.
type AIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Referer     string  `mapstructure:"referer"`
	Title       string  `mapstructure:"title"`
	Timeout     int     `mapstructure:"timeout"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	// EnrichWorkers bounds concurrent catalog lookups per recommendation request.
	EnrichWorkers int `mapstructure:"enrich_workers"`
	// BreakerFailures is the consecutive failure count that opens the circuit.
	BreakerFailures uint32 `mapstructure:"breaker_failures"`
	// BreakerCooldown is how long, in seconds, the circuit stays open.
	BreakerCooldown int `mapstructure:"breaker_cooldown"`
}

// BackendConfig selects and configures the user data backend.
type BackendConfig struct {
	Kind        string `mapstructure:"kind"`
	SupabaseURL string `mapstructure:"supabase_url"`
	AnonKey     string `mapstructure:"anon_key"`
	Timeout     int    `mapstructure:"timeout"`
}

// SchedulerConfig holds background task settings.
type SchedulerConfig struct {
	HealthCheckCron string `mapstructure:"health_check_cron"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			RecommendRateLimit: 10,
			AuthRateLimit:      10,
		},
		Database: DatabaseConfig{
			Path: "./data/thatonemovie.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Auth: AuthConfig{
			Audience: "authenticated",
		},
		Metadata: MetadataConfig{
			TMDB: TMDBConfig{
				APIKey:        EmbeddedTMDBKey,
				BaseURL:       "https://api.themoviedb.org/3",
				ImageBaseURL:  "https://image.tmdb.org/t/p",
				Timeout:       10,
				RetryAttempts: 3,
			},
		},
		AI: AIConfig{
			BaseURL:         "https://openrouter.ai/api/v1/chat/completions",
			Model:           "openai/gpt-4o-mini",
			Title:           "ThatOneMovie.ai",
			Timeout:         30,
			Temperature:     0.5,
			MaxTokens:       500,
			EnrichWorkers:   5,
			BreakerFailures: 5,
			BreakerCooldown: 60,
		},
		Backend: BackendConfig{
			Kind:    BackendSQLite,
			Timeout: 10,
		},
		Scheduler: SchedulerConfig{
			HealthCheckCron: "*/15 * * * *",
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > .env > defaults
func Load(configPath string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.thatonemovie")
	}

	v.SetEnvPrefix("THATONEMOVIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyLegacyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults mirrors Default() into viper so env-only keys still unmarshal.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.recommend_rate_limit", d.Server.RecommendRateLimit)
	v.SetDefault("server.auth_rate_limit", d.Server.AuthRateLimit)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.audience", d.Auth.Audience)

	v.SetDefault("metadata.tmdb.api_key", d.Metadata.TMDB.APIKey)
	v.SetDefault("metadata.tmdb.base_url", d.Metadata.TMDB.BaseURL)
	v.SetDefault("metadata.tmdb.image_base_url", d.Metadata.TMDB.ImageBaseURL)
	v.SetDefault("metadata.tmdb.timeout", d.Metadata.TMDB.Timeout)
	v.SetDefault("metadata.tmdb.retry_attempts", d.Metadata.TMDB.RetryAttempts)
	v.SetDefault("metadata.tmdb.search_ordering", false)

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.referer", "")
	v.SetDefault("ai.title", d.AI.Title)
	v.SetDefault("ai.timeout", d.AI.Timeout)
	v.SetDefault("ai.temperature", d.AI.Temperature)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("ai.enrich_workers", d.AI.EnrichWorkers)
	v.SetDefault("ai.breaker_failures", d.AI.BreakerFailures)
	v.SetDefault("ai.breaker_cooldown", d.AI.BreakerCooldown)

	v.SetDefault("backend.kind", d.Backend.Kind)
	v.SetDefault("backend.supabase_url", "")
	v.SetDefault("backend.anon_key", "")
	v.SetDefault("backend.timeout", d.Backend.Timeout)

	v.SetDefault("scheduler.health_check_cron", d.Scheduler.HealthCheckCron)
}

// applyLegacyEnv fills unset secrets from the environment names used by the web frontend deployment.
func applyLegacyEnv(cfg *Config) {
	fill := func(dst *string, names ...string) {
		if *dst != "" {
			return
		}
		for _, name := range names {
			if val := strings.TrimSpace(os.Getenv(name)); val != "" {
				*dst = val
				return
			}
		}
	}

	fill(&cfg.Metadata.TMDB.APIKey, "TMDB_API_KEY")
	fill(&cfg.AI.APIKey, "OPENROUTER_API_KEY")
	fill(&cfg.Backend.SupabaseURL, "SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL")
	fill(&cfg.Backend.AnonKey, "SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY")
	fill(&cfg.Auth.JWTSecret, "SUPABASE_JWT_SECRET")
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendSQLite:
	case BackendSupabase:
		if c.Backend.SupabaseURL == "" {
			return fmt.Errorf("backend.supabase_url is required for the %s backend", BackendSupabase)
		}
	default:
		return fmt.Errorf("unknown backend kind %q", c.Backend.Kind)
	}
	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
