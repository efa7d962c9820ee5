// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/raduhhr/contact-api/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	// EmailProviderResend selects the Resend transactional email API.
	EmailProviderResend = "resend"
	// EmailProviderSES selects AWS Simple Email Service.
	EmailProviderSES = "ses"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port        string      `mapstructure:"PORT" yaml:"port"`
	Version     string      `mapstructure:"VERSION" yaml:"version"`
	// AllowedOrigins is the fixed set of browser origins permitted to call
	// the endpoint. Loaded once at startup and read-only thereafter.
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	// MaxBodyBytes bounds the request body size before JSON parsing.
	MaxBodyBytes int64 `mapstructure:"MAX_BODY_BYTES" yaml:"max_body_bytes"`
}

// RedisConfig holds Redis connection details for the rate-limit counter store.
type RedisConfig struct {
	Address  string `mapstructure:"ADDRESS" yaml:"address"`
	Password string `mapstructure:"PASSWORD" yaml:"password"`
	DB       int    `mapstructure:"DB" yaml:"db"`
	UseTLS   bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
}

// EmailConfig holds configuration for sending the contact notification email.
// Sender, recipient, and reply-to are fixed deployment values; user input
// never reaches any address field.
type EmailConfig struct {
	Provider       string `mapstructure:"PROVIDER" yaml:"provider"`
	FromAddress    string `mapstructure:"FROM_ADDRESS" yaml:"from_address"`
	FromName       string `mapstructure:"FROM_NAME" yaml:"from_name"`
	ToAddress      string `mapstructure:"TO_ADDRESS" yaml:"to_address"`
	ReplyToAddress string `mapstructure:"REPLY_TO_ADDRESS" yaml:"reply_to_address"`
	ResendAPIKey   string `mapstructure:"RESEND_API_KEY" yaml:"resend_api_key"`
	// AWS settings are only consulted when Provider is "ses".
	AWSRegion          string `mapstructure:"AWS_REGION" yaml:"aws_region"`
	AWSAccessKeyID     string `mapstructure:"AWS_ACCESS_KEY_ID" yaml:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"AWS_SECRET_ACCESS_KEY" yaml:"aws_secret_access_key"`
}

// TurnstileConfig holds the bot-verification settings.
type TurnstileConfig struct {
	Secret string `mapstructure:"SECRET" yaml:"secret"`
	// VerifyURL is overridable for tests; defaults to the Cloudflare endpoint.
	VerifyURL string `mapstructure:"VERIFY_URL" yaml:"verify_url"`
	// AllowedHostnames is the fixed set of hostnames a token may have been
	// issued for. Tokens verified for any other hostname are rejected.
	AllowedHostnames []string `mapstructure:"ALLOWED_HOSTNAMES" yaml:"allowed_hostnames"`
	TimeoutSeconds   int      `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
}

// RateLimitConfig holds configuration for the per-IP submission limit.
type RateLimitConfig struct {
	// MaxSubmissions is the number of accepted submissions allowed per IP
	// within the window.
	MaxSubmissions int `mapstructure:"MAX_SUBMISSIONS" yaml:"max_submissions"`
	// WindowSeconds is the counter TTL. The TTL resets on every accepted
	// submission, so the window slides with the most recent one.
	WindowSeconds int `mapstructure:"WINDOW_SECONDS" yaml:"window_seconds"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server    ServerConfig    `mapstructure:"SERVER" yaml:"server"`
	Redis     RedisConfig     `mapstructure:"REDIS" yaml:"redis"`
	Email     EmailConfig     `mapstructure:"EMAIL" yaml:"email"`
	Turnstile TurnstileConfig `mapstructure:"TURNSTILE" yaml:"turnstile"`
	RateLimit RateLimitConfig `mapstructure:"RATE_LIMIT" yaml:"rate_limit"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, binds environment variables to config struct fields,
// unmarshals the configuration, and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"https://raduhhr.xyz", "https://www.raduhhr.xyz"})
	v.SetDefault("SERVER.MAX_BODY_BYTES", 10000)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("EMAIL.PROVIDER", EmailProviderResend)
	v.SetDefault("EMAIL.FROM_NAME", "Contact Form")
	v.SetDefault("TURNSTILE.VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	v.SetDefault("TURNSTILE.ALLOWED_HOSTNAMES", []string{"raduhhr.xyz", "www.raduhhr.xyz"})
	v.SetDefault("TURNSTILE.TIMEOUT_SECONDS", 10)
	v.SetDefault("RATE_LIMIT.MAX_SUBMISSIONS", 5)
	v.SetDefault("RATE_LIMIT.WINDOW_SECONDS", 3600)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind environment variables
	envBindings := [][2]string{
		// Server config
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.VERSION", "VERSION"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.MAX_BODY_BYTES", "MAX_BODY_BYTES"},
		// Redis config
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		// Email config
		{"EMAIL.PROVIDER", "EMAIL_PROVIDER"},
		{"EMAIL.FROM_ADDRESS", "EMAIL_FROM_ADDRESS"},
		{"EMAIL.FROM_NAME", "EMAIL_FROM_NAME"},
		{"EMAIL.TO_ADDRESS", "EMAIL_TO_ADDRESS"},
		{"EMAIL.REPLY_TO_ADDRESS", "EMAIL_REPLY_TO_ADDRESS"},
		{"EMAIL.RESEND_API_KEY", "RESEND_API_KEY"},
		{"EMAIL.AWS_REGION", "AWS_REGION"},
		{"EMAIL.AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"},
		{"EMAIL.AWS_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"},
		// Turnstile config
		{"TURNSTILE.SECRET", "TURNSTILE_SECRET"},
		{"TURNSTILE.VERIFY_URL", "TURNSTILE_VERIFY_URL"},
		{"TURNSTILE.ALLOWED_HOSTNAMES", "TURNSTILE_ALLOWED_HOSTNAMES"},
		{"TURNSTILE.TIMEOUT_SECONDS", "TURNSTILE_TIMEOUT_SECONDS"},
		// Rate limit config
		{"RATE_LIMIT.MAX_SUBMISSIONS", "RATE_LIMIT_MAX_SUBMISSIONS"},
		{"RATE_LIMIT.WINDOW_SECONDS", "RATE_LIMIT_WINDOW_SECONDS"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"server_port", v.GetString("SERVER.PORT"),
		"allowed_origins", v.GetStringSlice("SERVER.ALLOWED_ORIGINS"),
		"email_provider", v.GetString("EMAIL.PROVIDER"),
		"rate_limit_max", v.GetInt("RATE_LIMIT.MAX_SUBMISSIONS"),
		"rate_limit_window_seconds", v.GetInt("RATE_LIMIT.WINDOW_SECONDS"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
// Missing required secrets or bindings fail startup; the handler never runs
// with a half-configured environment.
func validateConfig(cfg *Config) error {
	// Validate Server Config
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin is required")
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}

	// Validate Redis Config
	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	// Validate Email Config
	if cfg.Email.FromAddress == "" {
		return fmt.Errorf("email from address is required")
	}
	if cfg.Email.ToAddress == "" {
		return fmt.Errorf("email to address is required")
	}
	if cfg.Email.ReplyToAddress == "" {
		return fmt.Errorf("email reply-to address is required")
	}
	switch cfg.Email.Provider {
	case EmailProviderResend:
		if cfg.Email.ResendAPIKey == "" {
			return fmt.Errorf("resend API key is required")
		}
	case EmailProviderSES:
		if cfg.Email.AWSRegion == "" {
			return fmt.Errorf("AWS region is required for the SES provider")
		}
	default:
		return fmt.Errorf("unknown email provider '%s'", cfg.Email.Provider)
	}

	// Validate Turnstile Config
	if cfg.Turnstile.Secret == "" {
		return fmt.Errorf("turnstile secret is required")
	}
	if len(cfg.Turnstile.AllowedHostnames) == 0 {
		return fmt.Errorf("at least one allowed verification hostname is required")
	}
	if cfg.Turnstile.TimeoutSeconds <= 0 {
		return fmt.Errorf("turnstile timeout must be positive")
	}

	// Validate RateLimit config
	if cfg.RateLimit.MaxSubmissions <= 0 {
		return fmt.Errorf("rate limit max submissions must be positive")
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate limit window seconds must be positive")
	}

	return nil
}

// containsWildcard checks if the list of allowed origins contains the wildcard "*".
func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
