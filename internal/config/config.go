package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the submission service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	DatabaseURL string
	RedisURL    string

	LogLevel      string
	LogBufferSize int

	// Domain rate limiter (fixed window, keyed by sender identity).
	RateLimitWindow    time.Duration
	RateLimitMax       int
	RateLimitKeyPrefix string
	RateLimitStore     string

	// HTTP edge throttle on the public submit route, keyed by client IP.
	HTTPThrottleMax    int
	HTTPThrottleWindow time.Duration

	SubmitMethod string
	APIEndpoint  string
	MailAddress  string

	HoneypotField string
	HoneypotValue string
	// SpamForbiddenWords overrides the stock list when non-empty.
	SpamForbiddenWords []string
	SpamOptionsFile    string

	NotifyRecipient string
	NATSURL         string
	NATSSubject     string

	DedupeTTL time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}
	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FORMGATE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Formgate API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.buffer_size", 1000)
	v.SetDefault("rate.window", "1h")
	v.SetDefault("rate.max", 5)
	v.SetDefault("rate.key_prefix", "contact")
	v.SetDefault("rate.store", "memory")
	v.SetDefault("throttle.max", 10)
	v.SetDefault("throttle.window", "1m")
	v.SetDefault("submit.method", "store")
	v.SetDefault("honeypot.field", "_gotcha")
	v.SetDefault("honeypot.value", "")
	v.SetDefault("nats.subject", "formgate.notifications")
	v.SetDefault("dedupe.ttl", "5m")

	rateWindow, err := parseDuration(v, "rate.window")
	if err != nil {
		return Config{}, err
	}
	throttleWindow, err := parseDuration(v, "throttle.window")
	if err != nil {
		return Config{}, err
	}
	dedupeTTL, err := parseDuration(v, "dedupe.ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		LogLevel:           v.GetString("log.level"),
		LogBufferSize:      v.GetInt("log.buffer_size"),
		RateLimitWindow:    rateWindow,
		RateLimitMax:       v.GetInt("rate.max"),
		RateLimitKeyPrefix: v.GetString("rate.key_prefix"),
		RateLimitStore:     strings.ToLower(v.GetString("rate.store")),
		HTTPThrottleMax:    v.GetInt("throttle.max"),
		HTTPThrottleWindow: throttleWindow,
		SubmitMethod:       strings.ToLower(v.GetString("submit.method")),
		APIEndpoint:        v.GetString("submit.endpoint"),
		MailAddress:        v.GetString("submit.mail_address"),
		HoneypotField:      v.GetString("honeypot.field"),
		HoneypotValue:      v.GetString("honeypot.value"),
		SpamForbiddenWords: splitList(v.GetString("spam.forbidden_words")),
		SpamOptionsFile:    v.GetString("spam.options_file"),
		NotifyRecipient:    v.GetString("notify.recipient"),
		NATSURL:            v.GetString("nats.url"),
		NATSSubject:        v.GetString("nats.subject"),
		DedupeTTL:          dedupeTTL,
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.SubmitMethod {
	case "store":
		if c.DatabaseURL == "" {
			return fmt.Errorf("database url must be provided for the store method")
		}
	case "api":
		if c.APIEndpoint == "" {
			return fmt.Errorf("submit endpoint must be provided for the api method")
		}
	case "mail":
		if c.MailAddress == "" {
			return fmt.Errorf("mail address must be provided for the mail method")
		}
	default:
		return fmt.Errorf("unknown submit method %q", c.SubmitMethod)
	}

	switch c.RateLimitStore {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("redis url must be provided for the redis rate limit store")
		}
	default:
		return fmt.Errorf("unknown rate limit store %q", c.RateLimitStore)
	}

	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ReplaceAll(key, ".", " "), err)
	}
	return parsed, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
