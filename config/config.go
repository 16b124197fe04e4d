package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Required lists the variables the bot cannot start without
var Required = map[string]Kind{
	"BOT_TOKEN":   String,
	"GUILD_ID":    Int,
	"DB_HOST":     String,
	"DB_PORT":     Int,
	"DB_USER":     String,
	"DB_PASSWORD": String,
	"DB_NAME":     String,
}

type Config struct {
	BotToken string
	GuildID  int64

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	UseSSL                 bool          `env:"USE_SSL" envDefault:"false"`
	SSLCertPath            string        `env:"SSL_CERT_PATH"`
	DisableSSLVerification bool          `env:"DISABLE_SSL_VERIFICATION" envDefault:"false"`
	DBTimeoutSeconds       int           `env:"DB_TIMEOUT" envDefault:"30" validate:"gte=1"`
	DBPoolMin              int           `env:"DB_POOL_MIN" envDefault:"1" validate:"gte=0,ltefield=DBPoolMax"`
	DBPoolMax              int           `env:"DB_POOL_MAX" envDefault:"5" validate:"gte=1"`
	DBConnectRetries       int           `env:"DB_CONNECT_RETRIES" envDefault:"3" validate:"gte=1,lte=10"`
	DBRetryDelay           time.Duration `env:"DB_RETRY_DELAY" envDefault:"5s"`

	ModuleSetupTimeout   time.Duration `env:"MODULE_SETUP_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	ModuleLoadConcurrent bool          `env:"MODULE_LOAD_CONCURRENT" envDefault:"false"`

	CommandPrefix      string `env:"COMMAND_PREFIX" envDefault:">>" validate:"required"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"15" validate:"gte=1"`
	SupportServerURL   string `env:"SUPPORT_SERVER_URL" validate:"omitempty,url"`
	YGOAPIURL          string `env:"YGO_API_URL" envDefault:"https://db.ygoprodeck.com/api/v7" validate:"url"`
	YGOEventsURL       string `env:"YGO_EVENTS_URL" envDefault:"https://www.yugioh-card.com/en/events/" validate:"url"`
	MetricsAddr        string `env:"METRICS_ADDR"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"console" validate:"oneof=console json"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"10" validate:"gte=1"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5" validate:"gte=0"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30" validate:"gte=0"`
}

// LoadDotenv loads a .env file if one exists; the process environment always wins.
func LoadDotenv(logger zerolog.Logger, files ...string) {
	if err := godotenv.Load(files...); err != nil {
		logger.Info().Msg("No .env file found, falling back to system environment variables")
	}
}

// Load validates the required variables and parses the optional tunables
func Load(v *Validator) (*Config, error) {
	values, err := v.ValidateRequired(Required)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BotToken:   values["BOT_TOKEN"].(string),
		GuildID:    int64(values["GUILD_ID"].(int)),
		DBHost:     values["DB_HOST"].(string),
		DBPort:     values["DB_PORT"].(int),
		DBUser:     values["DB_USER"].(string),
		DBPassword: values["DB_PASSWORD"].(string),
		DBName:     values["DB_NAME"].(string),
	}

	if err := env.ParseWithOptions(cfg, env.Options{
		Environment: environment(v),
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(true): func(raw string) (interface{}, error) {
				return ParseBool(raw), nil
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("parse optional configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the optional settings for consistency
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DBTimeout returns the connection timeout as a duration
func (c *Config) DBTimeout() time.Duration {
	return time.Duration(c.DBTimeoutSeconds) * time.Second
}

// environment snapshots the keys the Config struct reads through the validator's lookup.
// Blank values count as unset, the same as for required variables.
func environment(v *Validator) map[string]string {
	keys := []string{
		"USE_SSL", "SSL_CERT_PATH", "DISABLE_SSL_VERIFICATION", "DB_TIMEOUT",
		"DB_POOL_MIN", "DB_POOL_MAX", "DB_CONNECT_RETRIES", "DB_RETRY_DELAY",
		"MODULE_SETUP_TIMEOUT", "MODULE_LOAD_CONCURRENT", "COMMAND_PREFIX",
		"RATE_LIMIT_PER_MINUTE", "SUPPORT_SERVER_URL", "YGO_API_URL", "YGO_EVENTS_URL", "METRICS_ADDR",
		"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS",
		"LOG_MAX_AGE_DAYS",
	}
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := v.lookup(key); ok && strings.TrimSpace(value) != "" {
			out[key] = value
		}
	}
	return out
}
