/**
 * @description
 * This package handles the configuration management for the admin-service. It uses
 * Viper to read an optional .env file and environment variables into Config.
 *
 * @dependencies
 * - github.com/spf13/viper: Configuration loading.
 */

package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the admin-service.
type Config struct {
	ServerPort         string        `mapstructure:"SERVER_PORT"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	RateLimitPrefix    string        `mapstructure:"RATE_LIMIT_PREFIX"`
	RabbitMQURL        string        `mapstructure:"RABBITMQ_URL"`
	EventsExchange     string        `mapstructure:"EVENTS_EXCHANGE"`
	EventsQueue        string        `mapstructure:"EVENTS_QUEUE"`
	AuditExchange      string        `mapstructure:"AUDIT_EXCHANGE"`
	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	JWTIssuer          string        `mapstructure:"JWT_ISSUER"`
	AllowHeaderAuth    bool          `mapstructure:"ALLOW_HEADER_AUTH"`
	CORSAllowedOrigins string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	LogFormat          string        `mapstructure:"LOG_FORMAT"`
	QueryTimeout       time.Duration `mapstructure:"QUERY_TIMEOUT"`
	FanOutLimit        int           `mapstructure:"FANOUT_LIMIT"`
	DetailsCacheTTL    time.Duration `mapstructure:"DETAILS_CACHE_TTL"`
	PhoneCheckLimit    int           `mapstructure:"PHONE_CHECK_LIMIT"`
	PhoneCheckWindow   time.Duration `mapstructure:"PHONE_CHECK_WINDOW"`
	PhoneCheckBlock    time.Duration `mapstructure:"PHONE_CHECK_BLOCK"`
	CacheWarmSchedule  string        `mapstructure:"CACHE_WARM_SCHEDULE"`
	CacheWarmBatch     int           `mapstructure:"CACHE_WARM_BATCH"`
}

var configKeys = []string{
	"SERVER_PORT",
	"DATABASE_URL",
	"REDIS_URL",
	"RATE_LIMIT_PREFIX",
	"RABBITMQ_URL",
	"EVENTS_EXCHANGE",
	"EVENTS_QUEUE",
	"AUDIT_EXCHANGE",
	"JWT_SECRET",
	"JWT_ISSUER",
	"ALLOW_HEADER_AUTH",
	"CORS_ALLOWED_ORIGINS",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"QUERY_TIMEOUT",
	"FANOUT_LIMIT",
	"DETAILS_CACHE_TTL",
	"PHONE_CHECK_LIMIT",
	"PHONE_CHECK_WINDOW",
	"PHONE_CHECK_BLOCK",
	"CACHE_WARM_SCHEDULE",
	"CACHE_WARM_BATCH",
}

// LoadConfig reads configuration from environment variables and an optional .env file in path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8090")
	viper.SetDefault("RATE_LIMIT_PREFIX", "helparo:rate_limit")
	viper.SetDefault("EVENTS_EXCHANGE", "user_events")
	viper.SetDefault("EVENTS_QUEUE", "admin_service_profile_changes")
	viper.SetDefault("AUDIT_EXCHANGE", "admin_events")
	viper.SetDefault("ALLOW_HEADER_AUTH", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("QUERY_TIMEOUT", "5s")
	viper.SetDefault("FANOUT_LIMIT", 8)
	viper.SetDefault("DETAILS_CACHE_TTL", "60s")
	viper.SetDefault("PHONE_CHECK_LIMIT", 5)
	viper.SetDefault("PHONE_CHECK_WINDOW", "15m")
	viper.SetDefault("PHONE_CHECK_BLOCK", "60m")
	viper.SetDefault("CACHE_WARM_SCHEDULE", "")
	viper.SetDefault("CACHE_WARM_BATCH", 25)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	for _, key := range configKeys {
		_ = viper.BindEnv(key)
	}
	_ = viper.BindEnv("PORT")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RabbitMQURL = strings.TrimSpace(config.RabbitMQURL)
	config.JWTSecret = strings.TrimSpace(config.JWTSecret)
	config.JWTIssuer = strings.TrimSpace(config.JWTIssuer)
	config.CacheWarmSchedule = strings.TrimSpace(config.CacheWarmSchedule)

	if config.DetailsCacheTTL < 0 {
		log.Printf("level=warn component=config msg=\"negative DETAILS_CACHE_TTL; disabling cache\" ttl=%s", config.DetailsCacheTTL)
		config.DetailsCacheTTL = 0
	}
	if config.PhoneCheckBlock < 0 {
		log.Printf("level=warn component=config msg=\"negative PHONE_CHECK_BLOCK; disabling lockout\" block=%s", config.PhoneCheckBlock)
		config.PhoneCheckBlock = 0
	}
	if config.FanOutLimit <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive FANOUT_LIMIT; using default\" value=%d", config.FanOutLimit)
		config.FanOutLimit = 8
	}

	if config.DatabaseURL == "" {
		return config, errors.New("DATABASE_URL is required")
	}
	if config.JWTSecret == "" && !config.AllowHeaderAuth {
		return config, errors.New("JWT_SECRET is required unless ALLOW_HEADER_AUTH is enabled")
	}

	return config, nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas. An empty value allows every origin.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
