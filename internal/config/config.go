package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Драйверы хранилища
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	App       AppConfig
	Storage   StorageConfig
	DB        DBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Shortener ShortenerConfig
}

type AppConfig struct {
	Port string
}

type StorageConfig struct {
	Driver    string
	Namespace string // префикс ключей, пустой - ключи "urls" и "analytics" как есть
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type ShortenerConfig struct {
	ShortcodeLength        int
	DefaultValidityMinutes int
	CleanupInterval        time.Duration
	ClickWorkers           int
	Timezone               string
}

// Load читает .env (если он есть) и переменные окружения.
// Переменные окружения имеют приоритет над файлом.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER")))
	cfg.Storage.Namespace = v.GetString("STORAGE_NAMESPACE")

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.DB.SSLMode = v.GetString("DB_SSLMODE")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = v.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize <= 0 {
		cfg.RateLimit.BurstSize = 20
	}

	cfg.Shortener.ShortcodeLength = v.GetInt("SHORTCODE_LENGTH")
	if cfg.Shortener.ShortcodeLength <= 0 {
		cfg.Shortener.ShortcodeLength = 8
	}
	cfg.Shortener.DefaultValidityMinutes = v.GetInt("DEFAULT_VALIDITY_MINUTES")
	cfg.Shortener.CleanupInterval = v.GetDuration("CLEANUP_INTERVAL")
	if cfg.Shortener.CleanupInterval <= 0 {
		cfg.Shortener.CleanupInterval = time.Minute
	}
	cfg.Shortener.ClickWorkers = v.GetInt("CLICK_WORKERS")
	if cfg.Shortener.ClickWorkers <= 0 {
		cfg.Shortener.ClickWorkers = 3
	}
	cfg.Shortener.Timezone = v.GetString("TIMEZONE")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("STORAGE_DRIVER", DriverMemory)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("DEFAULT_VALIDITY_MINUTES", 30)
	v.SetDefault("TIMEZONE", "UTC")
}

var ErrUnknownDriver = errors.New("unknown storage driver")

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverRedis, DriverPostgres:
	default:
		return ErrUnknownDriver
	}
	if _, err := time.LoadLocation(c.Shortener.Timezone); err != nil {
		return err
	}
	return nil
}
