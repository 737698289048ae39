package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Host            string        `mapstructure:"host"`
		Port            string        `mapstructure:"port"`
		User            string        `mapstructure:"user"`
		Password        string        `mapstructure:"password"`
		Name            string        `mapstructure:"name"`
		SSLMode         string        `mapstructure:"sslmode"`
		MaxOpenConns    int           `mapstructure:"max_open_conns"`
		MaxIdleConns    int           `mapstructure:"max_idle_conns"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
		LockTimeout     time.Duration `mapstructure:"lock_timeout"`
	} `mapstructure:"database"`
	Redis struct {
		Host                string        `mapstructure:"host"`
		Port                string        `mapstructure:"port"`
		Password            string        `mapstructure:"password"`
		DB                  int           `mapstructure:"db"`
		NotificationChannel string        `mapstructure:"notification_channel"`
		SummaryTTL          time.Duration `mapstructure:"summary_ttl"`
	} `mapstructure:"redis"`
	Server struct {
		Port            string        `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	JWT struct {
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"jwt"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Tracing struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
		ServiceName  string `mapstructure:"service_name"`
	} `mapstructure:"tracing"`
	Ledger struct {
		MaxRetries     int           `mapstructure:"max_retries"`
		InitialBackoff time.Duration `mapstructure:"initial_backoff"`
		MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	} `mapstructure:"ledger"`
	Loan struct {
		DefaultGracePeriodDays int     `mapstructure:"default_grace_period_days"`
		DefaultPenaltyRate     float64 `mapstructure:"default_penalty_rate"`
		MaxTenureMonths        int     `mapstructure:"max_tenure_months"`
	} `mapstructure:"loan"`
	Scheduler struct {
		Concurrency int `mapstructure:"concurrency"`
	} `mapstructure:"scheduler"`
}

var AppConfig Config

func setDefaults() {
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "30m")
	viper.SetDefault("database.lock_timeout", "5s")
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.notification_channel", "bank:notifications")
	viper.SetDefault("redis.summary_ttl", "1m")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdown_timeout", "5s")
	// Registered so JWT_SECRET_KEY alone is enough to configure it.
	viper.SetDefault("jwt.secret_key", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("database.user", "")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.name", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("tracing.otlp_endpoint", "")
	viper.SetDefault("tracing.service_name", "bankd")
	viper.SetDefault("ledger.max_retries", 3)
	viper.SetDefault("ledger.initial_backoff", "50ms")
	viper.SetDefault("ledger.max_backoff", "1s")
	viper.SetDefault("loan.default_grace_period_days", 5)
	viper.SetDefault("loan.default_penalty_rate", 2.0)
	viper.SetDefault("loan.max_tenure_months", 360)
	viper.SetDefault("scheduler.concurrency", 4)
}

// LoadConfig reads config.yml from path and overlays environment variables
// such as DATABASE_HOST or LEDGER_MAX_RETRIES.
func LoadConfig(path string) error {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return fmt.Errorf("unable to decode into struct: %w", err)
	}
	return nil
}
