package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	GRPCAddr string `mapstructure:"GRPC_ADDR"`

	// Список через запятую; "*" разрешает любой источник.
	CORSAllowOrigins []string `mapstructure:"CORS_ALLOW_ORIGINS"`

	// Секрет для проверки токенов сервиса авторизации (HS256).
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// Часовой пояс, в котором считается "сегодня" при создании брони.
	BookingTimeZone string `mapstructure:"BOOKING_TIMEZONE"`

	ShutdownTimeoutSec int `mapstructure:"SHUTDOWN_TIMEOUT_SEC"`

	DBConfig `mapstructure:",squash"`
}

// Load читает config.yaml (если есть) и переменные окружения.
// Переменные окружения имеют приоритет над файлом.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":50051")
	v.SetDefault("CORS_ALLOW_ORIGINS", []string{"*"})
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("BOOKING_TIMEZONE", "UTC")
	v.SetDefault("SHUTDOWN_TIMEOUT_SEC", 10)
	setDBDefaults(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("invalid config: JWT_SECRET must be set")
	}
	if _, err := time.LoadLocation(c.BookingTimeZone); err != nil {
		return fmt.Errorf("invalid config: BOOKING_TIMEZONE: %w", err)
	}
	return c.DBConfig.Validate()
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location возвращает зону для расчёта "сегодня"; после Validate ошибки быть не может.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BookingTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}
