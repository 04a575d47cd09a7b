package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPHost       string `envconfig:"HTTP_HOST"`
	HTTPPort       string `envconfig:"HTTP_PORT" default:"8080" validate:"required,numeric"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LoggingEnabled bool   `envconfig:"LOGGING_ENABLED" default:"true"`

	BaseDir            string        `envconfig:"BASE_DIR" default:"test_photos" validate:"required"`
	ChunkDelayRaw      string        `envconfig:"CHUNK_DELAY" default:"0"`
	ChunkSize          int           `envconfig:"CHUNK_SIZE" default:"65536" validate:"gt=0"`
	StreamWriteTimeout time.Duration `envconfig:"STREAM_WRITE_TIMEOUT" default:"0s" validate:"gte=0"`
	MaxStreams         int           `envconfig:"MAX_STREAMS" default:"0" validate:"gte=0"`
	ArchiverPath       string        `envconfig:"ARCHIVER_PATH" default:"zip" validate:"required"`

	IndexFile       string        `envconfig:"INDEX_FILE" default:"index.html"`
	JobTTL          time.Duration `envconfig:"JOB_TTL" default:"1h" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`

	SentryDSN          string   `envconfig:"SENTRY_DSN"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("не удалось прочитать .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать конфигурацию: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("некорректная конфигурация: %w", err)
	}
	return nil
}

// ChunkDelay - пауза перед отправкой очередного фрагмента.
// Некорректное или отрицательное значение считается нулём.
func (c *Config) ChunkDelay() time.Duration {
	raw := strings.TrimSpace(c.ChunkDelayRaw)
	if raw == "" {
		return 0
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		// голое число трактуется как секунды
		secs, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0
		}
		d = time.Duration(secs * float64(time.Second))
	}

	if d < 0 {
		return 0
	}
	return d
}

func (c *Config) Addr() string {
	return c.HTTPHost + ":" + c.HTTPPort
}
