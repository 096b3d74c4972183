package app

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/fleet-backend/internal/data/aggregates"
	"github.com/yungbote/fleet-backend/internal/data/db"
	"github.com/yungbote/fleet-backend/internal/data/repos/entity"
	domainagg "github.com/yungbote/fleet-backend/internal/domain/aggregates"
	"github.com/yungbote/fleet-backend/internal/observability"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

// Config is resolved in three layers: built-in defaults, then the YAML file
// named by CONFIG_FILE, then environment variables.
type Config struct {
	Port    string `yaml:"port" env:"PORT"`
	LogMode string `yaml:"log_mode" env:"LOG_MODE"`

	DB       DBConfig      `yaml:"db"`
	PageSize int           `yaml:"page_size" env:"PAGE_SIZE"`
	Mirror   MirrorConfig  `yaml:"mirror"`
	Redis    RedisConfig   `yaml:"redis"`
	JWT      JWTConfig     `yaml:"jwt"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Tracing  TracingConfig `yaml:"tracing"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

type DBConfig struct {
	Driver     string `yaml:"driver" env:"DB_DRIVER"`
	Host       string `yaml:"host" env:"POSTGRES_HOST"`
	Port       string `yaml:"port" env:"POSTGRES_PORT"`
	User       string `yaml:"user" env:"POSTGRES_USER"`
	Password   string `yaml:"password" env:"POSTGRES_PASSWORD"`
	Name       string `yaml:"name" env:"POSTGRES_NAME"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

func (c DBConfig) Postgres() db.PostgresConfig {
	return db.PostgresConfig{Host: c.Host, Port: c.Port, User: c.User, Password: c.Password, Name: c.Name}
}

type MirrorConfig struct {
	CASRetries    int    `yaml:"cas_retries" env:"MIRROR_CAS_RETRIES"`
	MissingPolicy string `yaml:"missing_policy" env:"MIRROR_MISSING_POLICY"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB"`
	LockTTL  time.Duration `yaml:"lock_ttl" env:"BOAT_LOCK_TTL"`
	LockWait time.Duration `yaml:"lock_wait" env:"BOAT_LOCK_WAIT"`
}

type JWTConfig struct {
	SecretKey string `yaml:"secret_key" env:"JWT_SECRET_KEY"`
	Issuer    string `yaml:"issuer" env:"JWT_ISSUER"`
	Audience  string `yaml:"audience" env:"JWT_AUDIENCE"`
}

type MetricsConfig struct {
	Enabled        bool          `yaml:"enabled" env:"METRICS_ENABLED"`
	Addr           string        `yaml:"addr" env:"METRICS_ADDR"`
	ScrapeInterval time.Duration `yaml:"scrape_interval" env:"METRICS_SCRAPE_INTERVAL"`
}

type TracingConfig struct {
	Enabled     bool              `yaml:"enabled" env:"OTEL_ENABLED"`
	ServiceName string            `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	Environment string            `yaml:"environment" env:"APP_ENV"`
	Version     string            `yaml:"version" env:"APP_VERSION"`
	Endpoint    string            `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Headers     map[string]string `yaml:"headers" env:"OTEL_EXPORTER_OTLP_HEADERS" envKeyValSeparator:"="`
	Insecure    bool              `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE"`
	SampleRatio float64           `yaml:"sample_ratio" env:"OTEL_SAMPLER_RATIO"`
}

func (c TracingConfig) Otel() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.Enabled,
		ServiceName: c.ServiceName,
		Environment: c.Environment,
		Version:     c.Version,
		Endpoint:    c.Endpoint,
		Headers:     c.Headers,
		Insecure:    c.Insecure,
		SampleRatio: c.SampleRatio,
	}
}

func DefaultConfig() Config {
	return Config{
		Port:    "8080",
		LogMode: "development",
		DB: DBConfig{
			Driver:     "postgres",
			Host:       "localhost",
			Port:       "5432",
			User:       "postgres",
			Name:       "fleet",
			SQLitePath: "fleet.db",
		},
		PageSize: entity.DefaultPageSize,
		Mirror: MirrorConfig{
			CASRetries:    aggregates.DefaultCASAttempts,
			MissingPolicy: string(domainagg.MissingMirrorRepair),
		},
		Redis: RedisConfig{LockTTL: 5 * time.Second},
		Metrics: MetricsConfig{
			Addr:           ":9090",
			ScrapeInterval: 15 * time.Second,
		},
		Tracing: TracingConfig{
			ServiceName: "fleet-backend",
			SampleRatio: 1,
		},
	}
}

// LoadConfig resolves the process configuration and validates it.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := DefaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if log != nil {
			log.Info("Loading config file", "path", path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(raw []byte, cfg *Config) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Port) == "" {
		problems = append(problems, "PORT is empty")
	}
	switch c.DB.Driver {
	case "postgres":
		if c.DB.Host == "" || c.DB.Name == "" {
			problems = append(problems, "POSTGRES_HOST and POSTGRES_NAME are required for DB_DRIVER=postgres")
		}
	case "sqlite":
		if c.DB.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH is required for DB_DRIVER=sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("DB_DRIVER %q is not postgres or sqlite", c.DB.Driver))
	}
	if c.PageSize <= 0 {
		problems = append(problems, "PAGE_SIZE must be positive")
	}
	if c.Mirror.CASRetries <= 0 {
		problems = append(problems, "MIRROR_CAS_RETRIES must be positive")
	}
	if _, ok := domainagg.ParseMissingMirrorPolicy(c.Mirror.MissingPolicy); !ok {
		problems = append(problems, fmt.Sprintf("MIRROR_MISSING_POLICY %q is not repair or ignore", c.Mirror.MissingPolicy))
	}
	if c.Redis.Addr != "" && c.Redis.LockTTL <= 0 {
		problems = append(problems, "BOAT_LOCK_TTL must be positive")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		problems = append(problems, "OTEL_SAMPLER_RATIO must be within [0,1]")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
