package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kkyr/fig"
	log "github.com/sirupsen/logrus"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// WEATHERSTREAM_WEATHER_LOCATION.
	EnvPrefix = "WEATHERSTREAM"
	// FileEnv names an explicit config file to read instead of ./config.yaml.
	FileEnv = EnvPrefix + "_CONFIG_FILE"

	DefaultVaultAddress      = "https://key-weather-streaming2.vault.azure.net/"
	DefaultEventHubNamespace = "EventH-weather-streaming-namespace.servicebus.windows.net"
	DefaultEventHubName      = "weather-streaming-event-hub"
	DefaultRedisQueueKey     = "weather:events"

	DefaultForecastDays  = 3
	DefaultMaxQueueDepth = 1000
	DefaultHistoryRuns   = 120
)

var validate = validator.New()

// AppConfig is the complete deployment configuration, loaded once at start.
type AppConfig struct {
	Log struct {
		Level  string `fig:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `fig:"format" default:"json" validate:"oneof=json text"`
	} `fig:"log"`

	HTTP struct {
		// Port of the status API; the lambda entry point ignores it.
		Port string `fig:"port" default:"8080" validate:"numeric"`
	} `fig:"http"`

	Weather struct {
		BaseURL      string        `fig:"base_url" default:"http://api.weatherapi.com/v1/" validate:"url"`
		Location     string        `fig:"location" default:"Kolkata" validate:"min=1"`
		// ForecastDays and the other pointer fields get their defaults in
		// Validate, so an explicit 0 is not mistaken for an unset key.
		ForecastDays *int          `fig:"forecast_days" validate:"required,min=1,max=14"`
		Timeout      time.Duration `fig:"timeout" default:"10s" validate:"min=0"`
		// Retries are off unless set; each call is a single attempt.
		RetryMax     int           `fig:"retry_max" default:"0" validate:"min=0,max=10"`
		RetryWaitMin time.Duration `fig:"retry_wait_min" default:"500ms"`
		RetryWaitMax time.Duration `fig:"retry_wait_max" default:"5s" validate:"gtefield=RetryWaitMin"`
	} `fig:"weather"`

	Schedule struct {
		Interval     time.Duration `fig:"interval" default:"30s" validate:"min=1s"`
		RunOnStartup bool          `fig:"run_on_startup"`
		// Singleton skips a tick while the previous run is still going.
		Singleton  bool          `fig:"singleton"`
		RunTimeout time.Duration `fig:"run_timeout" default:"0s" validate:"min=0"`
	} `fig:"schedule"`

	Secrets struct {
		Backend      string `fig:"backend" default:"azure" validate:"oneof=azure aws env"`
		VaultAddress string `fig:"vault_address"`
		APIKeyName   string `fig:"api_key_name" default:"weather-api-key" validate:"min=1"`
	} `fig:"secrets"`

	Publisher struct {
		Backend       string `fig:"backend" default:"eventhub" validate:"oneof=eventhub kinesis sns redis log"`
		Namespace     string `fig:"namespace"`
		Name          string `fig:"name"`
		PartitionKey  string `fig:"partition_key"`
		// 0 leaves the redis queue unbounded.
		MaxQueueDepth *int64 `fig:"max_queue_depth" validate:"required,min=0"`
	} `fig:"publisher"`

	AWS struct {
		Region string `fig:"region" default:"us-east-1"`
	} `fig:"aws"`

	Pipeline struct {
		PartialPolicy string `fig:"partial_policy" default:"publish" validate:"oneof=publish skip"`
	} `fig:"pipeline"`

	History struct {
		// 0 keeps every run.
		MaxRuns *int          `fig:"max_runs" validate:"required,min=0"`
		MaxAge  time.Duration `fig:"max_age" default:"24h" validate:"min=0"`
	} `fig:"history"`
}

// Load reads configuration from an optional .env file, an optional
// config.yaml in the working directory and WEATHERSTREAM_* variables. When
// WEATHERSTREAM_CONFIG_FILE is set, that file is read instead and must exist.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.WithField("error", err).Debug("no .env file loaded")
	}

	if path := os.Getenv(FileEnv); path != "" {
		return LoadFile(filepath.Dir(path), filepath.Base(path))
	}

	cfg := &AppConfig{}
	if err := fig.Load(cfg, fig.AllowNoFile(), fig.UseEnv(EnvPrefix)); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile is like Load but reads the named file from dir, which must exist.
func LoadFile(dir, file string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := fig.Load(cfg, fig.Dirs(dir), fig.File(file), fig.UseEnv(EnvPrefix)); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills defaults for unset keys, checks the struct rules and fills
// backend-dependent defaults.
func (c *AppConfig) Validate() error {
	if c.Weather.ForecastDays == nil {
		c.Weather.ForecastDays = ptr(DefaultForecastDays)
	}
	if c.Publisher.MaxQueueDepth == nil {
		c.Publisher.MaxQueueDepth = ptr(int64(DefaultMaxQueueDepth))
	}
	if c.History.MaxRuns == nil {
		c.History.MaxRuns = ptr(DefaultHistoryRuns)
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Secrets.Backend == "azure" {
		if c.Secrets.VaultAddress == "" {
			c.Secrets.VaultAddress = DefaultVaultAddress
		}
		if err := validate.Var(c.Secrets.VaultAddress, "url"); err != nil {
			return fmt.Errorf("invalid secrets vault address %q: %w", c.Secrets.VaultAddress, err)
		}
	}

	switch c.Publisher.Backend {
	case "eventhub":
		if c.Publisher.Namespace == "" {
			c.Publisher.Namespace = DefaultEventHubNamespace
		}
		if c.Publisher.Name == "" {
			c.Publisher.Name = DefaultEventHubName
		}
	case "kinesis":
		if c.Publisher.Name == "" {
			return fmt.Errorf("publisher name (kinesis stream) is required")
		}
	case "sns":
		if c.Publisher.Name == "" {
			return fmt.Errorf("publisher name (sns topic arn) is required")
		}
	case "redis":
		if err := validate.Var(c.Publisher.Namespace, "required,url"); err != nil {
			return fmt.Errorf("publisher namespace (redis url) is invalid: %w", err)
		}
		if c.Publisher.Name == "" {
			c.Publisher.Name = DefaultRedisQueueKey
		}
	}

	if (c.Publisher.Backend == "kinesis" || c.Publisher.Backend == "sns" || c.Secrets.Backend == "aws") &&
		c.AWS.Region == "" {
		return fmt.Errorf("aws region is required")
	}

	if c.Publisher.PartitionKey == "" {
		c.Publisher.PartitionKey = c.Weather.Location
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
