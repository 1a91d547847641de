// Package app assembles the weather pipeline from its configuration.
package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/i474232898/weather-event-streamer/internal/config"
	"github.com/i474232898/weather-event-streamer/internal/publisher"
	"github.com/i474232898/weather-event-streamer/internal/secrets"
	"github.com/i474232898/weather-event-streamer/internal/store"
	"github.com/i474232898/weather-event-streamer/internal/weather"
	"github.com/i474232898/weather-event-streamer/internal/weather/providers"
)

// ServiceName tags every log entry and the health endpoint.
const ServiceName = "weather-event-streamer"

// NewService builds the weather.Service described by cfg. Secret sessions and
// publishers are opened by the service on each run.
func NewService(cfg *config.AppConfig, logger *log.Entry) (*weather.Service, *store.MemoryStore, error) {
	source, err := providers.NewWeatherAPIClient(cfg.Weather.BaseURL, providers.HTTPClientConfig{
		Timeout:      cfg.Weather.Timeout,
		RetryMax:     cfg.Weather.RetryMax,
		RetryWaitMin: cfg.Weather.RetryWaitMin,
		RetryWaitMax: cfg.Weather.RetryWaitMax,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create weather api client: %w", err)
	}

	history := store.NewMemoryStore(*cfg.History.MaxRuns, cfg.History.MaxAge)

	svc := weather.NewService(
		source,
		SecretOpener(cfg),
		PublisherOpener(cfg, logger),
		history,
		Settings(cfg),
		logger,
	)
	return svc, history, nil
}

// Settings maps the configuration onto per-run pipeline settings.
func Settings(cfg *config.AppConfig) weather.Settings {
	return weather.Settings{
		VaultAddress:  cfg.Secrets.VaultAddress,
		SecretName:    cfg.Secrets.APIKeyName,
		Location:      cfg.Weather.Location,
		ForecastDays:  *cfg.Weather.ForecastDays,
		PartialPolicy: weather.PartialPolicy(cfg.Pipeline.PartialPolicy),
	}
}

// SecretOpener opens a session on the configured secret store backend.
func SecretOpener(cfg *config.AppConfig) weather.SecretOpener {
	backend := cfg.Secrets.Backend
	opts := secrets.Options{Region: cfg.AWS.Region}
	return func(ctx context.Context) (weather.SecretSession, error) {
		return secrets.Open(ctx, backend, opts)
	}
}

// PublisherOpener opens a publisher on the configured streaming destination.
func PublisherOpener(cfg *config.AppConfig, logger *log.Entry) weather.PublisherOpener {
	dest := Destination(cfg)
	return func(ctx context.Context) (weather.Publisher, error) {
		return publisher.Open(ctx, dest, logger.WithField("component", "publisher"))
	}
}

// Destination maps the configuration onto a publisher destination.
func Destination(cfg *config.AppConfig) publisher.Destination {
	return publisher.Destination{
		Backend:       cfg.Publisher.Backend,
		Namespace:     cfg.Publisher.Namespace,
		Name:          cfg.Publisher.Name,
		PartitionKey:  cfg.Publisher.PartitionKey,
		MaxQueueDepth: *cfg.Publisher.MaxQueueDepth,
		Region:        cfg.AWS.Region,
	}
}
