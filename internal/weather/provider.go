package weather

import (
	"context"
	"time"
)

// Source abstracts the upstream weather API (WeatherAPI.com).
// Each call returns either a decoded payload or an error, never both.
type Source interface {
	Current(ctx context.Context, apiKey, location string) (*CurrentResponse, error)
	Forecast(ctx context.Context, apiKey, location string, days int) (*ForecastResponse, error)
	Alerts(ctx context.Context, apiKey, location string) (*AlertsResponse, error)
}

// SecretSession is a per-invocation handle on the secret store.
type SecretSession interface {
	GetSecret(ctx context.Context, vaultAddress, name string) (string, error)
	Close() error
}

// SecretOpener acquires a fresh SecretSession.
type SecretOpener func(ctx context.Context) (SecretSession, error)

// Publisher is a per-invocation handle on the streaming ingestion endpoint.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Close(ctx context.Context) error
	Destination() string
}

// PublisherOpener acquires a fresh Publisher.
type PublisherOpener func(ctx context.Context) (Publisher, error)

// Store is the contract the in-memory run history must satisfy.
type Store interface {
	SaveRun(run RunRecord)
	GetLatest() (RunRecord, error)
	GetRange(from, to time.Time) ([]RunRecord, error)
}
