package publisher

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"
)

// LogPublisher writes events to the application log. Meant for local runs
// without a streaming endpoint.
type LogPublisher struct {
	logger *log.Entry
}

func NewLogPublisher(logger *log.Entry) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, payload []byte) error {
	p.logger.WithField("event", json.RawMessage(payload)).Info("weather event")
	return nil
}

func (p *LogPublisher) Close(context.Context) error { return nil }

func (p *LogPublisher) Destination() string { return BackendLog }
