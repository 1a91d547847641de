package logging

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

// New returns a logrus logger writing to out at the given level.
// format is either "json" or "text".
func New(level, format string, out io.Writer) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	l := log.New()
	l.SetOutput(out)
	l.SetLevel(lvl)

	switch format {
	case "json", "":
		l.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	case "text":
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return l, nil
}

// WithService returns the base entry every component logs through.
func WithService(l *log.Logger, service string) *log.Entry {
	return l.WithField("service", service)
}
