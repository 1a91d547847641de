// Package publisher hands serialized snapshots to a streaming ingestion
// endpoint. Publishers are opened once per pipeline invocation and closed
// when it ends; every Publish call sends exactly one event.
package publisher

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

const (
	BackendEventHub = "eventhub"
	BackendKinesis  = "kinesis"
	BackendSNS      = "sns"
	BackendRedis    = "redis"
	BackendLog      = "log"
)

var (
	// ErrPayloadTooLarge is returned when the event does not fit into a batch.
	ErrPayloadTooLarge = errors.New("payload exceeds size limit")
	// ErrRejected is returned when the endpoint refuses the event.
	ErrRejected = errors.New("event rejected")
)

// Publisher delivers one serialized event per call.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Close(ctx context.Context) error
	Destination() string
}

// Destination identifies where events go. Namespace and Name are interpreted
// per backend:
//
//	eventhub: fully qualified namespace, event hub name
//	kinesis:  unused, stream name
//	sns:      unused, topic ARN
//	redis:    redis URL, list key
//	log:      unused, unused
type Destination struct {
	Backend       string
	Namespace     string
	Name          string
	PartitionKey  string
	MaxQueueDepth int64
	Region        string
}

func (d Destination) String() string {
	switch {
	case d.Namespace != "" && d.Name != "":
		return fmt.Sprintf("%s://%s/%s", d.Backend, d.Namespace, d.Name)
	case d.Name != "":
		return fmt.Sprintf("%s://%s", d.Backend, d.Name)
	default:
		return d.Backend
	}
}

// Open acquires a new Publisher for the destination.
func Open(ctx context.Context, d Destination, logger *log.Entry) (Publisher, error) {
	switch d.Backend {
	case BackendEventHub:
		p, err := openEventHub(ctx, d)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendKinesis:
		p, err := openKinesis(ctx, d)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendSNS:
		p, err := openSNS(ctx, d)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendRedis:
		p, err := openRedis(ctx, d)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendLog:
		return NewLogPublisher(logger), nil
	default:
		return nil, fmt.Errorf("unknown publisher backend %q", d.Backend)
	}
}
