package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs"
)

const jsonContentType = "application/json"

// eventBatch is the part of *azeventhubs.EventDataBatch the publisher uses.
type eventBatch interface {
	AddEventData(ed *azeventhubs.EventData, options *azeventhubs.AddEventDataOptions) error
	NumEvents() int32
}

type batchProducer interface {
	NewBatch(ctx context.Context, partitionKey string) (eventBatch, error)
	SendBatch(ctx context.Context, batch eventBatch) error
	Close(ctx context.Context) error
}

// hubProducer adapts *azeventhubs.ProducerClient to batchProducer.
type hubProducer struct {
	client *azeventhubs.ProducerClient
}

func (p hubProducer) NewBatch(ctx context.Context, partitionKey string) (eventBatch, error) {
	var opts *azeventhubs.EventDataBatchOptions
	if partitionKey != "" {
		opts = &azeventhubs.EventDataBatchOptions{PartitionKey: &partitionKey}
	}
	return p.client.NewEventDataBatch(ctx, opts)
}

func (p hubProducer) SendBatch(ctx context.Context, batch eventBatch) error {
	b, ok := batch.(*azeventhubs.EventDataBatch)
	if !ok {
		return fmt.Errorf("unexpected batch type %T", batch)
	}
	return p.client.SendEventDataBatch(ctx, b, nil)
}

func (p hubProducer) Close(ctx context.Context) error {
	return p.client.Close(ctx)
}

// EventHubPublisher sends each event as a single-item batch to Azure Event Hubs.
type EventHubPublisher struct {
	producer     batchProducer
	partitionKey string
	destination  string
}

func openEventHub(_ context.Context, d Destination) (*EventHubPublisher, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure credential: %w", err)
	}
	client, err := azeventhubs.NewProducerClient(d.Namespace, d.Name, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create event hub producer: %w", err)
	}
	return &EventHubPublisher{
		producer:     hubProducer{client: client},
		partitionKey: d.PartitionKey,
		destination:  d.String(),
	}, nil
}

func (p *EventHubPublisher) Publish(ctx context.Context, payload []byte) error {
	batch, err := p.producer.NewBatch(ctx, p.partitionKey)
	if err != nil {
		return fmt.Errorf("failed to create event batch: %w", err)
	}

	contentType := jsonContentType
	err = batch.AddEventData(&azeventhubs.EventData{
		Body:        payload,
		ContentType: &contentType,
	}, nil)
	if errors.Is(err, azeventhubs.ErrEventDataTooLarge) {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	if err != nil {
		return fmt.Errorf("failed to add event to batch: %w", err)
	}

	if err := p.producer.SendBatch(ctx, batch); err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return nil
}

func (p *EventHubPublisher) Close(ctx context.Context) error {
	return p.producer.Close(ctx)
}

func (p *EventHubPublisher) Destination() string {
	return p.destination
}
