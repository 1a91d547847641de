package publisher

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/aws/aws-sdk-go/service/kinesis/kinesisiface"
)

// kinesisMaxRecordBytes is the per-record data limit of a Kinesis stream.
const kinesisMaxRecordBytes = 1 << 20

// KinesisPublisher puts each event as a single-record batch on a Kinesis stream.
type KinesisPublisher struct {
	client       kinesisiface.KinesisAPI
	stream       string
	partitionKey string
	destination  string
}

func openKinesis(_ context.Context, d Destination) (*KinesisPublisher, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(d.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return newKinesisPublisher(kinesis.New(sess), d), nil
}

func newKinesisPublisher(client kinesisiface.KinesisAPI, d Destination) *KinesisPublisher {
	key := d.PartitionKey
	if key == "" {
		key = d.Name
	}
	return &KinesisPublisher{
		client:       client,
		stream:       d.Name,
		partitionKey: key,
		destination:  d.String(),
	}
}

func (p *KinesisPublisher) Publish(ctx context.Context, payload []byte) error {
	if len(payload) > kinesisMaxRecordBytes {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	out, err := p.client.PutRecordsWithContext(ctx, &kinesis.PutRecordsInput{
		StreamName: aws.String(p.stream),
		Records: []*kinesis.PutRecordsRequestEntry{{
			Data:         payload,
			PartitionKey: aws.String(p.partitionKey),
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	if aws.Int64Value(out.FailedRecordCount) > 0 {
		var code, msg string
		if len(out.Records) > 0 && out.Records[0] != nil {
			code = aws.StringValue(out.Records[0].ErrorCode)
			msg = aws.StringValue(out.Records[0].ErrorMessage)
		}
		return fmt.Errorf("%w: %s: %s", ErrRejected, code, msg)
	}
	return nil
}

// Close is a no-op; the AWS SDK client holds no per-publisher resources.
func (p *KinesisPublisher) Close(context.Context) error {
	return nil
}

func (p *KinesisPublisher) Destination() string {
	return p.destination
}
