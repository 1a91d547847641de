package publisher

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
)

// snsMaxMessageBytes is the SNS message size limit.
const snsMaxMessageBytes = 256 * 1024

// SNSPublisher publishes each event as one message on an SNS topic.
type SNSPublisher struct {
	client      snsiface.SNSAPI
	topicArn    string
	destination string
}

func openSNS(_ context.Context, d Destination) (*SNSPublisher, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(d.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return &SNSPublisher{
		client:      sns.New(sess),
		topicArn:    d.Name,
		destination: d.String(),
	}, nil
}

func (p *SNSPublisher) Publish(ctx context.Context, payload []byte) error {
	if len(payload) > snsMaxMessageBytes {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	msg := string(payload)
	_, err := p.client.PublishWithContext(ctx, &sns.PublishInput{
		Message:  &msg,
		TopicArn: &p.topicArn,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return nil
}

// Close is a no-op; the AWS SDK client holds no per-publisher resources.
func (p *SNSPublisher) Close(context.Context) error {
	return nil
}

func (p *SNSPublisher) Destination() string {
	return p.destination
}
