package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
)

type awsSession struct {
	newClient func(endpoint string) secretsmanageriface.SecretsManagerAPI
	closed    bool
}

func openAWS(_ context.Context, region string) (*awsSession, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return &awsSession{
		newClient: func(endpoint string) secretsmanageriface.SecretsManagerAPI {
			if endpoint == "" {
				return secretsmanager.New(sess)
			}
			return secretsmanager.New(sess, aws.NewConfig().WithEndpoint(endpoint))
		},
	}, nil
}

// GetSecret reads the current string value of name. A non-empty vaultAddress
// overrides the Secrets Manager endpoint.
func (s *awsSession) GetSecret(ctx context.Context, vaultAddress, name string) (string, error) {
	if s.closed {
		return "", errors.New("secret session is closed")
	}

	out, err := s.newClient(vaultAddress).GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", classifyAWSError(name, err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return "", fmt.Errorf("%w: %s has no string value", ErrNotFound, name)
	}
	return *out.SecretString, nil
}

func (s *awsSession) Close() error {
	s.closed = true
	return nil
}

func classifyAWSError(name string, err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case secretsmanager.ErrCodeResourceNotFoundException:
			return fmt.Errorf("%w: %s: %w", ErrNotFound, name, err)
		case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException":
			return fmt.Errorf("%w: %s: %w", ErrUnauthorized, name, err)
		}
	}
	return fmt.Errorf("failed to get secret %s: %w", name, err)
}
