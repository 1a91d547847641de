// Package secrets retrieves the weather API key from a managed secret store.
// Sessions are opened once per pipeline invocation and closed when it ends.
package secrets

import (
	"context"
	"errors"
	"fmt"
)

const (
	BackendAzure = "azure"
	BackendAWS   = "aws"
	BackendEnv   = "env"
)

var (
	// ErrUnauthorized is returned when the caller may not read the secret.
	ErrUnauthorized = errors.New("secret access denied")
	// ErrNotFound is returned when the secret does not exist or is empty.
	ErrNotFound = errors.New("secret not found")
)

// Session is a short-lived handle on a secret store.
type Session interface {
	GetSecret(ctx context.Context, vaultAddress, name string) (string, error)
	Close() error
}

// Options carries backend-specific settings.
type Options struct {
	// Region is the AWS region for the aws backend.
	Region string
	// Lookup resolves variables for the env backend; os.LookupEnv when nil.
	Lookup func(string) (string, bool)
}

// Open acquires a new Session for the given backend.
func Open(ctx context.Context, backend string, opts Options) (Session, error) {
	switch backend {
	case BackendAzure:
		s, err := openAzure(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendAWS:
		s, err := openAWS(ctx, opts.Region)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendEnv:
		return newEnvSession(opts.Lookup), nil
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", backend)
	}
}
