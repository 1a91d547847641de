package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// secretGetter is the part of *azsecrets.Client the session uses.
type secretGetter interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

type azureSession struct {
	mu        sync.Mutex
	clients   map[string]secretGetter
	newClient func(vaultAddress string) (secretGetter, error)
}

func openAzure(_ context.Context) (*azureSession, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure credential: %w", err)
	}
	return newAzureSession(func(vaultAddress string) (secretGetter, error) {
		return azsecrets.NewClient(vaultAddress, cred, nil)
	}), nil
}

func newAzureSession(newClient func(string) (secretGetter, error)) *azureSession {
	return &azureSession{
		clients:   make(map[string]secretGetter),
		newClient: newClient,
	}
}

// GetSecret reads the latest version of name from the Key Vault at vaultAddress.
func (s *azureSession) GetSecret(ctx context.Context, vaultAddress, name string) (string, error) {
	client, err := s.client(vaultAddress)
	if err != nil {
		return "", err
	}

	// an empty version selects the latest one
	resp, err := client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", classifyAzureError(name, err)
	}
	if resp.Value == nil || *resp.Value == "" {
		return "", fmt.Errorf("%w: %s has no value", ErrNotFound, name)
	}
	return *resp.Value, nil
}

func (s *azureSession) client(vaultAddress string) (secretGetter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clients == nil {
		return nil, errors.New("secret session is closed")
	}
	if c, ok := s.clients[vaultAddress]; ok {
		return c, nil
	}
	c, err := s.newClient(vaultAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to create key vault client for %s: %w", vaultAddress, err)
	}
	s.clients[vaultAddress] = c
	return c, nil
}

// Close drops the vault clients. The Azure SDK pipeline holds no per-client
// connections that need explicit release.
func (s *azureSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = nil
	return nil
}

func classifyAzureError(name string, err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s: %w", ErrUnauthorized, name, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s: %w", ErrNotFound, name, err)
		}
	}
	return fmt.Errorf("failed to get secret %s: %w", name, err)
}
