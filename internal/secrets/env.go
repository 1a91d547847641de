package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// envSession serves secrets from environment variables for local runs. The
// secret "weather-api-key" is read from WEATHER_API_KEY.
type envSession struct {
	lookup func(string) (string, bool)
}

func newEnvSession(lookup func(string) (string, bool)) *envSession {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &envSession{lookup: lookup}
}

func (s *envSession) GetSecret(_ context.Context, _ string, name string) (string, error) {
	key := EnvName(name)
	v, ok := s.lookup(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrNotFound, key)
	}
	return v, nil
}

func (s *envSession) Close() error { return nil }

// EnvName maps a secret name to the variable the env backend reads.
func EnvName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", "/", "_").Replace(name))
}
