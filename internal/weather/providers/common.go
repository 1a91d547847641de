package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
)

// maxBodyBytes caps how much of an upstream response is read into memory.
const maxBodyBytes = 4 << 20

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

var (
	// ErrCircuitOpen is returned while the circuit breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrMissingAPIKey is returned when a call is attempted without a key.
	ErrMissingAPIKey = errors.New("weather api key is empty")

	errInvalidConfig = errors.New("invalid retry configuration")
)

// APIError is returned for non-success responses. Its message is the same
// diagnostic the upstream call would otherwise have produced in place of a
// payload: status code followed by the response body.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Error: %d, %s", e.StatusCode, e.Body)
}

// newRetryClient builds the retrying HTTP client. Retries are opt-in: with
// RetryMax at zero every call is a single attempt.
func newRetryClient(cfg HTTPClientConfig) (*retryablehttp.Client, error) {
	if cfg.RetryMax < 0 || cfg.RetryWaitMin < 0 || cfg.RetryWaitMax < cfg.RetryWaitMin {
		return nil, errInvalidConfig
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	// hand the final response back instead of a generic "giving up" error so
	// the status and body reach the caller
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc, nil
}

// newCircuitBreaker trips after more than five consecutive failures. Only
// transport errors, 5xx and 429 count as failures: any other rejection means
// the upstream is answering.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         name,
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: upstreamHealthy,
	})
}

func upstreamHealthy(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// doRequest executes a GET through the circuit breaker and returns the body of
// a successful response. Non-2xx responses come back as *APIError.
func doRequest(ctx context.Context, client *retryablehttp.Client, cb *gobreaker.CircuitBreaker,
	endpoint string,
) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response body: %w", readErr)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &APIError{
				Endpoint:   req.URL.Path,
				StatusCode: resp.StatusCode,
				Body:       string(body),
			}
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}
