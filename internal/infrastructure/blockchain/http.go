package blockchain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"paywatch.backend/internal/domain/entities"
	"paywatch.backend/pkg/logger"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	maxResponseBytes   = 4 << 20
)

// newProviderBreaker builds the circuit breaker shared by provider clients.
// Rate-limited or dying explorers trip it after a burst of consecutive
// failures so a whole scan batch does not burn its cycle on a dead API.
func newProviderBreaker(network entities.Network) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(network) + "-provider",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "provider circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// doGet performs a GET through the breaker and returns the response body.
// Any transport failure, non-2xx status or oversized body is a provider
// failure; classification into ProviderError is done by the caller, which
// knows the operation name.
func doGet(ctx context.Context, client *http.Client, breaker *gobreaker.CircuitBreaker, url string, headers map[string]string) ([]byte, error) {
	body, err := breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}

		return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}
