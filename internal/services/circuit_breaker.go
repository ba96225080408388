package services

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/waiver-ranker/internal/providers"
)

// Upstreams that get their own breaker
var breakerServices = []string{
	providers.ProviderESPN,
	providers.ProviderWeather,
	providers.ProviderSleeper,
	providers.ProviderDefense,
	providers.ProviderNews,
}

type CircuitBreakerService struct {
	breakers map[string]*gobreaker.CircuitBreaker
	logger   *logrus.Logger
}

// NewCircuitBreakerService creates one breaker per upstream. A breaker
// trips once at least threshold requests were seen and 60% failed.
func NewCircuitBreakerService(threshold int, timeout time.Duration, logger *logrus.Logger) *CircuitBreakerService {
	if threshold < 1 {
		threshold = 1
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker, len(breakerServices))
	for _, service := range breakerServices {
		breakers[service] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        service,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= uint32(threshold) && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"component": "circuit_breaker",
					"service":   name,
					"from":      from.String(),
					"to":        to.String(),
				}).Info("Circuit breaker state changed")
			},
		})
	}

	return &CircuitBreakerService{
		breakers: breakers,
		logger:   logger,
	}
}

// Execute wraps a function call with circuit breaker protection
func (cb *CircuitBreakerService) Execute(service string, fn func() (interface{}, error)) (interface{}, error) {
	breaker, exists := cb.breakers[service]
	if !exists {
		cb.logger.WithFields(logrus.Fields{
			"component": "circuit_breaker",
			"service":   service,
		}).Warn("No circuit breaker found for service, executing without protection")
		return fn()
	}

	return breaker.Execute(fn)
}

// GetState returns the current state of a circuit breaker
func (cb *CircuitBreakerService) GetState(service string) gobreaker.State {
	if breaker, exists := cb.breakers[service]; exists {
		return breaker.State()
	}
	return gobreaker.StateClosed
}

// States reports every breaker's state by service name
func (cb *CircuitBreakerService) States() map[string]string {
	states := make(map[string]string, len(cb.breakers))
	for name, breaker := range cb.breakers {
		states[name] = breaker.State().String()
	}
	return states
}
