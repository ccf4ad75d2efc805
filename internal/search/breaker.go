package search

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrUnavailable is returned while the breaker is open
var ErrUnavailable = eris.New("search: temporarily unavailable")

// IsClientError reports whether Meilisearch rejected the request itself with a 4xx
func IsClientError(err error) bool {
	var apiErr *meilisearch.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError
}

// Backend is the query side of SearchClient
type Backend interface {
	Search(params FilterParams) (*SearchResult, error)
}

// CircuitBreaker stops calling the search backend after repeated failures
type CircuitBreaker struct {
	backend          Backend
	failureThreshold int
	resetTimeout     time.Duration

	failures            int
	totalRequests       int
	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time
	now                 func() time.Time

	mutex sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker around backend
func NewCircuitBreaker(backend Backend, failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	return &CircuitBreaker{
		backend:          backend,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// Search forwards to the backend unless the breaker is open
func (cb *CircuitBreaker) Search(params FilterParams) (*SearchResult, error) {
	if !cb.CanProceed() {
		return nil, ErrUnavailable
	}

	result, err := cb.backend.Search(params)
	if IsClientError(err) {
		// The backend answered, only the query was bad
		cb.RecordSuccess()
		return nil, err
	}
	if err != nil {
		cb.RecordFailure()
		return nil, err
	}
	cb.RecordSuccess()
	return result, nil
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalRequests++
	cb.consecutiveFailures = 0
}

// RecordFailure records a failed request and opens the breaker at the threshold
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.consecutiveFailures++
	cb.totalRequests++
	cb.lastFailureTime = cb.now()

	if !cb.isOpen && cb.consecutiveFailures >= cb.failureThreshold {
		cb.isOpen = true
		zap.L().Warn("search circuit breaker open",
			zap.Int("consecutive_failures", cb.consecutiveFailures),
			zap.Duration("retry_after", cb.resetTimeout),
		)
	}
}

// CanProceed checks if requests are allowed
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}

	// Half-open after the reset timeout
	if cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
		zap.L().Info("search circuit breaker half-open", zap.Duration("after", cb.resetTimeout))
		cb.isOpen = false
		cb.consecutiveFailures = 0
		return true
	}

	return false
}

// GetStatus returns current circuit breaker status
func (cb *CircuitBreaker) GetStatus() (isOpen bool, failures int, total int) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.isOpen, cb.failures, cb.totalRequests
}
