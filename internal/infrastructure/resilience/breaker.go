package resilience

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/sony/gobreaker/v2"
)

// breakerPool hands out one circuit breaker per operation name, built
// lazily on first use. The breaker keeps the classifier it was created
// with; callers are expected to pass the same classifier for a given
// operation every time.
type breakerPool struct {
	mu   sync.Mutex
	byOp map[string]*gobreaker.CircuitBreaker[struct{}]
}

func newBreakerPool() *breakerPool {
	return &breakerPool{byOp: make(map[string]*gobreaker.CircuitBreaker[struct{}])}
}

func (p *breakerPool) get(op string, cfg Config, classify ErrorClassifier) *gobreaker.CircuitBreaker[struct{}] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if breaker, ok := p.byOp[op]; ok {
		return breaker
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        op,
		MaxRequests: cfg.BreakerHalfOpenMaxCalls,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("breaker_state_changed",
				"operation", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	p.byOp[op] = breaker
	return breaker
}

// IsCircuitOpen reports whether err is a breaker rejection, either fully
// open or saturated during half-open probing.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
