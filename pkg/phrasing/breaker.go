package phrasing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/firstaid/internal/logging"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/ports"
	"github.com/sony/gobreaker"
)

// ErrBackendUnavailable is returned while the breaker is open.
var ErrBackendUnavailable = errors.New("language model temporarily unavailable")

// BreakerConfig tunes the circuit breaker around a Completer.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips after most of the last calls failed, then probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "llm",
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Breaker wraps a Completer with a circuit breaker so an unreachable model
// costs one fast fallback per turn instead of one full timeout.
type Breaker struct {
	next ports.Completer
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next. A nil logger discards state changes.
func NewBreaker(next ports.Completer, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = logging.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// The caller giving up is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{next: next, cb: cb}
}

// Complete implements ports.Completer.
func (b *Breaker) Complete(ctx context.Context, system string, history []domain.Turn, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, system, history, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", ErrBackendUnavailable
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State reports the breaker state, for health endpoints.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
