package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/firstaid/internal/logging"
)

// Lister enumerates stored sessions. ports.StateStore satisfies it.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// Sweeper periodically expires idle sessions instead of keeping one timer each.
type Sweeper struct {
	lister   Lister
	expirer  Expirer
	interval time.Duration
	idle     time.Duration
	logger   *slog.Logger
}

// NewSweeper scans every interval and expires sessions idle for at least idle.
func NewSweeper(lister Lister, expirer Expirer, interval, idle time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{
		lister:   lister,
		expirer:  expirer,
		interval: interval,
		idle:     idle,
		logger:   logger,
	}
}

// Sweep runs one pass and returns how many sessions were reset.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ids, err := s.lister.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	reset := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return reset, ctx.Err()
		}
		ok, err := s.expirer.Expire(ctx, id, s.idle)
		if err != nil {
			s.logger.Warn("Idle expiry failed", "session_id", id, "err", err)
			continue
		}
		if ok {
			reset++
		}
	}
	return reset, nil
}

// Run sweeps until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Warn("Idle sweep failed", "err", err)
				continue
			}
			if n > 0 {
				s.logger.Info("Idle sweep reset sessions", "count", n)
			}
		}
	}
}
