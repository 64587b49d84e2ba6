package enforcement

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweep marks every overdue active session expired. Validate also expires
// lazily; the sweep only keeps stored status honest for readers.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	n, err := s.store.ExpireOverdue(ctx, timeNow().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired enforcement sessions", zap.Int("count", n))
	}
	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is done. A non-positive
// interval returns immediately.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("enforcement sweep failed", zap.Error(err))
			}
		}
	}
}
