package game

import (
	"context"
	"time"
)

// RunTicker drives timer-expiry auto-advance. Any connected worker may run
// it; expired-phase advances are transactional and idempotent, so
// overlapping tickers are harmless.
func (e *Engine) RunTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.TimerTick(ctx, now)
		}
	}
}
