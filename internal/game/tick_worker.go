package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RunTickWorker advances realtime matches at the configured tick rate until
// ctx is cancelled.
func (mm *MatchManager) RunTickWorker(ctx context.Context) error {
	rate := mm.cfg.TickRate
	if rate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", rate)
	}

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	mm.log.Info("tick worker started", zap.Int("tick_rate", rate))
	for {
		select {
		case <-ctx.Done():
			mm.log.Info("tick worker stopping")
			return nil
		case <-ticker.C:
			mm.TickAll(ctx)
		}
	}
}
