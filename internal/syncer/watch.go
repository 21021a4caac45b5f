package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

// Watch runs a sync immediately and then every interval until ctx is done.
// Runs never overlap; a failed run is logged and the next tick tries again.
func (s *Syncer) Watch(ctx context.Context, interval time.Duration, opts Options) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	s.logger.Info("starting scheduler", "interval", interval)

	_, err := scheduler.Every(interval).Do(func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Run(ctx, opts); err != nil {
			s.logger.Error("scheduled sync failed", "error", err, "next_in", interval)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()

	s.logger.Info("scheduler stopped")
	return nil
}
