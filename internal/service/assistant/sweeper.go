package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultSweepSchedule = "@every 30m"

// StartAssetSweeper deletes remote assets that outlived their retention, for
// instance when a request died before its own cleanup ran. The scheduler
// stops when ctx is done.
func (s *Service) StartAssetSweeper(ctx context.Context, schedule string) (*cron.Cron, error) {
	if s.ledger == nil || s.files == nil {
		return nil, errors.New("asset sweeper needs a ledger and a file store")
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.Default())),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(schedule, func() {
		if n, err := s.sweepExpiredAssets(ctx, time.Now()); err != nil {
			log.Printf("sweep remote assets error: %v", err)
		} else if n > 0 {
			log.Printf("swept %d remote assets", n)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule asset sweeper %q: %w", schedule, err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}

// sweepExpiredAssets returns how many assets were deleted.
func (s *Service) sweepExpiredAssets(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.ledger.Expired(ctx, now)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, rec := range expired {
		if err := s.uploader.remove(ctx, rec.Name); err != nil {
			log.Printf("sweep asset %s failed: %v", rec.Name, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
