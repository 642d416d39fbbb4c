package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"equipment_lending/lending"
)

// Sweeper recomputes every item's cached Available flag.
type Sweeper interface {
	RefreshAllAvailability(ctx context.Context) (refreshed, failed int, err error)
}

type SweepObserver interface {
	ObserveSweep(refreshed, failed int)
}

// AvailabilityRefresher runs the sweep on a cron schedule so the flag also
// flips when loans start or lapse without any write.
type AvailabilityRefresher struct {
	sweeper  Sweeper
	logger   lending.Logger
	observer SweepObserver
	timeout  time.Duration

	cron *cron.Cron
}

func NewAvailabilityRefresher(sweeper Sweeper, logger lending.Logger, observer SweepObserver) *AvailabilityRefresher {
	return &AvailabilityRefresher{
		sweeper:  sweeper,
		logger:   logger,
		observer: observer,
		timeout:  time.Minute,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules the sweep, e.g. "@every 5m" or "*/10 * * * *".
func (r *AvailabilityRefresher) Start(spec string) error {
	if _, err := r.cron.AddFunc(spec, func() { r.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("availability refresh schedule %q: %w", spec, err)
	}
	r.cron.Start()
	r.logger.Info("availability refresher started", "schedule", spec)
	return nil
}

// Stop waits for a running sweep to finish.
func (r *AvailabilityRefresher) Stop() {
	<-r.cron.Stop().Done()
}

func (r *AvailabilityRefresher) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	refreshed, failed, err := r.sweeper.RefreshAllAvailability(ctx)
	if r.observer != nil {
		r.observer.ObserveSweep(refreshed, failed)
	}
	if err != nil {
		r.logger.Error("availability sweep failed", "refreshed", refreshed, "failed", failed, "error", err.Error())
		return
	}
	r.logger.Debug("availability sweep done", "refreshed", refreshed, "failed", failed)
}
