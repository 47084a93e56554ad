package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-dashboard/internal/dashboard"
)

const (
	defaultInterval      = 15 * time.Minute
	defaultPurgeInterval = time.Minute
	cityTimeout          = 30 * time.Second
)

// Warmer is the part of the dashboard service the prefetch job drives.
type Warmer interface {
	Overview(ctx context.Context, city string) (dashboard.Overview, error)
}

// Purger drops expired cache entries and reports how many it removed.
type Purger interface {
	Purge() int
}

// Scheduler periodically warms the query cache for configured cities and
// purges expired entries from an in-process cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	warmer    Warmer
	cities    []string
	interval  time.Duration
	logger    *slog.Logger

	purger        Purger
	purgeInterval time.Duration
}

// New creates a new Scheduler.
func New(cities []string, interval time.Duration, warmer Warmer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		warmer:    warmer,
		cities:    cities,
		interval:  interval,
		logger:    logger,
	}
}

// WithPurge registers p to be purged every interval once the scheduler starts.
func (s *Scheduler) WithPurge(p Purger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	s.purger = p
	s.purgeInterval = interval
	return s
}

// Start schedules the prefetch and purge jobs and starts the underlying
// scheduler. The first prefetch happens immediately; the first purge waits
// one interval.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		s.logger.Info("scheduler: no prefetch cities configured")
	} else if _, err := s.scheduler.Every(s.interval).Do(s.RunOnce); err != nil {
		return err
	}

	if s.purger != nil {
		if _, err := s.scheduler.Every(s.purgeInterval).WaitForSchedule().Do(s.PurgeOnce); err != nil {
			return err
		}
	}

	if len(s.scheduler.Jobs()) == 0 {
		s.logger.Info("scheduler: nothing to schedule")
		return nil
	}
	s.scheduler.StartAsync()
	return nil
}

// PurgeOnce removes expired entries from the registered purger and returns
// how many were dropped.
func (s *Scheduler) PurgeOnce() int {
	if s.purger == nil {
		return 0
	}
	removed := s.purger.Purge()
	s.logger.Debug("scheduler: purged expired cache entries", "removed", removed)
	return removed
}

// RunOnce warms every configured city concurrently and waits for all of them.
// It returns how many cities failed.
func (s *Scheduler) RunOnce() int {
	s.logger.Debug("scheduler: running prefetch job", "cities", len(s.cities))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, city := range s.cities {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), cityTimeout)
			defer cancel()

			if _, err := s.warmer.Overview(ctx, city); err != nil {
				s.logger.Warn("scheduler: prefetch failed", "city", city, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.logger.Debug("scheduler: completed prefetch job", "failed", failed)
	return failed
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
