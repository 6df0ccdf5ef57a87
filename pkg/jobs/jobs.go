package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// refreshTimeout bounds a single run so a slow backend cannot stack runs
const refreshTimeout = 2 * time.Minute

// Refresher is a named background task
type Refresher struct {
	Name string
	Run  func(ctx context.Context) error
}

// SetupInBackground schedules every refresher at the given interval. The
// first run waits one interval since the server loads on startup.
func SetupInBackground(every time.Duration, refreshers ...Refresher) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	for _, r := range refreshers {
		if r.Run == nil {
			continue
		}
		if _, err := s.Every(every).WaitForSchedule().Do(run, r); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", r.Name, err)
		}
	}

	slog.Info("Jobs scheduled. Scheduler not running yet.", slog.Int("jobs", len(s.Jobs())), slog.Duration("every", every))
	return s, nil
}

func run(r Refresher) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	if err := r.Run(ctx); err != nil {
		slog.Error("Refresh failed", slog.String("job", r.Name), slog.Any("error", err))
		return
	}
	slog.Debug("Refresh finished", slog.String("job", r.Name), slog.Duration("took", time.Since(start)))
}
