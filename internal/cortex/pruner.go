package cortex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule is the background pruning cadence, expressed as
// a standard five-field cron schedule rather than a bare interval.
const DefaultPruneSchedule = "0 * * * *"

// RunPruner schedules PrunePatterns on schedule (a standard cron
// expression; empty falls back to DefaultPruneSchedule) and blocks
// until ctx is cancelled, at which point the cron scheduler drains its
// running job before returning. Intended to be started on its own
// goroutine by the process wiring code.
func (s *Service) RunPruner(ctx context.Context, schedule string, minWeight float64, maxAge time.Duration) error {
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slogPrintfAdapter{})))
	_, err := c.AddFunc(schedule, func() {
		if n, err := s.PrunePatterns(ctx, minWeight, maxAge); err != nil {
			slog.Warn("cortex pattern prune failed", "error", err)
		} else if n > 0 {
			slog.Info("cortex pattern prune completed", "pruned", n)
		}
	})
	if err != nil {
		return fmt.Errorf("cortex: invalid prune schedule %q: %w", schedule, err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// slogPrintfAdapter routes cron's Printf-style verbose logging through
// log/slog, matching this module's ambient logging rather than cron's
// own log.Logger default.
type slogPrintfAdapter struct{}

func (slogPrintfAdapter) Printf(format string, args ...interface{}) {
	slog.Debug(fmt.Sprintf(format, args...))
}
