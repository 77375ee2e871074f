package reminder

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper implements SweepDueReminders; *storage.Store does.
type Sweeper interface {
	SweepDueReminders(ctx context.Context, from, to time.Time) (int, error)
}

// Worker periodically queues reminders for appointments starting inside the
// lead window ahead of now. The window is wider than the poll interval, and
// the store marks reminded appointments, so sweeps overlap without
// double-sending.
type Worker struct {
	store    Sweeper
	logger   *slog.Logger
	interval time.Duration
	leadFrom time.Duration
	leadTo   time.Duration
}

type WorkerConfig struct {
	Interval time.Duration
	LeadFrom time.Duration
	LeadTo   time.Duration
}

func NewWorker(store Sweeper, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.LeadFrom <= 0 {
		cfg.LeadFrom = 24 * time.Hour
	}
	if cfg.LeadTo <= cfg.LeadFrom {
		cfg.LeadTo = cfg.LeadFrom + 4*time.Hour
	}
	return &Worker{
		store:    store,
		logger:   logger,
		interval: cfg.Interval,
		leadFrom: cfg.LeadFrom,
		leadTo:   cfg.LeadTo,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx, time.Now())
		}
	}
}

func (w *Worker) sweep(ctx context.Context, now time.Time) {
	from := now.Add(w.leadFrom)
	to := now.Add(w.leadTo)
	queued, err := w.store.SweepDueReminders(ctx, from, to)
	if err != nil {
		w.logger.Error("reminder sweep failed", "err", err)
		return
	}
	if queued > 0 {
		w.logger.Info("reminders queued", "count", queued)
	}
}
