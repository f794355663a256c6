package workers

import (
	"context"
	"log/slog"
	"time"

	"neochat/contract"
)

// ReaperWorker evicts polling sessions that have been idle for longer
// than the timeout. The scan interval is short relative to the
// timeout so evictions land close to the deadline.
type ReaperWorker struct {
	log      *slog.Logger
	relay    contract.IRelay
	interval time.Duration
	timeout  time.Duration
}

func NewReaperWorker(log *slog.Logger, relay contract.IRelay, interval, timeout time.Duration) *ReaperWorker {
	return &ReaperWorker{log: log, relay: relay, interval: interval, timeout: timeout}
}

func (w *ReaperWorker) Run(ctx context.Context) error {
	w.log.Info("Starting session reaper", "interval", w.interval, "timeout", w.timeout)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, name := range w.relay.EvictIdle(w.timeout) {
				w.log.Warn("Session timed out", "name", name)
			}
		}
	}
}
