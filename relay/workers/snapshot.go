package workers

import (
	"context"
	"log/slog"
	"time"

	"neochat/contract"
)

// SnapshotWorker drives the periodic snapshot-and-truncate cycle. A
// failed cycle keeps the log in memory and simply waits for the next
// regular tick; there is no early reschedule.
type SnapshotWorker struct {
	log      *slog.Logger
	relay    contract.IRelay
	interval time.Duration
}

func NewSnapshotWorker(log *slog.Logger, relay contract.IRelay, interval time.Duration) *SnapshotWorker {
	return &SnapshotWorker{log: log, relay: relay, interval: interval}
}

func (w *SnapshotWorker) Run(ctx context.Context) error {
	w.log.Info("Starting snapshot worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			path, err := w.relay.Snapshot()
			if err != nil {
				w.log.Error("Scheduled snapshot failed, retrying next cycle", "error", err)
				continue
			}
			w.log.Info("Scheduled snapshot complete", "path", path)
		}
	}
}
