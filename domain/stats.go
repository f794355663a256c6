package domain

import "time"

// ServerStats is a point-in-time view of relay counters.
// TotalMessages counts every sequenced message since startup and
// survives log eviction. Online is always derived from the registry,
// never stored on its own.
type ServerStats struct {
	StartedAt     time.Time
	TotalMessages uint64
	Online        int
}

func (s ServerStats) Uptime(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}
