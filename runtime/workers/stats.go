package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"chat-relay/domain/event"
)

// StatsSources exposes the counters the stats sweep reports.
type StatsSources struct {
	Connections   func() int
	Conversations func() int
}

// StatsSweep broadcasts server statistics to every connected sink at a
// fixed interval. Best-effort telemetry: collection failures are logged
// and the tick skipped, never treated as fatal.
type StatsSweep struct {
	log      *slog.Logger
	sources  StatsSources
	events   chan event.DomainEvent
	interval time.Duration
}

func NewStatsSweep(log *slog.Logger, sources StatsSources,
	events chan event.DomainEvent, interval time.Duration) *StatsSweep {
	return &StatsSweep{log: log, sources: sources, events: events, interval: interval}
}

func (w *StatsSweep) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := event.ServerStats{
				Connections:   w.sources.Connections(),
				Conversations: w.sources.Conversations(),
				At:            time.Now().UTC(),
			}
			if memInfo, err := proc.MemoryInfo(); err == nil {
				stats.RSSBytes = memInfo.RSS
			} else {
				w.log.Debug("Failed to collect memory stats", "error", err)
			}
			if cpuPercent, err := proc.CPUPercent(); err == nil {
				stats.CPUPercent = cpuPercent
			} else {
				w.log.Debug("Failed to collect cpu stats", "error", err)
			}

			select {
			case w.events <- stats:
			case <-ctx.Done():
				return ctx.Err()
			default:
				w.log.Debug("Stats broadcast skipped, event channel full")
			}
		}
	}
}
