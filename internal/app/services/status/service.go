package status

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/lucasmieiro/finterm/pkg/logger"
)

// Snapshot is a point-in-time process and host overview for /api/status.
type Snapshot struct {
	UptimeSeconds     float64 `json:"uptime_seconds"`
	Goroutines        int     `json:"goroutines"`
	HeapAllocBytes    uint64  `json:"heap_alloc_bytes"`
	CPUCores          int     `json:"cpu_cores"`
	HostMemoryUsedPct float64 `json:"host_memory_used_pct"`
}

// Service reports process and host health.
type Service struct {
	started time.Time
	log     *logger.Logger
}

// New constructs a status service anchored at the current time.
func New(log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("status")
	}
	return &Service{started: time.Now(), log: log}
}

// Snapshot gathers the overview. Host probes are best effort; failures leave
// the corresponding fields zeroed.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snap := Snapshot{
		UptimeSeconds:  time.Since(s.started).Seconds(),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: memStats.HeapAlloc,
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPUCores = cores
	} else {
		s.log.WithError(err).Debug("cpu count probe failed")
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.HostMemoryUsedPct = vm.UsedPercent
	} else {
		s.log.WithError(err).Debug("host memory probe failed")
	}
	return snap
}
