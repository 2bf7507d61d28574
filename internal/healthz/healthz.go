// Package healthz implements the server-health snapshot served by the MCP
// get_server_health tool (SPEC_FULL.md §4): a snapshot of host resource usage, grounded on the
// teacher's pervasive *_health.go pattern (GetHealthStatus/IsHealthy
// pairs) and its gopsutil-based LoadHistoryTracker in load_history.go.
package healthz

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/cwsl/sdrctl/internal/worker"
)

// Status is the coarse health verdict, mirroring the teacher's
// "ok"/"warning"/"critical" load status strings.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Snapshot is the payload returned by the get_server_health MCP tool.
type Snapshot struct {
	Timestamp        time.Time
	CPUCores         int
	CPUPercent       float64
	MemUsedPercent   float64
	Load1, Load5, Load15 float64
	WorkerQueueDepth int
	WorkerExecuted   int64
	Status           Status
}

// Collect takes one snapshot of host resource usage plus the shared
// worker's queue diagnostics.
func Collect(w *worker.Worker) Snapshot {
	s := Snapshot{Timestamp: time.Now(), Status: StatusOK}

	if cores, err := cpu.Counts(true); err == nil {
		s.CPUCores = cores
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemUsedPercent = vm.UsedPercent
	}
	if avg, err := load.Avg(); err == nil {
		s.Load1, s.Load5, s.Load15 = avg.Load1, avg.Load5, avg.Load15
	}

	_, executed := w.Stats()
	s.WorkerExecuted = executed
	s.WorkerQueueDepth = w.QueueDepth()

	switch {
	case s.CPUCores > 0 && s.Load1/float64(s.CPUCores) > 2.0:
		s.Status = StatusCritical
	case s.CPUCores > 0 && s.Load1/float64(s.CPUCores) > 1.0:
		s.Status = StatusWarning
	case s.MemUsedPercent > 95:
		s.Status = StatusCritical
	case s.MemUsedPercent > 85:
		s.Status = StatusWarning
	}

	return s
}
