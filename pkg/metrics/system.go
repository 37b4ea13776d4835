package metrics

import (
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"
)

// SystemSnapshot is a point-in-time host resource view for the dashboard.
type SystemSnapshot struct {
	CpuPercent  float64 `json:"cpu_percent"`
	MemPercent  float64 `json:"mem_percent"`
	MemUsedMB   uint64  `json:"mem_used_mb"`
	MemTotalMB  uint64  `json:"mem_total_mb"`
	Load1       float64 `json:"load1"`
	CollectedAt int64   `json:"collected_at"`
}

func CollectSystem() SystemSnapshot {
	snap := SystemSnapshot{CollectedAt: time.Now().Unix()}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snap.CpuPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemPercent = vm.UsedPercent
		snap.MemUsedMB = vm.Used / 1024 / 1024
		snap.MemTotalMB = vm.Total / 1024 / 1024
	}
	if avg, err := load.Avg(); err == nil {
		snap.Load1 = avg.Load1
	}
	return snap
}
