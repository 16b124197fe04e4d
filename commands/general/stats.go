package general

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// hostStats is the resource usage shown by /bot_metadata
type hostStats struct {
	RSS              uint64
	CPUPercent       float64
	SystemMemPercent float64
	Cores            int
	Platform         string
}

func collectStats(ctx context.Context) (hostStats, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return hostStats{}, fmt.Errorf("inspect process: %w", err)
	}
	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return hostStats{}, fmt.Errorf("process memory: %w", err)
	}
	cpuPercent, err := proc.CPUPercentWithContext(ctx)
	if err != nil {
		return hostStats{}, fmt.Errorf("process cpu: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return hostStats{}, fmt.Errorf("system memory: %w", err)
	}

	stats := hostStats{
		RSS:              memInfo.RSS,
		CPUPercent:       cpuPercent,
		SystemMemPercent: vm.UsedPercent,
	}
	// cores and platform are cosmetic, leave them empty when unavailable
	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		stats.Cores = cores
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		stats.Platform = fmt.Sprintf("%s (%s)", info.Platform, info.PlatformFamily)
	}
	return stats, nil
}

func (h hostStats) memory() string {
	return fmt.Sprintf("%.1f MiB (system %.1f%%)", float64(h.RSS)/1024/1024, h.SystemMemPercent)
}

func (h hostStats) cpu() string {
	if h.Cores > 0 {
		return fmt.Sprintf("%.1f%% of %d cores", h.CPUPercent, h.Cores)
	}
	return fmt.Sprintf("%.1f%%", h.CPUPercent)
}
