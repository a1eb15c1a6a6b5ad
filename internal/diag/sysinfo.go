package diag

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/forgelabs/forgemon/pkg/models"
)

// collectSystemInfo snapshots the host environment. Individual stat failures
// leave their fields zeroed rather than failing the snapshot.
func (t *tools) collectSystemInfo(ctx context.Context) models.SystemInfo {
	info := models.SystemInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
		CPUCount:  runtime.NumCPU(),
	}

	if hi, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = hi.Hostname
		info.Platform = hi.Platform
		info.HostUptimeSecs = hi.Uptime
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotalMB = vm.Total / 1024 / 1024
		info.MemoryUsedPct = vm.UsedPercent
	}
	if usage, err := disk.UsageWithContext(ctx, t.basePath); err == nil {
		info.DiskTotalGB = usage.Total / 1024 / 1024 / 1024
		info.DiskUsedPct = usage.UsedPercent
	}
	return info
}
