package crawlers

import (
	"sync"
	"time"

	"github.com/RecoveryAshes/SiteMapGen/internal/utils"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源监控器
// 职责: 监控可用内存和CPU负载,为每轮并发计算worker上限,
// 资源紧张时对配置的并发数做渐进式降级
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 系统总内存(字节)
	totalMemory uint64

	// 缓存的计算结果,避免每轮都做系统调用
	cachedMaxWorkers int
	lastCacheTime    time.Time
	cacheMu          sync.RWMutex
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	MaxWorkersLimit   int   // 配置的worker并发上限
	WorkerMemoryUsage int64 // 单个worker平均内存消耗(字节)
	CPULoadThreshold  int   // CPU负载阈值(%)
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.WorkerMemoryUsage == 0 {
		config.WorkerMemoryUsage = 16 * 1024 * 1024 // 16MB
	}
	if config.CPULoadThreshold == 0 {
		config.CPULoadThreshold = 90
	}

	var totalMem uint64
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		utils.Warnf("获取系统内存失败,使用默认值: %v", err)
		totalMem = 4 * 1024 * 1024 * 1024 // 默认4GB
	} else {
		totalMem = vmStat.Total
	}

	return &ResourceMonitor{
		config:      config,
		totalMemory: totalMem,
	}
}

// CalculateMaxWorkers 计算当前资源条件下允许的worker数
// 结果缓存1秒,至少返回1
func (rm *ResourceMonitor) CalculateMaxWorkers() int {
	rm.cacheMu.RLock()
	if time.Since(rm.lastCacheTime) < time.Second && rm.cachedMaxWorkers > 0 {
		cached := rm.cachedMaxWorkers
		rm.cacheMu.RUnlock()
		return cached
	}
	rm.cacheMu.RUnlock()

	maxWorkers := rm.config.MaxWorkersLimit
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	// 按可用内存降级
	vmStat, err := mem.VirtualMemory()
	if err == nil {
		byMemory := int(vmStat.Available / uint64(rm.config.WorkerMemoryUsage))
		if byMemory < 1 {
			byMemory = 1
		}
		if byMemory < maxWorkers {
			utils.Warnf("可用内存不足 (%.0f MB), worker数降级: %d -> %d",
				float64(vmStat.Available)/(1024*1024), maxWorkers, byMemory)
			maxWorkers = byMemory
		}
	}

	// CPU负载超过阈值时减半
	percents, err := cpu.Percent(0, false)
	if err == nil && len(percents) > 0 && int(percents[0]) >= rm.config.CPULoadThreshold {
		halved := maxWorkers / 2
		if halved < 1 {
			halved = 1
		}
		utils.Warnf("CPU负载过高 (%.1f%%), worker数降级: %d -> %d", percents[0], maxWorkers, halved)
		maxWorkers = halved
	}

	rm.cacheMu.Lock()
	rm.cachedMaxWorkers = maxWorkers
	rm.lastCacheTime = time.Now()
	rm.cacheMu.Unlock()

	return maxWorkers
}
