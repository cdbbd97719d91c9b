package monitoring

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Collector periodically samples system metrics into the Prometheus gauges.
type Collector struct {
	interval time.Duration
	logger   zerolog.Logger
	proc     *process.Process
	stopChan chan struct{}
	done     chan struct{}
}

// NewCollector creates a collector sampling on the given interval.
func NewCollector(interval time.Duration, logger zerolog.Logger) *Collector {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn().Err(err).Msg("Process handle unavailable, falling back to host-wide sampling")
		proc = nil
	}

	return &Collector{
		interval: interval,
		logger:   logger.With().Str("component", "collector").Logger(),
		proc:     proc,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the sampling loop in its own goroutine.
func (c *Collector) Start() {
	go func() {
		defer close(c.done)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopChan:
				return
			}
		}
	}()
}

// Stop terminates the sampling loop and waits for it to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.done
}

func (c *Collector) collect() {
	// Sampling window kept short so a slow collect never overlaps the ticker.
	if c.proc != nil {
		if cpuPercent, err := c.proc.Percent(100 * time.Millisecond); err == nil {
			SetCPUUsage(cpuPercent)
		}
		if memInfo, err := c.proc.MemoryInfo(); err == nil {
			SetMemoryUsage(memInfo.RSS)
		}
	} else {
		// Host-wide numbers are better than no numbers.
		if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
			SetCPUUsage(cpuPercent[0])
		}
		if vmem, err := mem.VirtualMemory(); err == nil {
			SetMemoryUsage(vmem.Used)
		}
	}

	SetGoroutines(runtime.NumGoroutine())
}
