package helpers

import (
	"bufio"
	"io"
	"runtime"
	"strconv"
	"strings"
)

// workerMemoryMB is the working-set budget assumed per aggregation worker.
const workerMemoryMB = 256

// RecommendedWorkers sizes the partition worker pool: one worker per CPU,
// capped so that each worker keeps workerMemoryMB of the memory the process
// may use. Fallback when memory cannot be read: CPU count.
func RecommendedWorkers() int {
	return workersFor(runtime.NumCPU(), MemoryBudgetMB())
}

// -----------------------------------------------------------------------------

func workersFor(cpus, memoryMB int) int {
	workers := cpus
	if memoryMB > 0 {
		if byMemory := memoryMB / workerMemoryMB; byMemory < workers {
			workers = byMemory
		}
	}
	if workers < 1 {
		return 1
	}
	return workers
}

// -----------------------------------------------------------------------------

// parseMemTotalMB reads MemTotal from /proc/meminfo content, or 0.
func parseMemTotalMB(r io.Reader) int {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "MemTotal:" {
			if kb, err := strconv.Atoi(fields[1]); err == nil {
				return kb / 1024
			}
		}
	}
	return 0
}

// -----------------------------------------------------------------------------

// parseCgroupLimitMB reads a cgroup memory limit file (v2 memory.max or v1
// memory.limit_in_bytes). "max" and the v1 unlimited sentinel yield 0.
func parseCgroupLimitMB(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" || s == "max" {
		return 0
	}
	bytes, err := strconv.ParseUint(s, 10, 64)
	if err != nil || bytes == 0 {
		return 0
	}
	mb := bytes / (1024 * 1024)
	// v1 reports an unset limit as a page-aligned value near MaxInt64.
	if mb >= 1<<40 {
		return 0
	}
	return int(mb)
}

// -----------------------------------------------------------------------------

// minPositive returns the smallest positive value, or 0 when none is.
func minPositive(values ...int) int {
	out := 0
	for _, v := range values {
		if v > 0 && (out == 0 || v < out) {
			out = v
		}
	}
	return out
}
