//go:build linux

package helpers

import "os"

var cgroupLimitFiles = []string{
	"/sys/fs/cgroup/memory.max",                   // cgroup v2
	"/sys/fs/cgroup/memory/memory.limit_in_bytes", // cgroup v1
}

// MemoryBudgetMB returns the memory this process may use in MB: physical
// memory, lowered to the container's cgroup limit when one is set. 0 when
// neither can be read.
func MemoryBudgetMB() int {
	total := 0
	if file, err := os.Open("/proc/meminfo"); err == nil {
		total = parseMemTotalMB(file)
		file.Close()
	}

	limit := 0
	for _, path := range cgroupLimitFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if limit = parseCgroupLimitMB(string(raw)); limit > 0 {
			break
		}
	}
	return minPositive(total, limit)
}
