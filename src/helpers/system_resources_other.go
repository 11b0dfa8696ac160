//go:build !linux

package helpers

// MemoryBudgetMB is unknown off Linux; callers fall back to CPU count.
func MemoryBudgetMB() int {
	return 0
}
