package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommendedWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, RecommendedWorkers(), 1)
}

func TestWorkersForCapsByMemory(t *testing.T) {
	assert.Equal(t, 8, workersFor(8, 0))
	assert.Equal(t, 8, workersFor(8, 16*1024))
	assert.Equal(t, 2, workersFor(8, 512))
	assert.Equal(t, 1, workersFor(8, 100))
}

func TestParseCgroupLimitMB(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"max\n", 0},
		{"", 0},
		{"536870912\n", 512},
		{"2147483648", 2048},
		{"9223372036854771712\n", 0},
		{"garbage", 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, parseCgroupLimitMB(c.raw), "raw %q", c.raw)
	}
}

func TestParseMemTotalMB(t *testing.T) {
	meminfo := "MemTotal:       16384000 kB\nMemFree:         1024000 kB\n"
	assert.Equal(t, 16000, parseMemTotalMB(strings.NewReader(meminfo)))
	assert.Zero(t, parseMemTotalMB(strings.NewReader("MemFree: 1 kB\n")))
}

func TestContainerLimitLowersMemoryBudget(t *testing.T) {
	assert.Equal(t, 512, minPositive(16000, 512))
	assert.Equal(t, 16000, minPositive(16000, 0))
	assert.Zero(t, minPositive(0, 0))
	assert.Equal(t, 2, workersFor(8, minPositive(16000, parseCgroupLimitMB("536870912"))))
}
