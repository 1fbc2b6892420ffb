package modelpool

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MemoryProbe reports host memory in GB. Computed once per run; the
// selector treats the reading as a snapshot, not a live gauge.
type MemoryProbe interface {
	Memory() (totalGB, availableGB float64, err error)
}

// ProcMeminfoProbe reads /proc/meminfo. Linux-only by construction; hosts
// running local models in this setup are Linux boxes.
type ProcMeminfoProbe struct {
	// Path overrides /proc/meminfo for tests.
	Path string
}

func (p ProcMeminfoProbe) Memory() (float64, float64, error) {
	path := p.Path
	if path == "" {
		path = "/proc/meminfo"
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open meminfo: %w", err)
	}
	defer f.Close()

	var totalKB, availKB int64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			totalKB = meminfoKB(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			availKB = meminfoKB(line)
		}
		if totalKB > 0 && availKB > 0 {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return 0, 0, fmt.Errorf("read meminfo: %w", err)
	}
	if totalKB <= 0 {
		return 0, 0, fmt.Errorf("meminfo: MemTotal not found")
	}
	const kbPerGB = 1024 * 1024
	return float64(totalKB) / kbPerGB, float64(availKB) / kbPerGB, nil
}

func meminfoKB(line string) int64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	n, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// StaticProbe returns fixed readings for tests.
type StaticProbe struct {
	TotalGB     float64
	AvailableGB float64
}

func (s StaticProbe) Memory() (float64, float64, error) {
	return s.TotalGB, s.AvailableGB, nil
}
