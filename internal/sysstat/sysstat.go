// Package sysstat samples CPU, memory and disk usage for the sysinfo
// command.
package sysstat

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	mib = 1024 * 1024
	gib = 1024 * 1024 * 1024
)

// ErrNoCPU is returned when the platform reports no CPU times.
var ErrNoCPU = errors.New("sysstat: no cpu times reported")

// CPUUsage is the share of ticks spent in each state since the previous
// sample, in percent.
type CPUUsage struct {
	User   float64
	System float64
	Idle   float64
}

// Lines renders the usage one state per line.
func (c CPUUsage) Lines() []string {
	return []string{
		fmt.Sprintf("User: %.2f %%", c.User),
		fmt.Sprintf("System: %.2f %%", c.System),
		fmt.Sprintf("Idle: %.2f %%", c.Idle),
	}
}

// Memory is a virtual memory snapshot in bytes.
type Memory struct {
	Total     uint64
	Available uint64
	Used      uint64
	Free      uint64
	Active    uint64
	Inactive  uint64
	Wired     uint64
}

// Lines renders the snapshot in MB. darwin reports the page-state
// breakdown, other platforms the available/used split.
func (m Memory) Lines() []string {
	mb := func(label string, v uint64) string {
		return fmt.Sprintf("%s: %.2f MB", label, float64(v)/mib)
	}
	if runtime.GOOS == "darwin" {
		return []string{
			mb("Total", m.Total),
			mb("Free", m.Free),
			mb("Active", m.Active),
			mb("Inactive", m.Inactive),
			mb("Wired", m.Wired),
		}
	}
	return []string{
		mb("Total", m.Total),
		mb("Available", m.Available),
		mb("Used", m.Used),
	}
}

// Disk is the usage of one mount point in bytes.
type Disk struct {
	Path      string
	Total     uint64
	Used      uint64
	Available uint64
}

// Lines renders the usage in GB with the share of the total.
func (d Disk) Lines() []string {
	pct := func(v uint64) float64 {
		if d.Total == 0 {
			return 0
		}
		return float64(v) / float64(d.Total) * 100
	}
	gb := func(label string, v uint64) string {
		return fmt.Sprintf("%s: %.2f GB (%.2f%%)", label, float64(v)/gib, pct(v))
	}
	return []string{
		gb("Total", d.Total),
		gb("Used", d.Used),
		gb("Available", d.Available),
	}
}

// Sampler reads system statistics. CPU usage is computed from the tick
// deltas between consecutive calls; the first call covers the time since
// boot.
type Sampler struct {
	times  func() ([]cpu.TimesStat, error)
	memory func() (*mem.VirtualMemoryStat, error)
	usage  func(path string) (*disk.UsageStat, error)

	prev cpu.TimesStat
}

// NewSampler returns a sampler backed by gopsutil.
func NewSampler() *Sampler {
	return &Sampler{
		times:  func() ([]cpu.TimesStat, error) { return cpu.Times(false) },
		memory: mem.VirtualMemory,
		usage:  disk.Usage,
	}
}

// CPU returns the usage since the previous call.
func (s *Sampler) CPU() (CPUUsage, error) {
	times, err := s.times()
	if err != nil {
		return CPUUsage{}, fmt.Errorf("read cpu times: %w", err)
	}
	if len(times) == 0 {
		return CPUUsage{}, ErrNoCPU
	}
	cur := times[0]

	user := cur.User + cur.Nice - s.prev.User - s.prev.Nice
	system := cur.System - s.prev.System
	idle := cur.Idle - s.prev.Idle
	s.prev = cur

	total := user + system + idle
	if total <= 0 {
		return CPUUsage{}, nil
	}
	return CPUUsage{
		User:   100 * user / total,
		System: 100 * system / total,
		Idle:   100 * idle / total,
	}, nil
}

// Memory returns the current virtual memory snapshot.
func (s *Sampler) Memory() (Memory, error) {
	vm, err := s.memory()
	if err != nil {
		return Memory{}, fmt.Errorf("read virtual memory: %w", err)
	}
	return Memory{
		Total:     vm.Total,
		Available: vm.Available,
		Used:      vm.Used,
		Free:      vm.Free,
		Active:    vm.Active,
		Inactive:  vm.Inactive,
		Wired:     vm.Wired,
	}, nil
}

// Disk returns the usage of the filesystem holding path.
func (s *Sampler) Disk(path string) (Disk, error) {
	u, err := s.usage(path)
	if err != nil {
		return Disk{}, fmt.Errorf("read disk usage of %s: %w", path, err)
	}
	return Disk{
		Path:      path,
		Total:     u.Total,
		Used:      u.Total - u.Free,
		Available: u.Free,
	}, nil
}
