package sysstat

import (
	"errors"
	"runtime"
	"testing"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUUsesTickDeltas(t *testing.T) {
	samples := [][]cpu.TimesStat{
		{{CPU: "cpu-total", User: 100, System: 50, Idle: 850}},
		{{CPU: "cpu-total", User: 130, Nice: 10, System: 60, Idle: 910}},
	}
	s := &Sampler{times: func() ([]cpu.TimesStat, error) {
		next := samples[0]
		samples = samples[1:]
		return next, nil
	}}

	first, err := s.CPU()
	require.NoError(t, err)
	assert.InDelta(t, 10.0, first.User, 0.001)
	assert.InDelta(t, 5.0, first.System, 0.001)
	assert.InDelta(t, 85.0, first.Idle, 0.001)

	second, err := s.CPU()
	require.NoError(t, err)
	assert.InDelta(t, 36.36, second.User, 0.01)
	assert.InDelta(t, 9.09, second.System, 0.01)
	assert.InDelta(t, 54.55, second.Idle, 0.01)

	assert.Equal(t, []string{"User: 36.36 %", "System: 9.09 %", "Idle: 54.55 %"}, second.Lines())
}

func TestCPUNoTicks(t *testing.T) {
	stat := []cpu.TimesStat{{User: 1, System: 1, Idle: 1}}
	s := &Sampler{times: func() ([]cpu.TimesStat, error) { return stat, nil }}

	_, err := s.CPU()
	require.NoError(t, err)
	usage, err := s.CPU()
	require.NoError(t, err)
	assert.Equal(t, CPUUsage{}, usage, "an unchanged sample has no ticks to share")
}

func TestCPUErrors(t *testing.T) {
	s := &Sampler{times: func() ([]cpu.TimesStat, error) { return nil, nil }}
	_, err := s.CPU()
	assert.ErrorIs(t, err, ErrNoCPU)

	boom := errors.New("sysctl failed")
	s.times = func() ([]cpu.TimesStat, error) { return nil, boom }
	_, err = s.CPU()
	assert.ErrorIs(t, err, boom)
}

func TestMemory(t *testing.T) {
	s := &Sampler{memory: func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{
			Total: 16 * mib, Available: 6 * mib, Used: 10 * mib,
			Free: 2 * mib, Active: 5 * mib, Inactive: 4 * mib, Wired: 3 * mib,
		}, nil
	}}

	m, err := s.Memory()
	require.NoError(t, err)
	assert.Equal(t, uint64(3*mib), m.Wired)

	lines := m.Lines()
	assert.Equal(t, "Total: 16.00 MB", lines[0])
	if runtime.GOOS == "darwin" {
		assert.Equal(t, []string{"Total: 16.00 MB", "Free: 2.00 MB", "Active: 5.00 MB", "Inactive: 4.00 MB", "Wired: 3.00 MB"}, lines)
	} else {
		assert.Equal(t, []string{"Total: 16.00 MB", "Available: 6.00 MB", "Used: 10.00 MB"}, lines)
	}
}

func TestDisk(t *testing.T) {
	s := &Sampler{usage: func(path string) (*disk.UsageStat, error) {
		assert.Equal(t, "/", path)
		return &disk.UsageStat{Path: path, Total: 100 * gib, Free: 25 * gib, Used: 70 * gib}, nil
	}}

	d, err := s.Disk("/")
	require.NoError(t, err)
	assert.Equal(t, uint64(75*gib), d.Used, "used counts blocks unavailable to the user")
	assert.Equal(t, []string{
		"Total: 100.00 GB (100.00%)",
		"Used: 75.00 GB (75.00%)",
		"Available: 25.00 GB (25.00%)",
	}, d.Lines())

	assert.Equal(t, []string{"Total: 0.00 GB (0.00%)", "Used: 0.00 GB (0.00%)", "Available: 0.00 GB (0.00%)"}, Disk{}.Lines())
}

func TestDiskError(t *testing.T) {
	s := &Sampler{usage: func(string) (*disk.UsageStat, error) { return nil, errors.New("statfs: no such file") }}
	_, err := s.Disk("/missing")
	assert.ErrorContains(t, err, "/missing")
}
