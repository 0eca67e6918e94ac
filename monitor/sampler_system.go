package monitor

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

// systemSampler reads RAM and CPU usage from the host via gopsutil.
type systemSampler struct{}

// NewSystemSampler returns a Sampler backed by the host OS.
func NewSystemSampler() Sampler {
	return &systemSampler{}
}

func (s *systemSampler) Sample() (Metrics, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Metrics{}, errors.Wrap(err, "sampling virtual memory")
	}
	// Interval 0 reads usage since the previous call instead of blocking
	// the caller for a measurement window.
	cpuPcts, err := cpu.Percent(0, false)
	if err != nil {
		return Metrics{}, errors.Wrap(err, "sampling cpu utilization")
	}
	if len(cpuPcts) == 0 {
		return Metrics{}, errors.New("cpu sampling returned no readings")
	}
	count, err := cpu.Counts(true)
	if err != nil {
		return Metrics{}, errors.Wrap(err, "sampling cpu count")
	}
	return Metrics{
		RAMPercent:   vm.UsedPercent,
		RAMAvailable: vm.Available,
		RAMUsed:      vm.Used,
		RAMTotal:     vm.Total,
		CPUPercent:   cpuPcts[0],
		CPUCount:     count,
		SampledAt:    time.Now(),
	}, nil
}
