package agent

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Attribute names the agent reports.
const (
	FactOS             = "os"
	FactPlatform       = "platform"
	FactPlatformVer    = "platform_version"
	FactKernelVersion  = "kernel_version"
	FactArch           = "arch"
	FactCPUCores       = "cpu_cores"
	FactMemoryBytes    = "memory_bytes"
	FactVirtualization = "virtualization"
)

// FactSource supplies the identity and attributes the agent registers.
type FactSource interface {
	Hostname() string
	Collect(ctx context.Context) (map[string]string, error)
}

type FactCollector struct {
	hostname string
}

// NewFactCollector reports facts for hostname, or for os.Hostname() when
// hostname is empty.
func NewFactCollector(hostname string) (*FactCollector, error) {
	if hostname == "" {
		var err error
		hostname, err = os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("get hostname: %w", err)
		}
	}
	return &FactCollector{hostname: hostname}, nil
}

func (fc *FactCollector) Hostname() string {
	return fc.hostname
}

// Collect gathers host facts as attribute values. Facts the platform does not
// report are left out.
func (fc *FactCollector) Collect(ctx context.Context) (map[string]string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get host info: %w", err)
	}

	cpuCores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("get cpu cores: %w", err)
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get memory info: %w", err)
	}

	facts := map[string]string{
		FactOS:             info.OS,
		FactPlatform:       info.Platform,
		FactPlatformVer:    info.PlatformVersion,
		FactKernelVersion:  info.KernelVersion,
		FactArch:           info.KernelArch,
		FactCPUCores:       strconv.Itoa(cpuCores),
		FactMemoryBytes:    strconv.FormatUint(memInfo.Total, 10),
		FactVirtualization: info.VirtualizationSystem,
	}
	for k, v := range facts {
		if v == "" {
			delete(facts, k)
		}
	}
	return facts, nil
}
