package cpu

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

func probeHost() hostInfo {
	h := genericHost()

	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err == nil {
		h.totalMem = uint64(si.Totalram) * uint64(si.Unit)
	} else {
		slog.Debug("sysinfo failed", "err", err)
	}

	if f, err := os.Open("/proc/cpuinfo"); err == nil {
		parseCPUInfo(f, &h)
		_ = f.Close()
	}

	if b, err := os.ReadFile("/sys/devices/system/cpu/cpu0/cpufreq/cpuinfo_max_freq"); err == nil {
		if mhz, ok := parseKHz(string(b)); ok {
			h.maxClockMHz = mhz
		}
	}
	return h
}
