package cpu

import (
	"bufio"
	"io"
	"runtime"
	"strconv"
	"strings"
)

type hostInfo struct {
	modelName   string
	vendor      string
	maxClockMHz uint32
	totalMem    uint64
}

// defaultHostMem is assumed when the platform cannot report physical memory.
const defaultHostMem = 4 << 30

func genericHost() hostInfo {
	return hostInfo{
		modelName: runtime.GOARCH + " CPU",
		vendor:    "unknown",
		totalMem:  defaultHostMem,
	}
}

// parseCPUInfo reads the first processor's model and vendor out of
// /proc/cpuinfo formatted text.
func parseCPUInfo(r io.Reader, h *hostInfo) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			if h.modelName != "" && strings.TrimSpace(sc.Text()) == "" {
				return
			}
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch key {
		case "model name", "Model", "cpu model":
			if val != "" {
				h.modelName = val
			}
		case "vendor_id", "CPU implementer":
			if h.vendor == "unknown" || h.vendor == "" {
				h.vendor = val
			}
		case "cpu MHz":
			if h.maxClockMHz == 0 {
				if mhz, err := strconv.ParseFloat(val, 64); err == nil {
					h.maxClockMHz = uint32(mhz)
				}
			}
		}
	}
}

// parseKHz converts a cpufreq value in kHz to MHz.
func parseKHz(s string) (uint32, bool) {
	khz, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || khz == 0 {
		return 0, false
	}
	return uint32(khz / 1000), true
}
