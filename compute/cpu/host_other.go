//go:build !linux

package cpu

func probeHost() hostInfo {
	return genericHost()
}
