// Package report renders per-device benchmark blocks in one of several
// formats.
package report

import (
	"fmt"
	"io"
	"strings"
)

// Status is the outcome of one device.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// UnitGBps is the unit of every bandwidth line.
const UnitGBps = "gbps"

// Identity describes the device a block was measured on.
type Identity struct {
	Platform       string `json:"platform" yaml:"platform"`
	Device         string `json:"device" yaml:"device"`
	Vendor         string `json:"vendor" yaml:"vendor"`
	Type           string `json:"type" yaml:"type"`
	DriverVersion  string `json:"driver_version" yaml:"driver_version"`
	OS             string `json:"os" yaml:"os"`
	ComputeUnits   uint32 `json:"compute_units" yaml:"compute_units"`
	ClockMHz       uint32 `json:"clock_frequency_mhz" yaml:"clock_frequency_mhz"`
	GlobalMemBytes uint64 `json:"global_mem_bytes" yaml:"global_mem_bytes"`
	MaxAllocBytes  uint64 `json:"max_alloc_bytes" yaml:"max_alloc_bytes"`
}

// Line is one labelled measurement.
type Line struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
	Unit  string  `json:"unit" yaml:"unit"`
}

// Block is everything reported for one device.
type Block struct {
	RunID      string   `json:"run_id" yaml:"run_id"`
	Identity   Identity `json:"identity" yaml:"identity"`
	Status     Status   `json:"status" yaml:"status"`
	Elements   uint64   `json:"elements,omitempty" yaml:"elements,omitempty"`
	Iterations uint32   `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	Timer      string   `json:"timer,omitempty" yaml:"timer,omitempty"`
	Lines      []Line   `json:"lines" yaml:"lines"`
	// Error is the failure or skip reason.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Sink receives blocks as devices complete.
type Sink interface {
	Write(b Block) error
	// Close flushes anything buffered.
	Close() error
}

// Format names an output format.
type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

var Formats = []Format{FormatText, FormatTable, FormatJSON, FormatYAML}

// ParseFormat accepts any of Formats, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid format %q: must be one of text, table, json, yaml", s)
}

// New returns a sink writing f to w.
func New(f Format, w io.Writer) (Sink, error) {
	switch f {
	case FormatText:
		return NewText(w), nil
	case FormatTable:
		return NewTable(w), nil
	case FormatJSON:
		return NewJSON(w), nil
	case FormatYAML:
		return NewYAML(w), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}
