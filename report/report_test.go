package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleBlocks() []Block {
	id := Identity{
		Platform:       "Go CPU",
		Device:         "Test Device",
		Vendor:         "test",
		Type:           "CPU",
		DriverVersion:  "go1.24.0",
		OS:             "Linux",
		ComputeUnits:   8,
		ClockMHz:       3500,
		GlobalMemBytes: 16 << 30,
		MaxAllocBytes:  4 << 30,
	}
	ok := Block{
		RunID:      "run-1",
		Identity:   id,
		Status:     StatusOK,
		Elements:   1 << 27,
		Iterations: 20,
		Timer:      "event",
		Lines: []Line{
			{Label: "float", Value: 10.5, Unit: UnitGBps},
			{Label: "float2", Value: 20.25, Unit: UnitGBps},
			{Label: "float4", Value: 30, Unit: UnitGBps},
			{Label: "float8", Value: 40, Unit: UnitGBps},
			{Label: "float16", Value: 50, Unit: UnitGBps},
		},
	}
	failed := Block{RunID: "run-1", Identity: id, Status: StatusFailed, Error: "Build error in BuildProgram: boom"}
	failed.Identity.Device = "Broken Device"
	skipped := Block{RunID: "run-1", Identity: id, Status: StatusSkipped, Error: "device cannot hold a minimal workload"}
	skipped.Identity.Platform = "Other"
	skipped.Identity.Device = "Tiny Device"
	return []Block{ok, failed, skipped}
}

func writeAll(t *testing.T, s Sink, blocks []Block) {
	t.Helper()
	for _, b := range blocks {
		require.NoError(t, s.Write(b))
	}
	require.NoError(t, s.Close())
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(strings.ToUpper(string(f)))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)

	_, err = New(Format("xml"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestTextSink(t *testing.T) {
	var buf bytes.Buffer
	writeAll(t, NewText(&buf), sampleBlocks())
	out := buf.String()

	assert.Equal(t, 1, strings.Count(out, "Platform: Go CPU\n"))
	assert.Contains(t, out, "Platform: Other\n")
	assert.Contains(t, out, "  Device: Test Device\n")
	assert.Contains(t, out, "    Driver version  : go1.24.0 (Linux)\n")
	assert.Contains(t, out, "    Compute units   : 8\n")
	assert.Contains(t, out, "    Clock frequency : 3500 MHz\n")
	assert.Contains(t, out, "    Global memory   : 16 GiB\n")
	assert.Contains(t, out, "134,217,728 floats (512 MiB), 20 iterations, event timer")
	assert.Contains(t, out, "Global memory bandwidth (GBPS)")
	assert.Contains(t, out, "      float   : 10.5\n")
	assert.Contains(t, out, "      float2  : 20.25\n")
	assert.Contains(t, out, "      float16 : 50\n")
	assert.Contains(t, out, "    Error: Build error in BuildProgram: boom\n")
	assert.Contains(t, out, "    Skipped: device cannot hold a minimal workload\n")

	// Widths are reported in ascending order.
	assert.Less(t, strings.Index(out, "float   :"), strings.Index(out, "float2  :"))
	assert.Less(t, strings.Index(out, "float8  :"), strings.Index(out, "float16 :"))
}

func TestTextSinkKeepsSlowThroughput(t *testing.T) {
	b := sampleBlocks()[0]
	b.Lines = []Line{
		{Label: "float", Value: 0.16384, Unit: UnitGBps},
		{Label: "float2", Value: 0.0012345678, Unit: UnitGBps},
	}

	var buf bytes.Buffer
	writeAll(t, NewText(&buf), []Block{b})
	out := buf.String()

	assert.Contains(t, out, "      float   : 0.16384\n")
	assert.Contains(t, out, "      float2  : 0.00123457\n")
	assert.NotContains(t, out, "0.00\n")
}

func TestTableSink(t *testing.T) {
	var buf bytes.Buffer
	writeAll(t, NewTable(&buf), sampleBlocks())
	out := buf.String()

	assert.Contains(t, out, "PLATFORM")
	for _, h := range []string{"float (gbps)", "float2 (gbps)", "float16 (gbps)"} {
		assert.Contains(t, out, h)
	}
	assert.NotContains(t, out, "FLOAT")
	assert.Contains(t, out, "Test Device")
	assert.Contains(t, out, "20.25")
	assert.Contains(t, out, "Broken Device")
	assert.Contains(t, out, "failed")

	var empty bytes.Buffer
	writeAll(t, NewTable(&empty), nil)
	assert.Empty(t, empty.String())
}

func TestJSONSink(t *testing.T) {
	var buf bytes.Buffer
	blocks := sampleBlocks()
	writeAll(t, NewJSON(&buf), blocks)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(blocks))

	var got Block
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, blocks[0], got)

	var failed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))
	assert.Equal(t, "failed", failed["status"])
	assert.Equal(t, []any{}, failed["lines"])
	assert.NotContains(t, failed, "elements")
}

func TestYAMLSink(t *testing.T) {
	var buf bytes.Buffer
	blocks := sampleBlocks()
	writeAll(t, NewYAML(&buf), blocks)

	dec := yaml.NewDecoder(&buf)
	for _, want := range blocks {
		var got Block
		require.NoError(t, dec.Decode(&got))
		assert.Equal(t, want.Identity, got.Identity)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.Error, got.Error)
		assert.Equal(t, len(want.Lines), len(got.Lines))
	}
}
