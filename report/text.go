package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// Text writes the plain line-oriented report.
type Text struct {
	w            io.Writer
	lastPlatform string
	started      bool
}

func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

func (t *Text) Write(b Block) error {
	var sb strings.Builder

	if !t.started || b.Identity.Platform != t.lastPlatform {
		if t.started {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Platform: %s\n", b.Identity.Platform)
		t.lastPlatform = b.Identity.Platform
		t.started = true
	}

	id := b.Identity
	fmt.Fprintf(&sb, "  Device: %s\n", id.Device)
	fmt.Fprintf(&sb, "    Driver version  : %s (%s)\n", id.DriverVersion, id.OS)
	fmt.Fprintf(&sb, "    Compute units   : %d\n", id.ComputeUnits)
	fmt.Fprintf(&sb, "    Clock frequency : %d MHz\n", id.ClockMHz)
	fmt.Fprintf(&sb, "    Global memory   : %s\n", humanize.IBytes(id.GlobalMemBytes))

	if b.Status == StatusSkipped {
		fmt.Fprintf(&sb, "    Skipped: %s\n", b.Error)
	} else {
		if b.Elements > 0 {
			fmt.Fprintf(&sb, "    Workload        : %s floats (%s), %d iterations, %s timer\n",
				humanize.Comma(int64(b.Elements)), humanize.IBytes(b.Elements*4), b.Iterations, b.Timer)
		}
		if len(b.Lines) > 0 {
			sb.WriteString("\n    Global memory bandwidth (GBPS)\n")
			for _, l := range b.Lines {
				fmt.Fprintf(&sb, "      %-8s: %.6g\n", l.Label, l.Value)
			}
		}
		if b.Error != "" {
			fmt.Fprintf(&sb, "    Error: %s\n", b.Error)
		}
	}
	sb.WriteString("\n")

	_, err := io.WriteString(t.w, sb.String())
	return err
}

func (t *Text) Close() error { return nil }
