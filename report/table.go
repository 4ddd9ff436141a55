package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// Table buffers every block and renders one table on Close.
type Table struct {
	w      io.Writer
	blocks []Block
}

func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

func (t *Table) Write(b Block) error {
	t.blocks = append(t.blocks, b)
	return nil
}

// labels is the union of line labels in first-seen order.
func (t *Table) labels() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, b := range t.blocks {
		for _, l := range b.Lines {
			if _, ok := seen[l.Label]; ok {
				continue
			}
			seen[l.Label] = struct{}{}
			out = append(out, l.Label)
		}
	}
	return out
}

func (t *Table) Close() error {
	if len(t.blocks) == 0 {
		return nil
	}
	labels := t.labels()

	// Auto-format would rewrite "float16" as "FLOAT 16".
	table := tablewriter.NewTable(t.w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	header := []string{"PLATFORM", "DEVICE", "TYPE", "STATUS"}
	for _, l := range labels {
		header = append(header, l+" ("+UnitGBps+")")
	}
	table.Header(header)

	for _, b := range t.blocks {
		values := make(map[string]float64, len(b.Lines))
		for _, l := range b.Lines {
			values[l.Label] = l.Value
		}
		row := []string{b.Identity.Platform, b.Identity.Device, b.Identity.Type, string(b.Status)}
		for _, l := range labels {
			v, ok := values[l]
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprintf("%.2f", v))
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
