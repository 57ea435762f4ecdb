package chart

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/aluiziolira/go-price-report/models"
)

const defaultBarWidth = 40

// TextRenderer prints the histogram to a terminal as a table with a bar column.
type TextRenderer struct {
	out      io.Writer
	bins     int
	barWidth int
}

// NewTextRenderer returns a 10-bin renderer writing to out.
func NewTextRenderer(out io.Writer) *TextRenderer {
	return &TextRenderer{out: out, bins: DefaultBins, barWidth: defaultBarWidth}
}

// Render implements Renderer.
func (r *TextRenderer) Render(prices []float64) error {
	if r.out == nil {
		return models.NewVisualizationError("render histogram", fmt.Errorf("no output"))
	}
	bins, err := Bins(prices, r.bins)
	if err != nil {
		return err
	}

	peak := 0
	for _, b := range bins {
		peak = max(peak, b.Count)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(Title)
	t.AppendHeader(table.Row{XLabel, YLabel, ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	for _, b := range bins {
		t.AppendRow(table.Row{
			fmt.Sprintf("%8.2f - %8.2f", b.Min, b.Max),
			b.Count,
			bar(b.Count, peak, r.barWidth),
		})
	}
	t.Render()
	return nil
}

func bar(count, peak, width int) string {
	if count <= 0 || peak <= 0 {
		return ""
	}
	n := count * width / peak
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}
