// Package analysis reloads the product table and summarises its prices.
package analysis

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aluiziolira/go-price-report/models"
)

// ErrNoPrices is returned when there is nothing to aggregate.
var ErrNoPrices = errors.New("no prices to summarise")

// TableReader loads the persisted product table.
type TableReader interface {
	Read(path string) ([]models.Product, error)
}

// Analyzer reads the table back and prints a short report.
type Analyzer struct {
	reader      TableReader
	out         io.Writer
	previewRows int
}

// NewAnalyzer builds an analyzer printing previewRows rows to out.
// A nil out disables the printed report.
func NewAnalyzer(reader TableReader, out io.Writer, previewRows int) *Analyzer {
	if out == nil {
		out = io.Discard
	}
	if previewRows < 0 {
		previewRows = 0
	}
	return &Analyzer{reader: reader, out: out, previewRows: previewRows}
}

// Analyze reloads path, computes the price statistics and prints the preview.
func (a *Analyzer) Analyze(path string) (*models.PriceReport, error) {
	products, err := a.reader.Read(path)
	if err != nil {
		return nil, models.NewAnalysisError("read table "+path, err)
	}
	stats, err := Summarize(products)
	if err != nil {
		return nil, models.NewAnalysisError("summarise "+path, err)
	}

	report := &models.PriceReport{Products: products, Stats: stats}
	a.print(report)
	return report, nil
}

// Summarize computes count, mean, max and min over the price column.
func Summarize(products []models.Product) (models.PriceStats, error) {
	if len(products) == 0 {
		return models.PriceStats{}, ErrNoPrices
	}

	stats := models.PriceStats{
		Count: len(products),
		Max:   products[0].Price,
		Min:   products[0].Price,
	}
	sum := 0.0
	for _, p := range products {
		sum += p.Price
		if p.Price > stats.Max {
			stats.Max = p.Price
		}
		if p.Price < stats.Min {
			stats.Min = p.Price
		}
	}
	stats.Mean = sum / float64(len(products))
	return stats, nil
}

func (a *Analyzer) print(report *models.PriceReport) {
	rows := report.Products
	if a.previewRows < len(rows) {
		rows = rows[:a.previewRows]
	}

	if len(rows) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(a.out)
		t.SetStyle(table.StyleRounded)
		t.SetTitle("Data Summary")
		t.AppendHeader(table.Row{"#", "Name", "Price", "Rating"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "Name", WidthMax: 48},
		})
		for i, p := range rows {
			t.AppendRow(table.Row{i, p.Name, formatPrice(p.Price), p.Rating})
		}
		if len(report.Products) > len(rows) {
			t.AppendFooter(table.Row{"", fmt.Sprintf("%d of %d rows", len(rows), len(report.Products)), "", ""})
		}
		t.Render()
	}

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Statistics:")
	fmt.Fprintf(a.out, "  Products:      %d\n", report.Stats.Count)
	fmt.Fprintf(a.out, "  Average Price: %s\n", formatPrice(report.Stats.Mean))
	fmt.Fprintf(a.out, "  Highest Price: %s\n", formatPrice(report.Stats.Max))
	fmt.Fprintf(a.out, "  Lowest Price:  %s\n", formatPrice(report.Stats.Min))
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
