// Package chart renders the price distribution histogram.
package chart

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/plot/plotter"

	"github.com/aluiziolira/go-price-report/models"
)

// Histogram layout shared by every renderer.
const (
	// DefaultBins is the number of equal-width price buckets.
	DefaultBins = 10
	// Title is the chart heading.
	Title = "Price Distribution"
	// XLabel names the price axis.
	XLabel = "Price"
	// YLabel names the count axis.
	YLabel = "Frequency"
)

var (
	// ErrNoData is returned when there are no prices to plot.
	ErrNoData = errors.New("no prices to plot")
	// ErrNonFinite is returned when a price is NaN or infinite.
	ErrNonFinite = errors.New("non-finite price")
)

// Renderer draws a histogram of prices.
type Renderer interface {
	Render(prices []float64) error
}

// Multi runs every renderer in order and joins their errors.
type Multi []Renderer

// Render implements Renderer.
func (m Multi) Render(prices []float64) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Render(prices); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Bin is one histogram bucket: [Min, Max) except the last, which includes Max.
type Bin struct {
	Min   float64
	Max   float64
	Count int
}

// Bins splits prices into n equal-width buckets. When every price is the
// same a single bucket is returned.
func Bins(prices []float64, n int) ([]Bin, error) {
	hist, err := histogram(prices, n)
	if err != nil {
		return nil, err
	}
	bins := make([]Bin, len(hist.Bins))
	for i, b := range hist.Bins {
		bins[i] = Bin{Min: b.Min, Max: b.Max, Count: int(b.Weight)}
	}
	return bins, nil
}

func histogram(prices []float64, n int) (*plotter.Histogram, error) {
	if len(prices) == 0 {
		return nil, models.NewVisualizationError("bin prices", ErrNoData)
	}
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, models.NewVisualizationError("bin prices", fmt.Errorf("%w at index %d", ErrNonFinite, i))
		}
	}
	if n <= 0 {
		n = DefaultBins
	}

	hist, err := plotter.NewHist(plotter.Values(prices), n)
	if err != nil {
		return nil, models.NewVisualizationError("bin prices", err)
	}
	return hist, nil
}
