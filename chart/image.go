package chart

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/aluiziolira/go-price-report/models"
)

// ImageRenderer saves the histogram as an image. The format follows the file
// extension (png, svg, pdf, ...).
type ImageRenderer struct {
	Path   string
	Bins   int
	Width  vg.Length
	Height vg.Length
}

// NewImageRenderer returns a 10-bin renderer writing a 6x4 inch image to path.
func NewImageRenderer(path string) *ImageRenderer {
	return &ImageRenderer{
		Path:   path,
		Bins:   DefaultBins,
		Width:  6 * vg.Inch,
		Height: 4 * vg.Inch,
	}
}

// Render implements Renderer.
func (r *ImageRenderer) Render(prices []float64) error {
	if r.Path == "" {
		return models.NewVisualizationError("save chart", fmt.Errorf("empty path"))
	}
	hist, err := histogram(prices, r.Bins)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = Title
	p.X.Label.Text = XLabel
	p.Y.Label.Text = YLabel
	p.Add(hist)

	if dir := filepath.Dir(r.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return models.NewVisualizationError("save chart", fmt.Errorf("create directory %q: %w", dir, err))
		}
	}
	if err := p.Save(r.Width, r.Height, r.Path); err != nil {
		return models.NewVisualizationError("save chart "+r.Path, err)
	}

	slog.Info("chart saved", slog.String("path", r.Path), slog.Int("values", len(prices)))
	return nil
}
