package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aluiziolira/go-price-report/models"
	"github.com/aluiziolira/go-price-report/scraper"
)

type stubFetcher struct {
	body  []byte
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context, string) ([]byte, error) {
	s.calls++
	return s.body, s.err
}

type stubExtractor struct {
	products []models.Product
	err      error
	calls    int
}

func (s *stubExtractor) Extract([]byte) ([]models.Product, error) {
	s.calls++
	return s.products, s.err
}

type recordingWriter struct {
	err     error
	calls   int
	written []models.Product
}

func (w *recordingWriter) Write(_ string, products []models.Product) error {
	w.calls++
	if w.err != nil {
		return w.err
	}
	w.written = append([]models.Product(nil), products...)
	return nil
}

type stubAnalyzer struct {
	report *models.PriceReport
	err    error
	calls  int
}

func (s *stubAnalyzer) Analyze(string) (*models.PriceReport, error) {
	s.calls++
	return s.report, s.err
}

type recordingRenderer struct {
	err    error
	calls  int
	prices []float64
}

func (r *recordingRenderer) Render(prices []float64) error {
	r.calls++
	r.prices = prices
	return r.err
}

type fixture struct {
	fetcher   *stubFetcher
	extractor *stubExtractor
	writer    *recordingWriter
	analyzer  *stubAnalyzer
	renderer  *recordingRenderer
	metrics   *scraper.Metrics
}

func newFixture() *fixture {
	products := []models.Product{
		{Name: "Ten", Price: 10, Rating: 1},
		{Name: "Twenty", Price: 20, Rating: 2},
		{Name: "Thirty", Price: 30, Rating: 3},
	}
	return &fixture{
		fetcher:   &stubFetcher{body: []byte("<html></html>")},
		extractor: &stubExtractor{products: products},
		writer:    &recordingWriter{},
		analyzer: &stubAnalyzer{report: &models.PriceReport{
			Products: products,
			Stats:    models.PriceStats{Count: 3, Mean: 20, Max: 30, Min: 10},
		}},
		renderer: &recordingRenderer{},
		metrics:  scraper.NewMetrics(),
	}
}

func (f *fixture) run(t *testing.T) *models.RunResult {
	t.Helper()
	p := NewPipeline("http://example.test/catalogue/page-1.html", "products.csv",
		f.fetcher, f.extractor, f.writer, f.analyzer,
		WithRenderer(f.renderer),
		WithMetrics(f.metrics),
	)
	return p.Run(context.Background())
}

func TestPipelineRunSuccess(t *testing.T) {
	f := newFixture()
	result := f.run(t)

	if !result.Succeeded() {
		t.Fatalf("expected success, got err=%v", result.Err)
	}
	if result.Stage != models.StageDone {
		t.Fatalf("stage = %s, want %s", result.Stage, models.StageDone)
	}
	if result.RunID == "" {
		t.Fatalf("expected run id")
	}
	if result.ProductCount != 3 || len(f.writer.written) != 3 {
		t.Fatalf("product count = %d, written = %d, want 3", result.ProductCount, len(f.writer.written))
	}
	if f.renderer.calls != 1 || len(f.renderer.prices) != 3 || f.renderer.prices[2] != 30 {
		t.Fatalf("renderer calls=%d prices=%v", f.renderer.calls, f.renderer.prices)
	}
	if result.EndTime.Before(result.StartTime) {
		t.Fatalf("end time before start time")
	}
	if got := testutil.ToFloat64(f.metrics.ProductsExtracted); got != 3 {
		t.Fatalf("products metric = %v, want 3", got)
	}
	if got := testutil.ToFloat64(f.metrics.LastRunSuccess); got != 1 {
		t.Fatalf("last run success = %v, want 1", got)
	}
}

func TestPipelineShortCircuit(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*fixture)
		wantStage   models.Stage
		wantKind    models.ErrorKind
		wantWrites  int
		wantAnalyze int
		wantRender  int
	}{
		{
			name: "fetch failure",
			mutate: func(f *fixture) {
				f.fetcher.err = models.NewNetworkError("fetch", errors.New("connection refused"))
			},
			wantStage: models.StageFetch,
			wantKind:  models.KindNetwork,
		},
		{
			name: "unclassified fetch failure",
			mutate: func(f *fixture) {
				f.fetcher.err = errors.New("dial tcp: connection refused")
			},
			wantStage: models.StageFetch,
			wantKind:  models.KindNetwork,
		},
		{
			name: "storage failure",
			mutate: func(f *fixture) {
				f.writer.err = errors.New("disk full")
			},
			wantStage:  models.StageStore,
			wantKind:   models.KindStorage,
			wantWrites: 1,
		},
		{
			name: "analysis failure",
			mutate: func(f *fixture) {
				f.analyzer.err = models.NewAnalysisError("read table", os.ErrNotExist)
			},
			wantStage:   models.StageAnalyze,
			wantKind:    models.KindAnalysis,
			wantWrites:  1,
			wantAnalyze: 1,
		},
		{
			name: "analysis without table",
			mutate: func(f *fixture) {
				f.analyzer.report = nil
			},
			wantStage:   models.StageAnalyze,
			wantKind:    models.KindAnalysis,
			wantWrites:  1,
			wantAnalyze: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.mutate(f)
			result := f.run(t)

			if result.Succeeded() {
				t.Fatalf("expected failure")
			}
			if result.Stage != tt.wantStage {
				t.Fatalf("stage = %s, want %s", result.Stage, tt.wantStage)
			}
			if !models.IsKind(result.Err, tt.wantKind) {
				t.Fatalf("error = %v, want kind %s", result.Err, tt.wantKind)
			}
			if f.writer.calls != tt.wantWrites {
				t.Fatalf("writer calls = %d, want %d", f.writer.calls, tt.wantWrites)
			}
			if f.analyzer.calls != tt.wantAnalyze {
				t.Fatalf("analyzer calls = %d, want %d", f.analyzer.calls, tt.wantAnalyze)
			}
			if f.renderer.calls != tt.wantRender {
				t.Fatalf("renderer calls = %d, want %d", f.renderer.calls, tt.wantRender)
			}
			if got := testutil.ToFloat64(f.metrics.StageFailuresTotal.WithLabelValues(string(tt.wantKind))); got != 1 {
				t.Fatalf("stage failure metric = %v, want 1", got)
			}
			if got := testutil.ToFloat64(f.metrics.LastRunSuccess); got != 0 {
				t.Fatalf("last run success = %v, want 0", got)
			}
		})
	}
}

func TestPipelineNoProducts(t *testing.T) {
	f := newFixture()
	f.extractor.products = nil

	result := f.run(t)
	if !errors.Is(result.Err, models.ErrNoProducts) {
		t.Fatalf("error = %v, want %v", result.Err, models.ErrNoProducts)
	}
	if f.writer.calls != 0 {
		t.Fatalf("table must not be written when nothing was extracted")
	}
	if f.analyzer.calls != 0 || f.renderer.calls != 0 {
		t.Fatalf("downstream stages must not run")
	}
}

func TestPipelineExtractErrorKeepsPrefix(t *testing.T) {
	f := newFixture()
	f.extractor.products = f.extractor.products[:2]
	f.extractor.err = models.NewParseError("product 3", errors.New("missing node"))

	result := f.run(t)
	if !result.Succeeded() {
		t.Fatalf("products before the malformed pod must still be reported, got err=%v", result.Err)
	}
	if !models.IsKind(result.ExtractErr, models.KindParse) {
		t.Fatalf("extract error = %v, want parse kind", result.ExtractErr)
	}
	if result.ProductCount != 2 || len(f.writer.written) != 2 {
		t.Fatalf("product count = %d, written = %d, want 2", result.ProductCount, len(f.writer.written))
	}
	if f.analyzer.calls != 1 {
		t.Fatalf("analyzer calls = %d, want 1", f.analyzer.calls)
	}
	if got := testutil.ToFloat64(f.metrics.StageFailuresTotal.WithLabelValues(string(models.KindParse))); got != 1 {
		t.Fatalf("parse failure metric = %v, want 1", got)
	}
}

func TestPipelineExtractErrorWithoutProducts(t *testing.T) {
	f := newFixture()
	f.extractor.products = nil
	f.extractor.err = errors.New("missing node")

	result := f.run(t)
	if !errors.Is(result.Err, models.ErrNoProducts) {
		t.Fatalf("error = %v, want %v", result.Err, models.ErrNoProducts)
	}
	if !models.IsKind(result.ExtractErr, models.KindParse) {
		t.Fatalf("unclassified extract error should become parse kind, got %v", result.ExtractErr)
	}
	if result.Stage != models.StageExtract {
		t.Fatalf("stage = %s, want %s", result.Stage, models.StageExtract)
	}
	if f.writer.calls != 0 {
		t.Fatalf("table must not be written when nothing was extracted")
	}
}

func TestPipelineChartFailureIsSoft(t *testing.T) {
	f := newFixture()
	f.renderer.err = errors.New("no display")

	result := f.run(t)
	if !result.Succeeded() {
		t.Fatalf("chart failure must not fail the run, got err=%v", result.Err)
	}
	if !models.IsKind(result.ChartErr, models.KindVisualization) {
		t.Fatalf("chart error = %v, want visualization kind", result.ChartErr)
	}
	if result.Stage != models.StageDone {
		t.Fatalf("stage = %s, want %s", result.Stage, models.StageDone)
	}
}

func TestPipelineWithoutRenderer(t *testing.T) {
	f := newFixture()
	p := NewPipeline("http://example.test/", "products.csv", f.fetcher, f.extractor, f.writer, f.analyzer)

	result := p.Run(context.Background())
	if !result.Succeeded() || result.ChartErr != nil {
		t.Fatalf("expected success without chart, got err=%v chart=%v", result.Err, result.ChartErr)
	}
}

func TestPipelineDoesNotTouchTableOnFetchFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	p := NewPipeline("http://example.test/", path, fetcher, &stubExtractor{}, NewCSVTable(), &stubAnalyzer{})

	result := p.Run(context.Background())
	if result.Succeeded() {
		t.Fatalf("expected failure")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("table should not exist, stat err = %v", err)
	}
}
