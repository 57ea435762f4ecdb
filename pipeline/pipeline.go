package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-price-report/models"
	"github.com/aluiziolira/go-price-report/scraper"
)

// Fetcher retrieves the raw catalogue page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns a catalogue page into products.
type Extractor interface {
	Extract(body []byte) ([]models.Product, error)
}

// TableWriter persists products as a flat table.
type TableWriter interface {
	Write(path string, products []models.Product) error
}

// Analyzer reloads the persisted table and aggregates it.
type Analyzer interface {
	Analyze(path string) (*models.PriceReport, error)
}

// Renderer draws the price distribution.
type Renderer interface {
	Render(prices []float64) error
}

// stageKinds maps each stage to the error kind it reports when a
// collaborator returns an unclassified error.
var stageKinds = map[models.Stage]models.ErrorKind{
	models.StageFetch:   models.KindNetwork,
	models.StageExtract: models.KindParse,
	models.StageStore:   models.KindStorage,
	models.StageAnalyze: models.KindAnalysis,
	models.StageRender:  models.KindVisualization,
}

// Pipeline runs fetch, extract, store, analyze and render in order,
// stopping at the first stage that leaves nothing useful for the next.
type Pipeline struct {
	url        string
	outputFile string

	fetcher   Fetcher
	extractor Extractor
	writer    TableWriter
	analyzer  Analyzer
	renderer  Renderer

	metrics *scraper.Metrics
	logger  *slog.Logger
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithRenderer sets the chart renderer. Without one the render stage is skipped.
func WithRenderer(r Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = r
	}
}

// WithMetrics records stage outcomes on m.
func WithMetrics(m *scraper.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline wires the stage collaborators for one catalogue URL and output file.
func NewPipeline(url, outputFile string, fetcher Fetcher, extractor Extractor, writer TableWriter, analyzer Analyzer, opts ...Option) *Pipeline {
	p := &Pipeline{
		url:        url,
		outputFile: outputFile,
		fetcher:    fetcher,
		extractor:  extractor,
		writer:     writer,
		analyzer:   analyzer,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline once. Stage failures are logged and recorded
// on the result; Run itself never fails.
func (p *Pipeline) Run(ctx context.Context) *models.RunResult {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.RunResult{
		RunID:      uuid.NewString(),
		URL:        p.url,
		OutputFile: p.outputFile,
		StartTime:  time.Now(),
	}
	logger := p.logger.With(slog.String("run_id", result.RunID))
	defer func() {
		result.EndTime = time.Now()
		p.metrics.SetRunSuccess(result.Succeeded())
	}()

	result.Stage = models.StageFetch
	logger.Info("fetching product data", slog.String("url", p.url))
	body, err := p.fetcher.Fetch(ctx, p.url)
	if err != nil {
		p.fail(logger, result, err)
		return result
	}

	result.Stage = models.StageExtract
	products, err := p.extractor.Extract(body)
	if err != nil {
		result.ExtractErr = p.classify(result.Stage, err)
		kind, _ := models.KindOf(result.ExtractErr)
		p.metrics.IncStageFailure(string(kind))
		logger.Error("extraction stopped early",
			slog.String("class", kind.Class()),
			slog.Int("kept", len(products)),
			slog.Any("error", result.ExtractErr),
		)
	}
	if len(products) == 0 {
		result.Err = models.ErrNoProducts
		logger.Warn("no products fetched", slog.String("url", p.url))
		return result
	}
	result.ProductCount = len(products)
	for _, product := range products {
		p.metrics.ObserveProduct(product.Price)
	}
	logger.Info("products extracted", slog.Int("count", len(products)))

	result.Stage = models.StageStore
	if err := p.writer.Write(p.outputFile, products); err != nil {
		p.fail(logger, result, err)
		return result
	}
	logger.Info("data saved to csv", slog.String("path", p.outputFile), slog.Int("rows", len(products)))

	result.Stage = models.StageAnalyze
	report, err := p.analyzer.Analyze(p.outputFile)
	if err == nil && (report == nil || len(report.Products) == 0) {
		err = errors.New("analysis returned no usable table")
	}
	if err != nil {
		p.fail(logger, result, err)
		return result
	}
	result.Report = report
	logger.Info("statistics computed",
		slog.Int("count", report.Stats.Count),
		slog.Float64("mean_price", report.Stats.Mean),
		slog.Float64("max_price", report.Stats.Max),
		slog.Float64("min_price", report.Stats.Min),
	)

	if p.renderer == nil {
		result.Stage = models.StageDone
		return result
	}

	result.Stage = models.StageRender
	if err := p.renderer.Render(report.Prices()); err != nil {
		result.ChartErr = p.classify(result.Stage, err)
		kind, _ := models.KindOf(result.ChartErr)
		p.metrics.IncStageFailure(string(kind))
		logger.Error("visualization failed",
			slog.String("class", kind.Class()),
			slog.Any("error", result.ChartErr),
		)
	}
	result.Stage = models.StageDone
	return result
}

func (p *Pipeline) fail(logger *slog.Logger, result *models.RunResult, err error) {
	result.Err = p.classify(result.Stage, err)
	kind, _ := models.KindOf(result.Err)
	p.metrics.IncStageFailure(string(kind))
	logger.Error(string(result.Stage)+" failed",
		slog.String("class", kind.Class()),
		slog.Any("error", result.Err),
	)
}

// classify makes sure err carries the error kind of the stage it came from.
func (p *Pipeline) classify(stage models.Stage, err error) error {
	if _, ok := models.KindOf(err); ok {
		return err
	}
	return &models.PipelineError{
		Kind:    stageKinds[stage],
		Message: string(stage),
		Err:     err,
	}
}
