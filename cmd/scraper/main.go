package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/aluiziolira/go-price-report/analysis"
	"github.com/aluiziolira/go-price-report/chart"
	"github.com/aluiziolira/go-price-report/config"
	"github.com/aluiziolira/go-price-report/models"
	"github.com/aluiziolira/go-price-report/parser"
	"github.com/aluiziolira/go-price-report/pipeline"
	"github.com/aluiziolira/go-price-report/scraper"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := scraper.NewMetrics()
	fetcher, err := scraper.NewFetcher(cfg, metrics)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}

	table := pipeline.NewCSVTable()
	opts := []pipeline.Option{pipeline.WithMetrics(metrics)}
	if !cfg.NoChart {
		opts = append(opts, pipeline.WithRenderer(chart.Multi{
			chart.NewTextRenderer(os.Stdout),
			chart.NewImageRenderer(cfg.ChartFile),
		}))
	}

	slog.Info("starting price report",
		slog.String("url", cfg.URL),
		slog.String("output", cfg.OutputFile),
	)

	p := pipeline.NewPipeline(cfg.URL, cfg.OutputFile,
		fetcher,
		parser.NewExtractor(cfg.SkipMalformed),
		table,
		analysis.NewAnalyzer(table, os.Stdout, cfg.PreviewRows),
		opts...,
	)
	result := p.Run(ctx)

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			slog.Error("writing metrics textfile", slog.Any("error", err))
		}
	}

	printSummary(result, cfg)
	if !result.Succeeded() {
		os.Exit(1)
	}
}

// loadConfig layers flags over SCRAPER_* environment variables over defaults.
func loadConfig(args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if value, ok := config.EnvString("SCRAPER_URL"); ok {
		cfg.URL = value
	}
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		cfg.OutputFile = value
	}
	if value, ok := config.EnvString("SCRAPER_CHART"); ok {
		cfg.ChartFile = value
	}
	if value, ok := config.EnvString("SCRAPER_METRICS_FILE"); ok {
		cfg.MetricsFile = value
	}
	if value, ok, err := config.EnvMillis("SCRAPER_TIMEOUT_MS"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_TIMEOUT_MS: %w", err)
	} else if ok {
		cfg.Timeout = value
	}
	if value, ok, err := config.EnvInt("SCRAPER_PREVIEW"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_PREVIEW: %w", err)
	} else if ok {
		cfg.PreviewRows = value
	}

	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)
	url := fs.String("url", cfg.URL, "Catalogue page to fetch")
	output := fs.String("output", cfg.OutputFile, "CSV output file path")
	chartFile := fs.String("chart", cfg.ChartFile, "Histogram image path (.png, .svg, .pdf)")
	metricsFile := fs.String("metrics-file", cfg.MetricsFile, "Write Prometheus metrics to this textfile")
	timeoutMs := fs.Int("timeout", int(cfg.Timeout/time.Millisecond), "Request timeout (milliseconds)")
	preview := fs.Int("preview", cfg.PreviewRows, "Rows shown in the data summary")
	skipMalformed := fs.Bool("skip-malformed", cfg.SkipMalformed, "Skip malformed product entries instead of aborting")
	noChart := fs.Bool("no-chart", cfg.NoChart, "Do not render the price histogram")
	verbose := fs.Bool("v", cfg.Verbose, "Enable verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.URL = *url
	cfg.OutputFile = *output
	cfg.ChartFile = *chartFile
	cfg.MetricsFile = *metricsFile
	cfg.Timeout = time.Duration(*timeoutMs) * time.Millisecond
	cfg.PreviewRows = *preview
	cfg.SkipMalformed = *skipMalformed
	cfg.NoChart = *noChart
	cfg.Verbose = *verbose
	return cfg, nil
}

func printSummary(result *models.RunResult, cfg *config.Config) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	if result.Succeeded() {
		fmt.Println("Price report complete")
	} else {
		fmt.Println("Price report failed")
	}

	fmt.Printf("  Run ID:        %s\n", result.RunID)
	fmt.Printf("  Stage:         %s\n", result.Stage)
	fmt.Printf("  Products:      %d\n", result.ProductCount)
	if result.Report != nil {
		fmt.Printf("  Average price: %.2f\n", result.Report.Stats.Mean)
	}
	if result.ExtractErr != nil {
		fmt.Printf("  Extraction:    %s: %v\n", failureClass(result.ExtractErr), result.ExtractErr)
	}
	if result.Err != nil {
		fmt.Printf("  Failure:       %s: %v\n", failureClass(result.Err), result.Err)
	}
	if result.ChartErr != nil {
		fmt.Printf("  Chart:         %v\n", result.ChartErr)
	} else if result.Succeeded() && !cfg.NoChart {
		fmt.Printf("  Chart file:    %s\n", cfg.ChartFile)
	}
	fmt.Printf("  Duration:      %v\n", result.Duration().Round(time.Millisecond))
	if result.Succeeded() {
		fmt.Printf("  Output file:   %s\n", cfg.OutputFile)
	}
	fmt.Println(separator)
}

func failureClass(err error) string {
	if errors.Is(err, models.ErrNoProducts) {
		return "NoProducts"
	}
	if kind, ok := models.KindOf(err); ok {
		return kind.Class()
	}
	return "Error"
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
