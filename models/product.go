// Package models defines data structures for the price report.
package models

import (
	"errors"
	"time"
)

// ErrNoProducts is reported when the catalogue page yields no product pods.
var ErrNoProducts = errors.New("no products fetched")

// Product represents one product pod extracted from the catalogue page.
type Product struct {
	Name   string
	Price  float64
	Rating int
}

// PriceStats holds the aggregates computed over the price column.
type PriceStats struct {
	Count int
	Mean  float64
	Max   float64
	Min   float64
}

// PriceReport is the table reloaded from disk together with its aggregates.
type PriceReport struct {
	Products []Product
	Stats    PriceStats
}

// Prices returns the price column in table order.
func (r *PriceReport) Prices() []float64 {
	if r == nil {
		return nil
	}
	prices := make([]float64, len(r.Products))
	for i, p := range r.Products {
		prices[i] = p.Price
	}
	return prices
}

// Stage names a step of the report pipeline.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
	StageStore   Stage = "store"
	StageAnalyze Stage = "analyze"
	StageRender  Stage = "render"
	StageDone    Stage = "done"
)

// RunResult holds the overall result of one pipeline run. ExtractErr is
// set when a malformed pod cut extraction short; the products before it
// are still stored and analysed.
type RunResult struct {
	RunID        string
	URL          string
	OutputFile   string
	StartTime    time.Time
	EndTime      time.Time
	Stage        Stage
	ProductCount int
	Report       *PriceReport
	Err          error
	ExtractErr   error
	ChartErr     error
}

// Succeeded reports whether the run got as far as a usable report.
// A failed chart does not change the outcome.
func (r *RunResult) Succeeded() bool {
	return r != nil && r.Err == nil && r.Report != nil
}

// Duration returns the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	if r == nil || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
