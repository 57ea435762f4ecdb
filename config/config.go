package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

// Config holds report configuration.
type Config struct {
	URL           string
	OutputFile    string
	ChartFile     string
	MetricsFile   string // node-exporter textfile; empty disables
	Timeout       time.Duration
	UserAgent     string
	PreviewRows   int
	SkipMalformed bool
	NoChart       bool
	Verbose       bool
}

// DefaultConfig returns defaults for the demo catalogue.
func DefaultConfig() *Config {
	return &Config{
		URL:         "http://books.toscrape.com/catalogue/page-1.html",
		OutputFile:  "output/products.csv",
		ChartFile:   "output/price_distribution.png",
		Timeout:     10 * time.Second,
		UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		PreviewRows: 5,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}

	parsedURL, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("url must include a host")
	}

	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if !c.NoChart && c.ChartFile == "" {
		return fmt.Errorf("chart file cannot be empty unless charts are disabled")
	}
	if c.ChartFile != "" && filepath.Clean(c.ChartFile) == filepath.Clean(c.OutputFile) {
		return fmt.Errorf("chart file must differ from output file")
	}
	if c.MetricsFile != "" && filepath.Clean(c.MetricsFile) == filepath.Clean(c.OutputFile) {
		return fmt.Errorf("metrics file must differ from output file")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.PreviewRows < 0 {
		return fmt.Errorf("preview rows cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
