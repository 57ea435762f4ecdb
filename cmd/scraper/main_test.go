package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aluiziolira/go-price-report/models"
)

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("SCRAPER_URL", "http://env.test/page-1.html")
	t.Setenv("SCRAPER_OUTPUT", "env/products.csv")
	t.Setenv("SCRAPER_TIMEOUT_MS", "2500")
	t.Setenv("SCRAPER_PREVIEW", "3")

	cfg, err := loadConfig([]string{"-output", "flag/products.csv", "-no-chart"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.URL != "http://env.test/page-1.html" {
		t.Fatalf("url = %q, want env value", cfg.URL)
	}
	if cfg.OutputFile != "flag/products.csv" {
		t.Fatalf("output = %q, want flag value", cfg.OutputFile)
	}
	if cfg.Timeout != 2500*time.Millisecond {
		t.Fatalf("timeout = %v, want 2.5s", cfg.Timeout)
	}
	if cfg.PreviewRows != 3 {
		t.Fatalf("preview = %d, want 3", cfg.PreviewRows)
	}
	if !cfg.NoChart {
		t.Fatalf("expected no-chart flag to be applied")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "bad timeout env", env: map[string]string{"SCRAPER_TIMEOUT_MS": "soon"}},
		{name: "bad preview env", env: map[string]string{"SCRAPER_PREVIEW": "five"}},
		{name: "unknown flag", args: []string{"-pages", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := loadConfig(tt.args); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestFailureClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: models.NewNetworkError("fetch", errors.New("refused")), want: "NetworkError"},
		{err: fmt.Errorf("run: %w", models.NewStorageError("write", errors.New("disk full"))), want: "StorageError"},
		{err: models.ErrNoProducts, want: "NoProducts"},
		{err: errors.New("plain"), want: "Error"},
	}

	for _, tt := range tests {
		if got := failureClass(tt.err); got != tt.want {
			t.Fatalf("failureClass(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
