package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aluiziolira/go-price-report/models"
	"github.com/aluiziolira/go-price-report/parser"
)

var (
	// ErrHeaderMismatch is returned when the table does not start with the expected header.
	ErrHeaderMismatch = errors.New("unexpected table header")
	// ErrEmptyTable is returned when the table has a header but no rows.
	ErrEmptyTable = errors.New("table has no rows")
)

var tableHeader = []string{"Name", "Price", "Rating"}

// CSVTable stores products as a flat CSV file with a Name,Price,Rating header.
type CSVTable struct{}

// NewCSVTable returns the CSV table store.
func NewCSVTable() *CSVTable {
	return &CSVTable{}
}

// Write replaces the file at path with a header and one row per product.
// Rows go to a temporary file in the same directory which is then renamed
// over path, so readers never observe a partially written table.
func (t *CSVTable) Write(path string, products []models.Product) error {
	if path == "" {
		return models.NewStorageError("write table", fmt.Errorf("empty path"))
	}
	if err := ensureDir(path); err != nil {
		return models.NewStorageError("write table", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return models.NewStorageError("create temp table", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := writeRows(tmp, products); err != nil {
		return models.NewStorageError("write table "+path, err)
	}
	if err := tmp.Sync(); err != nil {
		return models.NewStorageError("sync table "+path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return models.NewStorageError("chmod table "+path, err)
	}
	if err := tmp.Close(); err != nil {
		return models.NewStorageError("close table "+path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return models.NewStorageError("replace table "+path, err)
	}
	committed = true
	return nil
}

func writeRows(w io.Writer, products []models.Product) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(tableHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range products {
		record := []string{
			p.Name,
			strconv.FormatFloat(p.Price, 'f', -1, 64),
			strconv.Itoa(p.Rating),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Read loads every row of the table at path. The header must match the one
// Write produces and the table must hold at least one row.
func (t *CSVTable) Read(path string) ([]models.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(tableHeader)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: file is empty", ErrHeaderMismatch)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, name := range tableHeader {
		if header[i] != name {
			return nil, fmt.Errorf("%w: got %v, want %v", ErrHeaderMismatch, header, tableHeader)
		}
	}

	var products []models.Product
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		product, err := decodeRow(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		products = append(products, product)
	}

	if len(products) == 0 {
		return nil, ErrEmptyTable
	}
	return products, nil
}

func decodeRow(record []string) (models.Product, error) {
	price, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return models.Product{}, fmt.Errorf("parse price %q: %w", record[1], err)
	}
	rating, err := strconv.Atoi(record[2])
	if err != nil {
		return models.Product{}, fmt.Errorf("parse rating %q: %w", record[2], err)
	}
	product := models.Product{Name: record[0], Price: price, Rating: rating}
	if err := parser.ValidateProduct(product); err != nil {
		return models.Product{}, err
	}
	return product, nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
