package parser

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-price-report/models"
)

const podSelector = "article.product_pod"

var (
	// ErrMissingNode is returned when a product pod lacks a required element.
	ErrMissingNode = errors.New("missing node")
	// ErrMissingAttr is returned when a required attribute is absent.
	ErrMissingAttr = errors.New("missing attribute")
)

// Extractor turns a catalogue page into products.
type Extractor struct {
	skipMalformed bool
}

// NewExtractor builds an extractor. With skipMalformed unset, extraction
// stops at the first malformed product pod.
func NewExtractor(skipMalformed bool) *Extractor {
	return &Extractor{skipMalformed: skipMalformed}
}

// Extract returns the products on the page in document order. A page with
// no product pods yields an empty slice and no error. When extraction stops
// at a malformed pod, the products before it are returned with the ParseError.
func (x *Extractor) Extract(body []byte) ([]models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, models.NewParseError("parse document", err)
	}

	pods := doc.Find(podSelector)
	products := make([]models.Product, 0, pods.Length())
	skipped := 0
	var parseErr error

	pods.EachWithBreak(func(i int, pod *goquery.Selection) bool {
		product, err := extractProduct(pod)
		if err == nil {
			products = append(products, product)
			return true
		}
		if x.skipMalformed {
			skipped++
			slog.Warn("skipping malformed product", slog.Int("index", i+1), slog.Any("error", err))
			return true
		}
		parseErr = models.NewParseError(fmt.Sprintf("product %d", i+1), err)
		return false
	})

	if parseErr != nil {
		return products, parseErr
	}
	if skipped > 0 {
		slog.Warn("malformed products skipped",
			slog.Int("skipped", skipped),
			slog.Int("extracted", len(products)),
		)
	}
	slog.Debug("products extracted", slog.Int("pods", pods.Length()), slog.Int("products", len(products)))
	return products, nil
}

func extractProduct(pod *goquery.Selection) (models.Product, error) {
	link := pod.Find("h3 a").First()
	if link.Length() == 0 {
		return models.Product{}, fmt.Errorf("name: %w: h3 a", ErrMissingNode)
	}
	name, ok := link.Attr("title")
	if !ok {
		return models.Product{}, fmt.Errorf("name: %w: title", ErrMissingAttr)
	}

	priceNode := pod.Find("p.price_color").First()
	if priceNode.Length() == 0 {
		return models.Product{}, fmt.Errorf("price: %w: p.price_color", ErrMissingNode)
	}
	price, err := ParsePrice(priceNode.Text())
	if err != nil {
		return models.Product{}, fmt.Errorf("price: %w", err)
	}

	ratingNode := pod.Find("p.star-rating").First()
	if ratingNode.Length() == 0 {
		return models.Product{}, fmt.Errorf("rating: %w: p.star-rating", ErrMissingNode)
	}
	class, _ := ratingNode.Attr("class")
	tokens := strings.Fields(class)
	if len(tokens) < 2 {
		return models.Product{}, fmt.Errorf("rating: %w: rating word in class %q", ErrMissingAttr, class)
	}

	return models.Product{
		Name:   name,
		Price:  price,
		Rating: RatingToNumeric(tokens[1]),
	}, nil
}
