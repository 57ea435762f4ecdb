package parser

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-price-report/models"
)

var (
	// ErrNoDigits is returned when price text carries no digits at all.
	ErrNoDigits = errors.New("price has no digits")
	// ErrInvalidPrice is returned when the cleaned price is not a number.
	ErrInvalidPrice = errors.New("invalid price")

	nonPriceChars = regexp.MustCompile(`[^0-9.]`)
)

// ParsePrice strips everything but digits and decimal points from a
// currency-formatted string and converts the rest to a number.
func ParsePrice(text string) (float64, error) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	if !strings.ContainsAny(cleaned, "0123456789") {
		return 0, fmt.Errorf("%w: %q", ErrNoDigits, text)
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, text)
	}
	return price, nil
}

// RatingToNumeric converts the textual rating to a numeric scale.
// Unrecognised words map to 0.
func RatingToNumeric(rating string) int {
	switch rating {
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}

// ValidateProduct checks the value ranges a table row must satisfy.
func ValidateProduct(p models.Product) error {
	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return fmt.Errorf("price for %q is not finite", p.Name)
	}
	if p.Price < 0 {
		return fmt.Errorf("price for %q is negative", p.Name)
	}
	if p.Rating < 0 || p.Rating > 5 {
		return fmt.Errorf("rating for %q out of range: %d", p.Name, p.Rating)
	}
	return nil
}
