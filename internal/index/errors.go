package index

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInput is wrapped by every error BuildIndex returns. All of them
// are deterministic input failures and retrying with the same input fails
// the same way.
var ErrInvalidInput = errors.New("invalid index input")

// InvalidWeightsError reports a weight table that is not a valid allocation.
type InvalidWeightsError struct {
	Sum    float64
	Symbol string // set when a single weight is negative or not finite
}

func (e *InvalidWeightsError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("invalid weight for %s", e.Symbol)
	}
	return fmt.Sprintf("weights sum to %.6f, expected 1", e.Sum)
}

func (e *InvalidWeightsError) Unwrap() error { return ErrInvalidInput }

// MissingAssetError reports a weighted symbol with no series supplied.
type MissingAssetError struct {
	Symbol string
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("no price series for %s", e.Symbol)
}

func (e *MissingAssetError) Unwrap() error { return ErrInvalidInput }

// EmptySeriesError reports a weighted symbol whose series has no observations.
type EmptySeriesError struct {
	Symbol string
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("price series for %s is empty", e.Symbol)
}

func (e *EmptySeriesError) Unwrap() error { return ErrInvalidInput }

// NoOverlapError reports that the constituent series share no calendar day.
type NoOverlapError struct {
	Symbols []string
}

func (e *NoOverlapError) Error() string {
	return fmt.Sprintf("no common dates across %s", strings.Join(e.Symbols, ", "))
}

func (e *NoOverlapError) Unwrap() error { return ErrInvalidInput }

// InvalidPriceError reports a non-positive or non-finite price in a
// participating series.
type InvalidPriceError struct {
	Symbol string
	Time   time.Time
	Price  float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %v for %s at %s", e.Price, e.Symbol, e.Time.UTC().Format("2006-01-02"))
}

func (e *InvalidPriceError) Unwrap() error { return ErrInvalidInput }
