package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrInvalidObservation is returned when a series contains a point that
// cannot take part in an index: duplicate timestamps or a price that is not
// a positive finite number.
var ErrInvalidObservation = errors.New("invalid observation")

// Observation is a single USD price at a point in time.
type Observation struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// AssetSeries is an ordered price history for one asset. Points are sorted by
// time with strictly increasing timestamps; nothing mutates them once built.
type AssetSeries struct {
	Symbol string        `json:"symbol"`
	Points []Observation `json:"points"`
}

// NewAssetSeries sorts points by time and validates them.
func NewAssetSeries(symbol string, points []Observation) (AssetSeries, error) {
	sorted := make([]Observation, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	for i, p := range sorted {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0 {
			return AssetSeries{}, fmt.Errorf("%w: %s price %v at %s", ErrInvalidObservation, symbol, p.Price, p.Time.Format(time.RFC3339))
		}
		if i > 0 && !sorted[i-1].Time.Before(p.Time) {
			return AssetSeries{}, fmt.Errorf("%w: %s duplicate timestamp %s", ErrInvalidObservation, symbol, p.Time.Format(time.RFC3339))
		}
	}

	return AssetSeries{Symbol: symbol, Points: sorted}, nil
}

// Len returns the number of observations.
func (s AssetSeries) Len() int {
	return len(s.Points)
}

// First returns the earliest observation. ok is false for an empty series.
func (s AssetSeries) First() (Observation, bool) {
	if len(s.Points) == 0 {
		return Observation{}, false
	}
	return s.Points[0], true
}

// Last returns the latest observation. ok is false for an empty series.
func (s AssetSeries) Last() (Observation, bool) {
	if len(s.Points) == 0 {
		return Observation{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// AlignedRow holds one price per symbol for a single calendar day. Prices are
// in the column order of the owning AlignedFrame.
type AlignedRow struct {
	Time   time.Time
	Prices []float64
}

// AlignedFrame is the inner join of several series on a common calendar.
type AlignedFrame struct {
	Symbols []string
	Rows    []AlignedRow
}

// IndexPoint is one value of a composite index.
type IndexPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// IndexSeries is a composite index ordered by ascending time.
type IndexSeries []IndexPoint

// Values returns the index values without timestamps.
func (s IndexSeries) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}
