// Package index builds a fixed-weight composite price index from per-asset
// daily price series.
package index

import (
	"math"
	"sort"
	"time"

	"t5index/internal/domain"
)

const (
	// BaseValue is the value of the index on its first aligned day.
	BaseValue = 1000.0

	// WeightTolerance bounds how far the weight sum may stray from 1.
	WeightTolerance = 1e-6
)

// BuildIndex aligns the weighted series on common UTC days and returns the
// weighted sum of prices rebased so the earliest common day equals BaseValue.
//
// The base day depends on the data: builds over different windows are on
// different bases and are not directly comparable.
func BuildIndex(series map[string]domain.AssetSeries, weights domain.WeightTable) (domain.IndexSeries, error) {
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}

	symbols := participants(weights)
	for _, sym := range symbols {
		if _, ok := series[sym]; !ok {
			return nil, &MissingAssetError{Symbol: sym}
		}
	}
	for _, sym := range symbols {
		if series[sym].Len() == 0 {
			return nil, &EmptySeriesError{Symbol: sym}
		}
		for _, p := range series[sym].Points {
			if !validPrice(p.Price) {
				return nil, &InvalidPriceError{Symbol: sym, Time: p.Time, Price: p.Price}
			}
		}
	}

	frame := Align(series, symbols)
	if len(frame.Rows) == 0 {
		return nil, &NoOverlapError{Symbols: symbols}
	}

	w := make([]float64, len(symbols))
	for i, sym := range symbols {
		w[i] = weights[sym]
	}

	raw := make([]float64, len(frame.Rows))
	for i, row := range frame.Rows {
		for j, price := range row.Prices {
			raw[i] += price * w[j]
		}
	}

	base := raw[0]
	out := make(domain.IndexSeries, len(raw))
	for i, v := range raw {
		out[i] = domain.IndexPoint{Time: frame.Rows[i].Time, Value: v / base * BaseValue}
	}
	return out, nil
}

// ValidateWeights checks that every weight is a finite non-negative number
// and that the table sums to 1 within WeightTolerance.
func ValidateWeights(weights domain.WeightTable) error {
	for _, sym := range weights.Symbols() {
		v := weights[sym]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &InvalidWeightsError{Symbol: sym, Sum: weights.Sum()}
		}
	}
	sum := weights.Sum()
	if math.Abs(sum-1) > WeightTolerance {
		return &InvalidWeightsError{Sum: sum}
	}
	return nil
}

// Align inner-joins the named series on the UTC calendar day. When a series
// has several observations on one day the latest wins. Rows come back in
// ascending day order with prices in the order of symbols.
func Align(series map[string]domain.AssetSeries, symbols []string) domain.AlignedFrame {
	frame := domain.AlignedFrame{Symbols: append([]string(nil), symbols...)}
	if len(symbols) == 0 {
		return frame
	}

	byDay := make([]map[int64]float64, len(symbols))
	for i, sym := range symbols {
		days := make(map[int64]float64, series[sym].Len())
		for _, p := range series[sym].Points {
			days[dayKey(p.Time)] = p.Price
		}
		byDay[i] = days
	}

	common := make([]int64, 0, len(byDay[0]))
	for day := range byDay[0] {
		shared := true
		for _, other := range byDay[1:] {
			if _, ok := other[day]; !ok {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, day)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })

	frame.Rows = make([]domain.AlignedRow, len(common))
	for r, day := range common {
		prices := make([]float64, len(symbols))
		for i := range symbols {
			prices[i] = byDay[i][day]
		}
		frame.Rows[r] = domain.AlignedRow{Time: time.Unix(day, 0).UTC(), Prices: prices}
	}
	return frame
}

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0)
}

func dayKey(t time.Time) int64 {
	return DayStart(t).Unix()
}

// participants returns the symbols with non-zero weight in a stable order.
func participants(weights domain.WeightTable) []string {
	out := weights.Active()
	sort.Strings(out)
	return out
}
