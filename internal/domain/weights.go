package domain

import (
	"fmt"
	"sort"
	"strings"
)

// WeightTable maps an asset symbol to its non-negative index weight.
type WeightTable map[string]float64

// DefaultWeights returns the T5 constituent weights.
func DefaultWeights() WeightTable {
	return WeightTable{
		"BTC": 0.50,
		"ETH": 0.25,
		"XRP": 0.10,
		"SOL": 0.10,
		"ADA": 0.05,
	}
}

// Sum adds up every weight in the table.
func (w WeightTable) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Symbols returns all symbols ordered by weight (largest first). Ties keep
// the SupportedSymbols display order; unknown symbols follow by name.
func (w WeightTable) Symbols() []string {
	out := make([]string, 0, len(w))
	for sym := range w {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool {
		if w[out[i]] != w[out[j]] {
			return w[out[i]] > w[out[j]]
		}
		ri, rj := displayRank(out[i]), displayRank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

func displayRank(symbol string) int {
	for i, s := range SupportedSymbols {
		if s == symbol {
			return i
		}
	}
	return len(SupportedSymbols)
}

// Active returns the symbols with a non-zero weight, in Symbols order.
func (w WeightTable) Active() []string {
	var out []string
	for _, sym := range w.Symbols() {
		if w[sym] != 0 {
			out = append(out, sym)
		}
	}
	return out
}

// Title renders the table for chart titles, e.g. "BTC (50%), ETH (25%)".
func (w WeightTable) Title() string {
	parts := make([]string, 0, len(w))
	for _, sym := range w.Active() {
		parts = append(parts, fmt.Sprintf("%s (%s%%)", sym, formatPercent(w[sym]*100)))
	}
	return strings.Join(parts, ", ")
}

// Clone returns an independent copy of the table.
func (w WeightTable) Clone() WeightTable {
	out := make(WeightTable, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

func formatPercent(p float64) string {
	s := fmt.Sprintf("%.2f", p)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
