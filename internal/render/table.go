package render

import (
	"fmt"
	"strconv"

	"t5index/internal/domain"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// DefaultRows is how many rows the dashboards show from each end of a series.
const DefaultRows = 10

// Head returns the first n observations of s.
func Head(s domain.AssetSeries, n int) []domain.Observation {
	if n <= 0 {
		return nil
	}
	if n > len(s.Points) {
		n = len(s.Points)
	}
	return append([]domain.Observation(nil), s.Points[:n]...)
}

// Tail returns the last n observations of s.
func Tail(s domain.AssetSeries, n int) []domain.Observation {
	if n <= 0 {
		return nil
	}
	if n > len(s.Points) {
		n = len(s.Points)
	}
	return append([]domain.Observation(nil), s.Points[len(s.Points)-n:]...)
}

// FormatPrice prints USD prices with precision that suits their magnitude;
// ADA and XRP trade well under a dollar.
func FormatPrice(p float64) string {
	switch {
	case p >= 1000:
		return strconv.FormatFloat(p, 'f', 2, 64)
	case p >= 1:
		return strconv.FormatFloat(p, 'f', 4, 64)
	default:
		return strconv.FormatFloat(p, 'f', 6, 64)
	}
}

// ObservationTable renders rows as a bordered two-column text table.
func ObservationTable(symbol string, rows []domain.Observation) string {
	data := make([][]string, len(rows))
	for i, o := range rows {
		data[i] = []string{o.Time.UTC().Format(labelLayout), FormatPrice(o.Price)}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("date", fmt.Sprintf("%s (USD)", symbol)).
		Rows(data...).
		String()
}

// WeightsTable renders the weight table as a bordered text table.
func WeightsTable(weights domain.WeightTable) string {
	data := make([][]string, 0, len(weights))
	for _, sym := range weights.Symbols() {
		data = append(data, []string{sym, fmt.Sprintf("%.2f%%", weights[sym]*100)})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("symbol", "weight").
		Rows(data...).
		String()
}
