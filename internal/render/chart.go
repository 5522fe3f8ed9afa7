// Package render turns built index series into charts, tables and
// terminal-friendly summaries.
package render

import (
	"errors"
	"fmt"

	"t5index/internal/domain"

	"github.com/vicanso/go-charts/v2"
)

const labelLayout = "2006-01-02"

var ErrEmptyIndex = errors.New("index has no points")

type ChartOptions struct {
	Width  int
	Height int
}

func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 900, Height: 450}
}

// IndexChartPNG draws idx as a single line chart titled with the weight
// table.
func IndexChartPNG(idx domain.IndexSeries, weights domain.WeightTable, opts ChartOptions) ([]byte, error) {
	if len(idx) == 0 {
		return nil, ErrEmptyIndex
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = DefaultChartOptions()
	}

	labels := make([]string, len(idx))
	for i, p := range idx {
		labels[i] = p.Time.UTC().Format(labelLayout)
	}
	values := idx.Values()
	yMin, yMax := paddedRange(values)

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc("T5 Index\n"+weights.Title()),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNumber(len(labels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(opts.Width),
		charts.HeightOptionFunc(opts.Height),
	)
	if err != nil {
		return nil, fmt.Errorf("render index chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode index chart: %w", err)
	}
	return buf, nil
}

// paddedRange widens [min, max] by 5% so the line never touches the frame.
func paddedRange(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = hi * 0.05
	}
	return lo - pad, hi + pad
}

func splitNumber(n int) int {
	if n > 30 {
		return 6
	}
	split := n / 3
	if split < 1 {
		split = 1
	}
	return split
}
