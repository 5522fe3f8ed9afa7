package render

import "strings"

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// Sparkline compresses values into width block characters. Buckets average
// the values they cover.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if width > len(values) {
		width = len(values)
	}

	buckets := make([]float64, width)
	for i := range buckets {
		from := i * len(values) / width
		to := (i + 1) * len(values) / width
		sum := 0.0
		for _, v := range values[from:to] {
			sum += v
		}
		buckets[i] = sum / float64(to-from)
	}

	lo, hi := buckets[0], buckets[0]
	for _, b := range buckets {
		lo = min(lo, b)
		hi = max(hi, b)
	}

	var sb strings.Builder
	for _, b := range buckets {
		idx := 0
		if hi > lo {
			idx = int((b - lo) / (hi - lo) * float64(len(sparkTicks)-1))
		}
		sb.WriteRune(sparkTicks[idx])
	}
	return sb.String()
}
