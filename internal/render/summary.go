package render

import (
	"fmt"
	"time"

	"t5index/internal/domain"
)

// Summary describes an index series at a glance.
type Summary struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Points    int       `json:"points"`
	First     float64   `json:"first"`
	Last      float64   `json:"last"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	ChangePct float64   `json:"change_pct"`
}

// Summarize returns false for an empty series.
func Summarize(idx domain.IndexSeries) (Summary, bool) {
	if len(idx) == 0 {
		return Summary{}, false
	}
	s := Summary{
		Start:  idx[0].Time,
		End:    idx[len(idx)-1].Time,
		Points: len(idx),
		First:  idx[0].Value,
		Last:   idx[len(idx)-1].Value,
		Min:    idx[0].Value,
		Max:    idx[0].Value,
	}
	for _, p := range idx {
		s.Min = min(s.Min, p.Value)
		s.Max = max(s.Max, p.Value)
	}
	s.ChangePct = (s.Last/s.First - 1) * 100
	return s, true
}

func (s Summary) String() string {
	return fmt.Sprintf("%s to %s: %.2f → %.2f (%+.2f%%), range %.2f–%.2f over %d days",
		s.Start.UTC().Format(labelLayout), s.End.UTC().Format(labelLayout),
		s.First, s.Last, s.ChangePct, s.Min, s.Max, s.Points)
}
