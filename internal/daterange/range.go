// Package daterange validates requested index windows against a data
// source's lookback limit before anything is fetched.
package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const layout = "2006-01-02"

var (
	// ErrInvalidRange is wrapped by every validation failure below.
	ErrInvalidRange = errors.New("invalid date range")

	ErrInvertedRange   = fmt.Errorf("%w: end date is before start date", ErrInvalidRange)
	ErrFutureEnd       = fmt.Errorf("%w: end date is in the future", ErrInvalidRange)
	ErrRangeTooLong    = fmt.Errorf("%w: range exceeds the source lookback", ErrInvalidRange)
	ErrOutsideLookback = fmt.Errorf("%w: start date is older than the source lookback", ErrInvalidRange)
)

// Range is an inclusive window of UTC calendar days.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New truncates both bounds to UTC midnight.
func New(start, end time.Time) Range {
	return Range{Start: truncate(start), End: truncate(end)}
}

// Parse reads YYYY-MM-DD bounds.
func Parse(start, end string) (Range, error) {
	s, err := time.Parse(layout, strings.TrimSpace(start))
	if err != nil {
		return Range{}, fmt.Errorf("%w: start %q: expected YYYY-MM-DD", ErrInvalidRange, start)
	}
	e, err := time.Parse(layout, strings.TrimSpace(end))
	if err != nil {
		return Range{}, fmt.Errorf("%w: end %q: expected YYYY-MM-DD", ErrInvalidRange, end)
	}
	return New(s, e), nil
}

// Default returns the window of the last days days ending today.
func Default(days int, now time.Time) Range {
	today := truncate(now)
	return Range{Start: today.AddDate(0, 0, -days), End: today}
}

// Days is the span between Start and End in whole days.
func (r Range) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// EndOfDay returns the last instant of the End day.
func (r Range) EndOfDay() time.Time {
	return r.End.AddDate(0, 0, 1).Add(-time.Second)
}

// Key is a stable string form used for cache keys and logs.
func (r Range) Key() string {
	return r.Start.Format(layout) + ":" + r.End.Format(layout)
}

func (r Range) String() string {
	return r.Start.Format(layout) + " to " + r.End.Format(layout)
}

// Validate rejects windows the source cannot serve in full. maxLookbackDays
// bounds both the span and how far back Start may reach from now.
func Validate(r Range, maxLookbackDays int, now time.Time) error {
	today := truncate(now)
	if r.End.Before(r.Start) {
		return ErrInvertedRange
	}
	if r.End.After(today) {
		return ErrFutureEnd
	}
	if r.Days() > maxLookbackDays {
		return fmt.Errorf("%w (%d days > %d)", ErrRangeTooLong, r.Days(), maxLookbackDays)
	}
	if r.Start.Before(today.AddDate(0, 0, -maxLookbackDays)) {
		return fmt.Errorf("%w (max %d days)", ErrOutsideLookback, maxLookbackDays)
	}
	return nil
}

func truncate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
