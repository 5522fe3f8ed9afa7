package domain

import (
	"time"

	"github.com/google/uuid"
)

// IndexRun is the archived summary of one successful index build.
type IndexRun struct {
	ID         uuid.UUID   `json:"id"`
	Source     string      `json:"source"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	Points     int         `json:"points"`
	FirstValue float64     `json:"first_value"`
	LastValue  float64     `json:"last_value"`
	Weights    WeightTable `json:"weights"`
	CreatedAt  time.Time   `json:"created_at"`
}
