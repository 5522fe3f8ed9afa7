package provider

import (
	"math"
	"sort"
	"time"

	"t5index/internal/daterange"
	"t5index/internal/domain"
	"t5index/internal/index"
)

type pricePoint struct {
	ts    time.Time
	price float64
}

// collapseDaily keeps the last valid price of each UTC day inside r and
// stamps it with the day start. Non-positive and non-finite prices are
// dropped.
func collapseDaily(symbol string, points []pricePoint, r daterange.Range) (domain.AssetSeries, error) {
	sort.Slice(points, func(i, j int) bool { return points[i].ts.Before(points[j].ts) })

	byDay := make(map[int64]float64)
	for _, p := range points {
		if p.price <= 0 || math.IsNaN(p.price) || math.IsInf(p.price, 0) {
			continue
		}
		day := index.DayStart(p.ts)
		if day.Before(r.Start) || day.After(r.End) {
			continue
		}
		byDay[day.Unix()] = p.price
	}
	if len(byDay) == 0 {
		return domain.AssetSeries{Symbol: symbol}, nil
	}

	obs := make([]domain.Observation, 0, len(byDay))
	for day, price := range byDay {
		obs = append(obs, domain.Observation{Time: time.Unix(day, 0).UTC(), Price: price})
	}
	return domain.NewAssetSeries(symbol, obs)
}
