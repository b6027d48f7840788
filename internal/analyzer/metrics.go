package analyzer

import (
	"math"

	"keyword-analyzer/internal/sources"
)

// Metrics holds the derived scores for one keyword. All values are rounded
// to two decimals.
type Metrics struct {
	GrowthRate  float64 `json:"growth_rate"`
	Importance  float64 `json:"importance"`
	Potential   float64 `json:"potential"`
	Difficulty  float64 `json:"difficulty"`
	Opportunity float64 `json:"opportunity"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compute derives all five scores from a merged record. An empty trend
// series yields all-zero metrics.
func Compute(rec MergedRecord) Metrics {
	if len(rec.TrendSeries) == 0 {
		return Metrics{}
	}

	var m Metrics
	m.GrowthRate = growthRate(rec.TrendSeries)

	competition := 0.0
	if rec.Competition != nil {
		competition = *rec.Competition
	}

	m.Importance = importance(rec.AvgSearchVolume, competition)
	m.Potential = round2(m.Importance*0.7 + math.Max(0, m.GrowthRate)*0.3)
	m.Difficulty = difficulty(competition, rec.TotalProducts)
	m.Opportunity = round2(math.Max(0, m.Importance-m.Difficulty*0.5))
	return m
}

// growthRate splits the series into first and second halves at the midpoint
// and returns the percentage change between the half averages. Fewer than
// two points, or a zero first-half average, yields zero.
func growthRate(series []sources.TrendObservation) float64 {
	if len(series) < 2 {
		return 0
	}
	mid := len(series) / 2
	first := seriesAvg(series[:mid])
	second := seriesAvg(series[mid:])
	if first == 0 {
		return 0
	}
	return round2((second - first) / first * 100)
}

func seriesAvg(series []sources.TrendObservation) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, obs := range series {
		sum += obs.Value()
	}
	return sum / float64(len(series))
}

// importance weighs volume against competition and caps at 100.
func importance(avgVolume, competition float64) float64 {
	if avgVolume <= 0 {
		return 0
	}
	return round2(math.Min(100, avgVolume/10*(1-competition/100)))
}

// difficulty blends competition with market saturation. Both signals must be
// present, otherwise the score is zero rather than a misleading low value.
func difficulty(competition float64, totalProducts int) float64 {
	if competition <= 0 || totalProducts <= 0 {
		return 0
	}
	saturation := math.Min(100, float64(totalProducts)/100)
	return round2(competition*0.7 + saturation*0.3)
}

// IsLongtail reports whether a keyword qualifies as a longtail candidate:
// competition at most 50 and average volume at least 10. Unknown
// competition counts as maximally competitive and disqualifies.
func IsLongtail(competition *float64, avgVolume float64) bool {
	comp := 100.0
	if competition != nil {
		comp = *competition
	}
	return comp <= 50 && avgVolume >= 10
}
