// Package dashboard generates the fixed-data sample analytics shown on the
// performance dashboard. The data is deterministic demo content, not live
// telemetry.
package dashboard

import "time"

// MetricCard is one headline metric tile.
type MetricCard struct {
	Label     string  `json:"label"`
	Value     string  `json:"value"`
	Delta     string  `json:"delta"`
	Direction string  `json:"direction"` // "up", "down", "flat"
	Raw       float64 `json:"raw"`
}

// Point is one day of the sample production series.
type Point struct {
	Date         string  `json:"date"` // YYYY-MM-DD
	Production   float64 `json:"production"`
	QualityScore float64 `json:"quality_score"`
	Defects      float64 `json:"defects"`
	Efficiency   float64 `json:"efficiency"`
}

// SummaryMetrics returns the four headline cards.
func SummaryMetrics() []MetricCard {
	return []MetricCard{
		{Label: "Avg Production", Value: "245.6", Delta: "+12.3%", Direction: "up", Raw: 245.6},
		{Label: "Quality Score", Value: "94.8%", Delta: "+2.1%", Direction: "up", Raw: 94.8},
		{Label: "Efficiency", Value: "87.3%", Delta: "-0.5%", Direction: "flat", Raw: 87.3},
		{Label: "Defect Rate", Value: "3.2%", Delta: "+0.8%", Direction: "down", Raw: 3.2},
	}
}

// seriesStart anchors the sample year.
var seriesStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// seriesLength covers all of 2024.
const seriesLength = 366

// Series returns the last `days` entries of the sample year, oldest first.
// days <= 0 or days > the year length returns the whole year. The values are
// pure functions of the day index, so repeated calls return identical data.
func Series(days int) []Point {
	if days <= 0 || days > seriesLength {
		days = seriesLength
	}

	out := make([]Point, 0, days)
	for i := seriesLength - days; i < seriesLength; i++ {
		out = append(out, Point{
			Date:         seriesStart.AddDate(0, 0, i).Format("2006-01-02"),
			Production:   100 + float64(i)*0.5 + float64(i%30)*2,
			QualityScore: 95 + float64(i%10)*0.5 - float64(i%50)*0.1,
			Defects:      5 - float64(i%20)*0.2 + float64(i%15)*0.3,
			Efficiency:   85 + float64(i%25)*0.8 + float64(i%40)*0.3,
		})
	}
	return out
}
