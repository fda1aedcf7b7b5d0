package evaluation

import "math"

// Aggregate combines per-criterion results into the overall score and
// grade via importance-weighted averaging. The result is independent of
// the order of the input slice.
type Aggregate struct {
	OverallScore float64 `json:"overallScore"`
	Grade        Grade   `json:"grade"`
}

// Aggregated computes the weighted mean of the results, rounded to two
// decimals, and its grade. An empty slice yields a zero score; the
// engine's totality guarantee means that should not happen in practice.
func Aggregated(results []Result) Aggregate {
	if len(results) == 0 {
		return Aggregate{OverallScore: 0, Grade: GradeFor(0)}
	}

	var weightedSum, totalWeight float64
	for _, r := range results {
		w := WeightOf(r.CriteriaID)
		weightedSum += float64(r.Score) * w
		totalWeight += w
	}

	overall := Round2(weightedSum / totalWeight)
	return Aggregate{OverallScore: overall, Grade: GradeFor(overall)}
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// CategoryScores averages criterion scores per reporting category.
func CategoryScores(results []Result) map[Category]float64 {
	sums := make(map[Category]float64)
	counts := make(map[Category]int)

	for _, r := range results {
		cat := CategoryOf(r.CriteriaID)
		sums[cat] += float64(r.Score)
		counts[cat]++
	}

	averages := make(map[Category]float64, len(sums))
	for cat, sum := range sums {
		averages[cat] = Round2(sum / float64(counts[cat]))
	}
	return averages
}
