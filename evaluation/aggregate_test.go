package evaluation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func uniformResults(score int) []Result {
	results := make([]Result, 0, len(criterionOrder))
	for _, c := range criterionOrder {
		results = append(results, newResult(c, score, nil, nil))
	}
	return results
}

func TestAggregatedUniformScores(t *testing.T) {
	// With every criterion at the same score the weights cancel out.
	agg := Aggregated(uniformResults(60))
	assert.Equal(t, 60.0, agg.OverallScore)
	assert.Equal(t, GradeD, agg.Grade)

	agg = Aggregated(uniformResults(100))
	assert.Equal(t, 100.0, agg.OverallScore)
	assert.Equal(t, GradeA, agg.Grade)
}

func TestAggregatedOrderIndependence(t *testing.T) {
	results := uniformResults(0)
	for i := range results {
		results[i].Score = (i * 13) % 101
	}

	want := Aggregated(results)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := make([]Result, len(results))
		copy(shuffled, results)
		r.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, Aggregated(shuffled))
	}
}

func TestAggregatedWeighting(t *testing.T) {
	// A high-weight criterion moves the average more than a low-weight
	// one raised by the same amount.
	base := uniformResults(50)

	heavy := make([]Result, len(base))
	copy(heavy, base)
	heavy[0] = newResult(Experience, 100, nil, nil) // weight 1.5

	light := make([]Result, len(base))
	copy(light, base)
	light[17] = newResult(LlmsTxt, 100, nil, nil) // weight 0.8

	assert.Greater(t, Aggregated(heavy).OverallScore, Aggregated(light).OverallScore)
}

func TestAggregatedEmpty(t *testing.T) {
	agg := Aggregated(nil)
	assert.Equal(t, 0.0, agg.OverallScore)
	assert.Equal(t, GradeF, agg.Grade)
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Grade
	}{
		{100, GradeA},
		{90, GradeA},
		{89.99, GradeB},
		{80, GradeB},
		{79.99, GradeC},
		{70, GradeC},
		{60, GradeD},
		{59.99, GradeF},
		{0, GradeF},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.score), "score %.2f", tt.score)
	}
}

func TestFineGradeFor(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{97, "A+"},
		{92, "A"},
		{85, "B+"},
		{75, "B"},
		{65, "C+"},
		{55, "C"},
		{45, "D+"},
		{35, "D"},
		{10, "F"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FineGradeFor(tt.score), "score %.2f", tt.score)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 79.99, Round2(79.994))
	assert.Equal(t, 80.0, Round2(79.996))
	assert.Equal(t, 66.67, Round2(66.666666))
	assert.Equal(t, 0.0, Round2(0))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusExcellent, StatusOf(80))
	assert.Equal(t, StatusGood, StatusOf(79))
	assert.Equal(t, StatusGood, StatusOf(60))
	assert.Equal(t, StatusFair, StatusOf(59))
	assert.Equal(t, StatusFair, StatusOf(40))
	assert.Equal(t, StatusPoor, StatusOf(39))
}

func TestCategoryScores(t *testing.T) {
	results := []Result{
		newResult(Experience, 80, nil, nil),
		newResult(Expertise, 60, nil, nil),
		newResult(LlmsTxt, 90, nil, nil),
	}

	scores := CategoryScores(results)
	assert.Equal(t, 70.0, scores[CategoryEEAT])
	assert.Equal(t, 90.0, scores[CategoryOther])
}
