package diagnosis

import "github.com/llmo-checker/backend/evaluation"

// Improvements collects the suggestions from every criterion that
// scored fair or poor, deduplicated, preserving first-seen order.
func Improvements(d *Diagnosis) []string {
	seen := make(map[string]bool)
	var out []string

	for _, ev := range d.Evaluations {
		if ev.Status != evaluation.StatusPoor && ev.Status != evaluation.StatusFair {
			continue
		}
		for _, s := range ev.Suggestions {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// CategorySummary is one reporting category's average score with its
// fine-grained display grade. The fine 9-band scale is presentation
// only; the Diagnosis grade always uses the primary 5-band scale.
type CategorySummary struct {
	Category evaluation.Category `json:"category"`
	Score    float64             `json:"score"`
	Grade    string              `json:"grade"`
}

// CategorySummaries averages criterion scores per category.
func CategorySummaries(d *Diagnosis) []CategorySummary {
	averages := evaluation.CategoryScores(d.Evaluations)

	order := []evaluation.Category{
		evaluation.CategoryEEAT,
		evaluation.CategoryEntity,
		evaluation.CategoryAIAffinity,
		evaluation.CategoryQuality,
		evaluation.CategoryStructure,
		evaluation.CategoryTechnical,
		evaluation.CategoryOther,
	}

	var out []CategorySummary
	for _, cat := range order {
		if score, ok := averages[cat]; ok {
			out = append(out, CategorySummary{
				Category: cat,
				Score:    score,
				Grade:    evaluation.FineGradeFor(score),
			})
		}
	}
	return out
}
