package gemini

import "github.com/llmo-checker/backend/evaluation"

// Fuse blends the qualitative analysis into the deterministic base
// score. The AI contribution is capped at 20% and scaled by the model's
// self-reported confidence, so a noisy assessment cannot move the
// result by more than 20 points. A nil analysis leaves the base score
// untouched.
func Fuse(base evaluation.Aggregate, ai *AIAnalysis) evaluation.Aggregate {
	if ai == nil {
		return base
	}

	eeatAvg := float64(ai.EEAT.Experience.Score+
		ai.EEAT.Expertise.Score+
		ai.EEAT.Authoritativeness.Score+
		ai.EEAT.Trustworthiness.Score) / 4

	qualityAvg := float64(ai.ContentQuality.Clarity.Score+
		ai.ContentQuality.Completeness.Score+
		ai.ContentQuality.Accuracy.Score+
		ai.ContentQuality.Uniqueness.Score+
		ai.ContentQuality.UserIntent.Score) / 5

	aiScore := (eeatAvg + qualityAvg) / 2
	confidenceWeight := float64(ai.Confidence) / 100

	fused := base.OverallScore*0.8 + aiScore*0.2*confidenceWeight
	overall := evaluation.Round2(fused)

	return evaluation.Aggregate{
		OverallScore: overall,
		Grade:        evaluation.GradeFor(overall),
	}
}
