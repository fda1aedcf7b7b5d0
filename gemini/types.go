// Package gemini provides the optional qualitative content analysis
// (E-E-A-T and content-quality sub-scores from a generative model) and
// the fusion of that analysis into the deterministic aggregate score.
package gemini

import (
	"fmt"

	"github.com/llmo-checker/backend/crawler"
	"github.com/llmo-checker/backend/parser"
)

// AnalysisError wraps a failed or unparseable analyzer response. It is
// always recovered locally: the pipeline degrades to the deterministic
// score and never surfaces this to the caller as a hard failure.
type AnalysisError struct {
	URL string
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("ai analysis for %s: %v", e.URL, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// SubScore is one qualitative dimension with supporting material.
type SubScore struct {
	Score    int      `json:"score"`
	Evidence []string `json:"evidence,omitempty"`
	Issues   []string `json:"issues,omitempty"`
}

// EEAT holds the four qualitative E-E-A-T pillar scores.
type EEAT struct {
	Experience        SubScore `json:"experience"`
	Expertise         SubScore `json:"expertise"`
	Authoritativeness SubScore `json:"authoritativeness"`
	Trustworthiness   SubScore `json:"trustworthiness"`
}

// QualityScore is one content-quality dimension with an assessment.
type QualityScore struct {
	Score      int      `json:"score"`
	Assessment string   `json:"assessment,omitempty"`
	Issues     []string `json:"issues,omitempty"`
}

// ContentQuality holds the five content-quality sub-scores.
type ContentQuality struct {
	Clarity      QualityScore `json:"clarity"`
	Completeness QualityScore `json:"completeness"`
	Accuracy     QualityScore `json:"accuracy"`
	Uniqueness   QualityScore `json:"uniqueness"`
	UserIntent   QualityScore `json:"userIntent"`
}

// Improvement is one model-suggested change.
type Improvement struct {
	Category       string `json:"category"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Implementation string `json:"implementation,omitempty"`
	ExpectedImpact string `json:"expectedImpact,omitempty"`
	Priority       int    `json:"priority"` // 1-10
	Effort         string `json:"effort"`   // low / medium / high
}

// AIAnalysis is the analyzer's full qualitative assessment.
type AIAnalysis struct {
	EEAT             EEAT           `json:"eeat"`
	ContentQuality   ContentQuality `json:"contentQuality"`
	Improvements     []Improvement  `json:"improvements"`
	Strengths        []string       `json:"strengths,omitempty"`
	Weaknesses       []string       `json:"weaknesses,omitempty"`
	Confidence       int            `json:"confidence"` // 0-100
	ProcessingTimeMs int            `json:"processingTimeMs"`
}

// Request carries the signals the analyzer reasons over.
type Request struct {
	URL      string
	HTML     string
	Metadata parser.PageMetadata
	Content  parser.ContentAnalysis
	Signals  crawler.TechnicalSignals
}
