// Package evaluation scores a page against the fixed 18-criterion
// LLM-optimization rubric and aggregates the results into an overall
// score and grade.
package evaluation

// Criterion identifies one of the 18 fixed scoring dimensions. The set
// is closed: identifiers are part of the stored-diagnosis contract and
// must never be renamed.
type Criterion string

const (
	Experience        Criterion = "experience"
	Expertise         Criterion = "expertise"
	Authoritativeness Criterion = "authoritativeness"
	Trustworthiness   Criterion = "trustworthiness"
	KnowledgeGraph    Criterion = "knowledge-graph"
	NAPConsistency    Criterion = "nap-consistency"
	ListUsage         Criterion = "list-usage"
	DefinitionSummary Criterion = "definition-summary"
	QAFormat          Criterion = "qa-format"
	SemanticHTML      Criterion = "semantic-html"
	InfoAccuracy      Criterion = "info-accuracy"
	HeadingStructure  Criterion = "heading-structure"
	LogicalStructure  Criterion = "logical-structure"
	ContentClarity    Criterion = "content-clarity"
	PageExperience    Criterion = "page-experience"
	Crawlability      Criterion = "crawlability"
	StructuredData    Criterion = "structured-data"
	LlmsTxt           Criterion = "llms-txt"
)

// Category groups criteria for per-category reporting.
type Category string

const (
	CategoryEEAT       Category = "eeat"
	CategoryEntity     Category = "entity"
	CategoryAIAffinity Category = "ai-affinity"
	CategoryQuality    Category = "quality"
	CategoryStructure  Category = "structure"
	CategoryTechnical  Category = "technical"
	CategoryOther      Category = "other"
)

type criterionInfo struct {
	weight   float64
	category Category
}

// criteria is the single source of truth for the criterion set: its
// iteration order (via criterionOrder), aggregation weights, and
// category grouping.
var criteria = map[Criterion]criterionInfo{
	Experience:        {1.5, CategoryEEAT},
	Expertise:         {1.5, CategoryEEAT},
	Authoritativeness: {1.5, CategoryEEAT},
	Trustworthiness:   {1.5, CategoryEEAT},
	KnowledgeGraph:    {1.5, CategoryEntity},
	NAPConsistency:    {1.5, CategoryEntity},
	ListUsage:         {1.2, CategoryAIAffinity},
	DefinitionSummary: {1.2, CategoryAIAffinity},
	QAFormat:          {1.2, CategoryAIAffinity},
	SemanticHTML:      {1.2, CategoryAIAffinity},
	InfoAccuracy:      {1.2, CategoryQuality},
	HeadingStructure:  {1.2, CategoryQuality},
	LogicalStructure:  {1.2, CategoryStructure},
	ContentClarity:    {1.2, CategoryStructure},
	PageExperience:    {1.0, CategoryTechnical},
	Crawlability:      {1.0, CategoryTechnical},
	StructuredData:    {1.0, CategoryTechnical},
	LlmsTxt:           {0.8, CategoryOther},
}

// criterionOrder fixes the emission order of EvaluateAll.
var criterionOrder = []Criterion{
	Experience,
	Expertise,
	Authoritativeness,
	Trustworthiness,
	KnowledgeGraph,
	NAPConsistency,
	ListUsage,
	DefinitionSummary,
	QAFormat,
	SemanticHTML,
	InfoAccuracy,
	HeadingStructure,
	LogicalStructure,
	ContentClarity,
	PageExperience,
	Crawlability,
	StructuredData,
	LlmsTxt,
}

// Criteria returns the fixed criterion set in emission order.
func Criteria() []Criterion {
	out := make([]Criterion, len(criterionOrder))
	copy(out, criterionOrder)
	return out
}

// WeightOf returns the aggregation weight for a criterion. Unknown
// criteria default to 1.0 so historical records with retired ids still
// aggregate.
func WeightOf(c Criterion) float64 {
	if info, ok := criteria[c]; ok {
		return info.weight
	}
	return 1.0
}

// CategoryOf returns the reporting category for a criterion.
func CategoryOf(c Criterion) Category {
	if info, ok := criteria[c]; ok {
		return info.category
	}
	return CategoryOther
}

// Status is the qualitative band a criterion score falls into.
type Status string

const (
	StatusExcellent Status = "excellent"
	StatusGood      Status = "good"
	StatusFair      Status = "fair"
	StatusPoor      Status = "poor"
)

// StatusOf maps a score to its band. Shared by every criterion.
func StatusOf(score int) Status {
	switch {
	case score >= 80:
		return StatusExcellent
	case score >= 60:
		return StatusGood
	case score >= 40:
		return StatusFair
	default:
		return StatusPoor
	}
}

// Grade is the overall letter grade on the primary 5-band scale.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeFor maps an overall score to the primary 5-band grade.
func GradeFor(score float64) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// FineGradeFor maps a score to the finer 9-band scale used only for
// per-category display. It is deliberately separate from GradeFor:
// the two scales must never share thresholds.
func FineGradeFor(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 80:
		return "B+"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C+"
	case score >= 50:
		return "C"
	case score >= 40:
		return "D+"
	case score >= 30:
		return "D"
	default:
		return "F"
	}
}

// Result is the outcome of evaluating one criterion.
type Result struct {
	CriteriaID  Criterion `json:"criteriaId"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"maxScore"`
	Status      Status    `json:"status"`
	Issues      []string  `json:"issues"`
	Suggestions []string  `json:"suggestions"`
}
