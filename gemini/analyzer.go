package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"
)

const (
	defaultModel   = "gemini-2.0-flash-exp"
	defaultTimeout = 60 * time.Second
	maxContentLen  = 4000
)

// Analyzer is the capability interface the pipeline holds. A nil
// Analyzer means the capability is absent and fusion is skipped.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*AIAnalysis, error)
}

// Config configures the Gemini-backed analyzer.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiAnalyzer implements Analyzer on langchaingo's googleai client.
type GeminiAnalyzer struct {
	llm     llms.Model
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a GeminiAnalyzer. Returns an error when the API key is
// missing or the client cannot be constructed; callers treat that as
// "capability absent" rather than a fatal condition.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*GeminiAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiAnalyzer{llm: llm, timeout: cfg.Timeout, logger: logger}, nil
}

// Analyze runs the qualitative analysis under a bounded timeout. Any
// API or parse failure is returned as an AnalysisError; the caller
// recovers by skipping fusion.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, req Request) (*AIAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()

	raw, err := llms.GenerateFromSinglePrompt(ctx, a.llm, buildPrompt(req),
		llms.WithTemperature(0.1),
		llms.WithMaxTokens(8192),
	)
	if err != nil {
		return nil, &AnalysisError{URL: req.URL, Err: err}
	}

	analysis, err := parseResponse(raw)
	if err != nil {
		a.logger.Warn("unparseable analyzer response",
			zap.String("url", req.URL), zap.Error(err))
		return nil, &AnalysisError{URL: req.URL, Err: err}
	}

	analysis.ProcessingTimeMs = int(time.Since(start).Milliseconds())
	return analysis, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are an expert content auditor for AI-driven search visibility.\n")
	b.WriteString("Assess the page below and respond with exactly one JSON object, no prose,\n")
	b.WriteString("matching this shape (all scores are integers 0-100):\n")
	b.WriteString(`{
  "eeat": {
    "experience": {"score": 0, "evidence": [], "issues": []},
    "expertise": {"score": 0, "evidence": [], "issues": []},
    "authoritativeness": {"score": 0, "evidence": [], "issues": []},
    "trustworthiness": {"score": 0, "evidence": [], "issues": []}
  },
  "contentQuality": {
    "clarity": {"score": 0, "assessment": "", "issues": []},
    "completeness": {"score": 0, "assessment": "", "issues": []},
    "accuracy": {"score": 0, "assessment": "", "issues": []},
    "uniqueness": {"score": 0, "assessment": "", "issues": []},
    "userIntent": {"score": 0, "assessment": "", "issues": []}
  },
  "improvements": [{"category": "", "title": "", "description": "", "implementation": "", "expectedImpact": "", "priority": 5, "effort": "medium"}],
  "strengths": [],
  "weaknesses": [],
  "confidence": 0
}`)
	b.WriteString("\n\nPage facts:\n")
	fmt.Fprintf(&b, "URL: %s\n", req.URL)
	fmt.Fprintf(&b, "Title: %s\n", deref(req.Metadata.Title))
	fmt.Fprintf(&b, "Description: %s\n", deref(req.Metadata.Description))
	fmt.Fprintf(&b, "Word count: %d\n", req.Content.WordCount)
	fmt.Fprintf(&b, "Headings: H1:%d H2:%d H3:%d\n",
		req.Content.HeadingStructure.H1, req.Content.HeadingStructure.H2, req.Content.HeadingStructure.H3)
	fmt.Fprintf(&b, "Links: %d internal, %d external\n", req.Content.InternalLinks, req.Content.ExternalLinks)
	fmt.Fprintf(&b, "Images: %d (%d with alt text)\n", req.Content.Images.Total, req.Content.Images.WithAlt)
	fmt.Fprintf(&b, "Lists: %d, tables: %d\n", req.Content.ListsCount, req.Content.TablesCount)
	fmt.Fprintf(&b, "HTTPS: %t, structured data: %t, load time: %dms\n",
		req.Signals.IsHTTPS, req.Signals.HasStructuredData, req.Signals.LoadTimeMs)
	b.WriteString("\nPage content (truncated):\n")
	b.WriteString(truncate(visibleText(req.HTML), maxContentLen))

	return b.String()
}

var (
	jsonBlock = regexp.MustCompile("```json\\s*([\\s\\S]*?)```")
	tagStrip  = regexp.MustCompile(`<[^>]*>`)
	spaceRun  = regexp.MustCompile(`\s+`)
)

// parseResponse extracts the JSON object from the model output, which
// may be wrapped in a fenced code block or surrounded by prose.
func parseResponse(raw string) (*AIAnalysis, error) {
	payload := raw
	if m := jsonBlock.FindStringSubmatch(raw); m != nil {
		payload = m[1]
	} else if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			payload = raw[start : end+1]
		}
	}

	var analysis AIAnalysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return nil, fmt.Errorf("decode analyzer response: %w", err)
	}

	clampAnalysis(&analysis)
	return &analysis, nil
}

func clampAnalysis(a *AIAnalysis) {
	for _, s := range []*SubScore{
		&a.EEAT.Experience, &a.EEAT.Expertise,
		&a.EEAT.Authoritativeness, &a.EEAT.Trustworthiness,
	} {
		s.Score = clamp(s.Score)
	}
	for _, q := range []*QualityScore{
		&a.ContentQuality.Clarity, &a.ContentQuality.Completeness,
		&a.ContentQuality.Accuracy, &a.ContentQuality.Uniqueness,
		&a.ContentQuality.UserIntent,
	} {
		q.Score = clamp(q.Score)
	}
	a.Confidence = clamp(a.Confidence)

	for i := range a.Improvements {
		if a.Improvements[i].Priority < 1 {
			a.Improvements[i].Priority = 1
		}
		if a.Improvements[i].Priority > 10 {
			a.Improvements[i].Priority = 10
		}
		if a.Improvements[i].Effort == "" {
			a.Improvements[i].Effort = "medium"
		}
	}
}

func clamp(score int) int {
	return max(0, min(100, score))
}

// visibleText strips tags so the prompt carries content, not markup.
func visibleText(html string) string {
	text := tagStrip.ReplaceAllString(html, " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…[truncated]"
}

func deref(s *string) string {
	if s == nil {
		return "(absent)"
	}
	return *s
}
