package evaluation

import (
	"regexp"
	"strings"

	"github.com/llmo-checker/backend/crawler"
	"github.com/llmo-checker/backend/parser"
)

// Pattern families for the regex-based criteria. Each family counts as
// one match regardless of how many times it occurs.
var (
	experiencePatterns = []*regexp.Regexp{
		// First-person testimonial language
		regexp.MustCompile(`実際に|実体験|体験談|やってみた|使ってみた|試してみた|(?i)hands.on|first.hand experience|i tried`),
		// Personal narration
		regexp.MustCompile(`個人的な|私の場合|筆者の|(?i)in my experience|personally`),
		// Experiment and verification language
		regexp.MustCompile(`実験|検証|テスト|比較|調査|(?i)we tested|benchmark|case study`),
		// Media evidence references
		regexp.MustCompile(`写真|画像|スクリーンショット|動画|(?i)screenshot|photo below`),
	}

	expertisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`著者|執筆者|監修者|編集者|(?i)written by|reviewed by|author`),
		regexp.MustCompile(`資格|認定|ライセンス|専門家|(?i)certified|licensed|specialist`),
		regexp.MustCompile(`博士|修士|学位|PhD|Dr\.`),
		regexp.MustCompile(`年の経験|専門分野|プロフィール|(?i)years of experience`),
		regexp.MustCompile(`所属|勤務|研究|(?i)affiliated with|university|institute`),
	}

	entityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`会社概要|企業情報|組織情報|(?i)about us|company profile`),
		regexp.MustCompile(`設立|創業|所在地|代表者|(?i)founded in|headquartered`),
	}

	questionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`よくある質問|(?i)\bfaq\b|(?i)q\s*&\s*a|(?i)frequently asked`),
		regexp.MustCompile(`[？?]\s*</h[1-6]>`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)date(Modified|Published)`),
		regexp.MustCompile(`<time[\s>]`),
		regexp.MustCompile(`更新日|公開日|(?i)last updated`),
	}

	semanticTags = []string{"article", "section", "nav", "main", "header", "footer", "aside"}
)

// EvaluateAll maps the extracted signals to exactly one Result per
// criterion, in the fixed criterion order. It is total: missing or
// empty signals degrade to lower scores, never to an error.
func EvaluateAll(meta parser.PageMetadata, content parser.ContentAnalysis, signals crawler.TechnicalSignals, html string) []Result {
	return []Result{
		evaluateExperience(content, html),
		evaluateExpertise(html),
		evaluateAuthoritativeness(content, signals),
		evaluateTrustworthiness(meta, signals),
		evaluateKnowledgeGraph(html),
		evaluateNAPConsistency(content),
		evaluateListUsage(content),
		evaluateDefinitionSummary(content),
		evaluateQAFormat(html),
		evaluateSemanticHTML(html),
		evaluateInfoAccuracy(meta, html),
		evaluateHeadingStructure(content),
		evaluateLogicalStructure(content),
		evaluateContentClarity(content),
		evaluatePageExperience(signals),
		evaluateCrawlability(signals),
		evaluateStructuredData(signals),
		evaluateLlmsTxt(signals),
	}
}

func evaluateExperience(content parser.ContentAnalysis, html string) Result {
	var issues, suggestions []string

	matched := countMatchedFamilies(html, experiencePatterns)

	var score int
	switch {
	case matched >= 3:
		score = 90
	case matched >= 2:
		score = 70
	case matched >= 1:
		score = 50
	default:
		score = 20
		issues = append(issues, "No first-hand experience signals found in the content")
		suggestions = append(suggestions, "Add first-hand accounts, test results, or verification details")
	}

	// Plenty of imagery reads as documented experience.
	if content.Images.Total > 3 {
		score = min(100, score+10)
	}

	return newResult(Experience, score, issues, suggestions)
}

func evaluateExpertise(html string) Result {
	var issues, suggestions []string

	matched := countMatchedFamilies(html, expertisePatterns)

	var score int
	switch {
	case matched >= 3:
		score = 85
	case matched >= 2:
		score = 65
	case matched >= 1:
		score = 45
	default:
		score = 15
		issues = append(issues, "Author expertise is not demonstrated")
		suggestions = append(suggestions, "State the author's credentials and background")
	}

	return newResult(Expertise, score, issues, suggestions)
}

func evaluateAuthoritativeness(content parser.ContentAnalysis, signals crawler.TechnicalSignals) Result {
	var issues, suggestions []string
	score := 0

	if content.ExternalLinks > 0 {
		score += 30
	} else {
		issues = append(issues, "No outbound links to authoritative sources")
		suggestions = append(suggestions, "Link to trustworthy external references")
	}
	if content.InternalLinks > 5 {
		score += 25
	}
	if signals.HasStructuredData {
		score += 25
	}
	score += 20

	return newResult(Authoritativeness, min(100, score), issues, suggestions)
}

func evaluateTrustworthiness(meta parser.PageMetadata, signals crawler.TechnicalSignals) Result {
	var issues, suggestions []string
	score := 0

	if signals.IsHTTPS {
		score += 30
	} else {
		issues = append(issues, "Page is not served over HTTPS")
		suggestions = append(suggestions, "Migrate the site to HTTPS")
	}
	if meta.Title != nil && meta.Description != nil {
		score += 25
	}
	if meta.Author != nil {
		score += 20
	}
	if meta.Canonical != nil {
		score += 15
	}
	score += 10

	return newResult(Trustworthiness, min(100, score), issues, suggestions)
}

func evaluateKnowledgeGraph(html string) Result {
	var issues, suggestions []string
	score := 30

	hasStructuredData := strings.Contains(html, "application/ld+json") ||
		strings.Contains(html, "itemscope")
	if hasStructuredData {
		score += 40
	} else {
		issues = append(issues, "No structured data found")
		suggestions = append(suggestions, "Implement JSON-LD or microdata markup")
	}

	if countMatchedFamilies(html, entityPatterns) > 0 {
		score += 30
	} else {
		issues = append(issues, "Entity information is missing")
		suggestions = append(suggestions, "Add an organization overview with founding and location details")
	}

	return newResult(KnowledgeGraph, min(100, score), issues, suggestions)
}

func evaluateNAPConsistency(content parser.ContentAnalysis) Result {
	var issues, suggestions []string
	score := 20

	if content.HasContactInfo {
		score += 40
	} else {
		issues = append(issues, "No contact information found")
		suggestions = append(suggestions, "Publish a phone number or email address")
	}
	if content.HasAddressInfo {
		score += 40
	} else {
		issues = append(issues, "No address information found")
		suggestions = append(suggestions, "Publish a physical address")
	}

	return newResult(NAPConsistency, min(100, score), issues, suggestions)
}

func evaluateListUsage(content parser.ContentAnalysis) Result {
	var issues, suggestions []string

	total := content.ListsCount + content.TablesCount

	var score int
	switch {
	case total >= 3:
		score = 90
	case total >= 2:
		score = 70
	case total >= 1:
		score = 50
	default:
		score = 20
		issues = append(issues, "No lists or tables in the content")
		suggestions = append(suggestions, "Organize information into lists or tables")
	}

	return newResult(ListUsage, score, issues, suggestions)
}

func evaluateDefinitionSummary(content parser.ContentAnalysis) Result {
	var issues, suggestions []string
	score := 50

	if content.WordCount >= 500 {
		score += 30
	} else {
		issues = append(issues, "Content is too short to cover the topic")
		suggestions = append(suggestions, "Expand the content to at least 500 words")
	}
	if content.HeadingStructure.H2 > 0 {
		score += 20
	}

	return newResult(DefinitionSummary, min(100, score), issues, suggestions)
}

func evaluateQAFormat(html string) Result {
	var issues, suggestions []string
	score := 30

	if countMatchedFamilies(html, questionPatterns) > 0 {
		score += 40
	} else {
		issues = append(issues, "No question-and-answer sections found")
		suggestions = append(suggestions, "Add an FAQ section answering likely user questions")
	}
	if strings.Contains(html, "FAQPage") {
		score += 30
	}

	return newResult(QAFormat, min(100, score), issues, suggestions)
}

func evaluateSemanticHTML(html string) Result {
	var issues, suggestions []string

	lower := strings.ToLower(html)
	distinct := 0
	for _, tag := range semanticTags {
		if strings.Contains(lower, "<"+tag) {
			distinct++
		}
	}

	var score int
	switch {
	case distinct >= 4:
		score = 90
	case distinct >= 2:
		score = 70
	case distinct >= 1:
		score = 50
	default:
		score = 20
		issues = append(issues, "Markup uses no semantic container elements")
		suggestions = append(suggestions, "Structure the page with article, section, nav, and main elements")
	}

	return newResult(SemanticHTML, score, issues, suggestions)
}

func evaluateInfoAccuracy(meta parser.PageMetadata, html string) Result {
	var issues, suggestions []string
	score := 40

	if meta.Description != nil {
		score += 30
	} else {
		issues = append(issues, "No meta description to anchor the page topic")
		suggestions = append(suggestions, "Add a meta description")
	}
	if countMatchedFamilies(html, datePatterns) > 0 {
		score += 30
	} else {
		issues = append(issues, "No publication or update dates found")
		suggestions = append(suggestions, "Show publication and last-updated dates on the page")
	}

	return newResult(InfoAccuracy, min(100, score), issues, suggestions)
}

func evaluateHeadingStructure(content parser.ContentAnalysis) Result {
	var issues, suggestions []string
	score := 50

	if content.HeadingStructure.H1 == 1 {
		score += 25
	} else if content.HeadingStructure.H1 == 0 {
		issues = append(issues, "Page has no H1 heading")
		suggestions = append(suggestions, "Add exactly one H1 heading")
	} else {
		issues = append(issues, "Page has multiple H1 headings")
		suggestions = append(suggestions, "Use a single H1 heading")
	}
	if content.HeadingStructure.H2 > 0 {
		score += 25
	}

	return newResult(HeadingStructure, min(100, score), issues, suggestions)
}

func evaluateLogicalStructure(content parser.ContentAnalysis) Result {
	var issues, suggestions []string
	score := 40

	if content.HeadingStructure.H1 == 1 {
		score += 30
	}
	if !hasLevelSkips(content.HeadingStructure.Levels()) {
		score += 30
	} else {
		issues = append(issues, "Heading levels skip downward (e.g. H2 followed directly by H4)")
		suggestions = append(suggestions, "Nest headings one level at a time")
	}

	return newResult(LogicalStructure, min(100, score), issues, suggestions)
}

func evaluateContentClarity(content parser.ContentAnalysis) Result {
	var issues, suggestions []string
	score := 40

	if content.WordCount >= 300 {
		score += 30
	} else {
		issues = append(issues, "Content is too thin for a clear explanation")
		suggestions = append(suggestions, "Expand the content to at least 300 words")
	}
	if content.ListsCount+content.TablesCount >= 1 {
		score += 30
	}

	return newResult(ContentClarity, min(100, score), issues, suggestions)
}

func evaluatePageExperience(signals crawler.TechnicalSignals) Result {
	var issues, suggestions []string
	score := 40

	if signals.LoadTimeMs < 3000 {
		score += 30
	} else {
		issues = append(issues, "Page takes more than 3 seconds to load")
		suggestions = append(suggestions, "Reduce load time below 3 seconds")
	}
	if signals.HasViewport {
		score += 30
	} else {
		issues = append(issues, "No viewport meta tag")
		suggestions = append(suggestions, "Add a viewport meta tag for mobile rendering")
	}

	return newResult(PageExperience, min(100, score), issues, suggestions)
}

func evaluateCrawlability(signals crawler.TechnicalSignals) Result {
	var issues, suggestions []string
	score := 30

	if signals.HasRobotsTxt {
		score += 35
	} else {
		issues = append(issues, "robots.txt is not reachable")
		suggestions = append(suggestions, "Serve a robots.txt at the site root")
	}
	if signals.HasSitemap {
		score += 35
	} else {
		issues = append(issues, "sitemap.xml is not reachable")
		suggestions = append(suggestions, "Publish a sitemap.xml at the site root")
	}

	return newResult(Crawlability, min(100, score), issues, suggestions)
}

func evaluateStructuredData(signals crawler.TechnicalSignals) Result {
	var issues, suggestions []string

	score := 20
	if signals.HasStructuredData {
		score = 90
	} else {
		issues = append(issues, "No structured data detected")
		suggestions = append(suggestions, "Add JSON-LD describing the page content")
	}

	return newResult(StructuredData, score, issues, suggestions)
}

func evaluateLlmsTxt(signals crawler.TechnicalSignals) Result {
	var issues, suggestions []string

	score := 30
	if signals.HasLlmsTxt {
		score = 90
	} else {
		issues = append(issues, "No llms.txt at the site root")
		suggestions = append(suggestions, "Publish an llms.txt describing the site for AI crawlers")
	}

	return newResult(LlmsTxt, score, issues, suggestions)
}

func newResult(c Criterion, score int, issues, suggestions []string) Result {
	score = max(0, min(100, score))
	if issues == nil {
		issues = []string{}
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	return Result{
		CriteriaID:  c,
		Score:       score,
		MaxScore:    100,
		Status:      StatusOf(score),
		Issues:      issues,
		Suggestions: suggestions,
	}
}

func countMatchedFamilies(html string, families []*regexp.Regexp) int {
	matched := 0
	for _, p := range families {
		if p.MatchString(html) {
			matched++
		}
	}
	return matched
}

// hasLevelSkips reports whether the document-order heading levels ever
// descend by more than one level at a time.
func hasLevelSkips(levels []int) bool {
	for i := 1; i < len(levels); i++ {
		if levels[i] > levels[i-1]+1 {
			return true
		}
	}
	return false
}
