// Package parser extracts structured signals from raw page HTML:
// head metadata and a content analysis of the body. It performs no I/O.
package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var contactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)contact`),
	regexp.MustCompile(`連絡`),
	regexp.MustCompile(`お問い?合わせ`),
	regexp.MustCompile(`電話`),
	regexp.MustCompile(`(?i)tel[:：]`),
	regexp.MustCompile(`(?i)email`),
	regexp.MustCompile(`メール`),
	regexp.MustCompile(`@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
}

var addressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`〒\d{3}-?\d{4}`),
	regexp.MustCompile(`[都道府県市区町村]`),
	regexp.MustCompile(`(?i)address`),
	regexp.MustCompile(`住所`),
	regexp.MustCompile(`所在地`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Document wraps a parsed HTML document for signal extraction.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from raw HTML. A parse failure here means the
// input was not HTML at all; partial or broken markup still parses.
func Parse(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

// ExtractMetadata pulls the head-section metadata. Missing tags yield
// nil fields, never empty strings.
func (d *Document) ExtractMetadata() PageMetadata {
	doc := d.doc
	meta := PageMetadata{}

	if title := doc.Find("title").First(); title.Length() > 0 {
		t := strings.TrimSpace(title.Text())
		meta.Title = &t
	}

	meta.Description = attrIfPresent(doc, `meta[name="description"]`, "content")
	meta.Keywords = attrIfPresent(doc, `meta[name="keywords"]`, "content")
	meta.Author = attrIfPresent(doc, `meta[name="author"]`, "content")
	meta.Viewport = attrIfPresent(doc, `meta[name="viewport"]`, "content")
	meta.Robots = attrIfPresent(doc, `meta[name="robots"]`, "content")
	meta.Canonical = attrIfPresent(doc, `link[rel="canonical"]`, "href")

	if meta.Charset = attrIfPresent(doc, "meta[charset]", "charset"); meta.Charset == nil {
		meta.Charset = attrIfPresent(doc, `meta[http-equiv="content-type"]`, "content")
	}

	meta.OGTitle = attrIfPresent(doc, `meta[property="og:title"]`, "content")
	meta.OGDescription = attrIfPresent(doc, `meta[property="og:description"]`, "content")
	meta.OGImage = attrIfPresent(doc, `meta[property="og:image"]`, "content")
	meta.OGType = attrIfPresent(doc, `meta[property="og:type"]`, "content")

	meta.TwitterCard = attrIfPresent(doc, `meta[name="twitter:card"]`, "content")
	meta.TwitterTitle = attrIfPresent(doc, `meta[name="twitter:title"]`, "content")
	meta.TwitterDescription = attrIfPresent(doc, `meta[name="twitter:description"]`, "content")
	meta.TwitterImage = attrIfPresent(doc, `meta[name="twitter:image"]`, "content")

	return meta
}

// AnalyzeContent computes the content-level signals from the body.
func (d *Document) AnalyzeContent() ContentAnalysis {
	doc := d.doc

	bodyText := whitespaceRun.ReplaceAllString(doc.Find("body").Text(), " ")
	bodyText = strings.TrimSpace(bodyText)
	wordCount := 0
	if bodyText != "" {
		wordCount = len(strings.Fields(bodyText))
	}

	internal, external := d.analyzeLinks()

	return ContentAnalysis{
		WordCount:        wordCount,
		HeadingStructure: d.analyzeHeadings(),
		InternalLinks:    internal,
		ExternalLinks:    external,
		Images:           d.analyzeImages(),
		ListsCount:       doc.Find("ul, ol").Length(),
		TablesCount:      doc.Find("table").Length(),
		HasContactInfo:   matchesAny(strings.ToLower(bodyText), contactPatterns),
		HasAddressInfo:   matchesAny(bodyText, addressPatterns),
	}
}

func (d *Document) analyzeHeadings() HeadingStructure {
	hs := HeadingStructure{}
	counts := [7]int{}

	d.doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		level := int(name[1] - '0')
		counts[level]++

		text := strings.TrimSpace(s.Text())
		if text != "" {
			hs.Structure = append(hs.Structure, strings.ToUpper(name)+": "+text)
		}
	})

	hs.H1, hs.H2, hs.H3 = counts[1], counts[2], counts[3]
	hs.H4, hs.H5, hs.H6 = counts[4], counts[5], counts[6]
	return hs
}

func (d *Document) analyzeLinks() (internal, external int) {
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" {
			return
		}
		switch {
		case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
			external++
		case strings.HasPrefix(href, "/"), strings.HasPrefix(href, "#"), !strings.Contains(href, "://"):
			internal++
		}
	})
	return internal, external
}

func (d *Document) analyzeImages() ImageAnalysis {
	images := ImageAnalysis{}

	d.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		images.Total++

		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			images.WithAlt++
		}
		if title, ok := s.Attr("title"); ok && strings.TrimSpace(title) != "" {
			images.WithTitle++
		}

		src, _ := s.Attr("src")
		loading, _ := s.Attr("loading")
		if loading == "lazy" || hasNextGenFormat(src) {
			images.Optimized++
		}
	})

	return images
}

func hasNextGenFormat(src string) bool {
	lower := strings.ToLower(src)
	return strings.Contains(lower, ".webp") || strings.Contains(lower, ".avif")
}

func attrIfPresent(doc *goquery.Document, selector, attr string) *string {
	if val, ok := doc.Find(selector).First().Attr(attr); ok {
		v := strings.TrimSpace(val)
		return &v
	}
	return nil
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
