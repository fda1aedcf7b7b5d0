package parser

// PageMetadata holds the metadata extracted from a page's head section.
// Every field is optional: nil means the markup was absent, which is not
// the same as a tag that is present with empty content.
type PageMetadata struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Keywords    *string `json:"keywords,omitempty"`
	Author      *string `json:"author,omitempty"`
	Canonical   *string `json:"canonical,omitempty"`
	Robots      *string `json:"robots,omitempty"`
	Viewport    *string `json:"viewport,omitempty"`
	Charset     *string `json:"charset,omitempty"`

	OGTitle       *string `json:"ogTitle,omitempty"`
	OGDescription *string `json:"ogDescription,omitempty"`
	OGImage       *string `json:"ogImage,omitempty"`
	OGType        *string `json:"ogType,omitempty"`

	TwitterCard        *string `json:"twitterCard,omitempty"`
	TwitterTitle       *string `json:"twitterTitle,omitempty"`
	TwitterDescription *string `json:"twitterDescription,omitempty"`
	TwitterImage       *string `json:"twitterImage,omitempty"`
}

// HeadingStructure counts headings per level and records document order.
type HeadingStructure struct {
	H1 int `json:"h1"`
	H2 int `json:"h2"`
	H3 int `json:"h3"`
	H4 int `json:"h4"`
	H5 int `json:"h5"`
	H6 int `json:"h6"`

	// Structure lists headings in document order as "H2: text" entries.
	Structure []string `json:"structure"`
}

// Levels returns the heading levels in document order, parsed back out
// of the Structure entries.
func (h HeadingStructure) Levels() []int {
	levels := make([]int, 0, len(h.Structure))
	for _, entry := range h.Structure {
		if len(entry) >= 2 && entry[0] == 'H' && entry[1] >= '1' && entry[1] <= '6' {
			levels = append(levels, int(entry[1]-'0'))
		}
	}
	return levels
}

// ImageAnalysis summarizes image accessibility and optimization.
type ImageAnalysis struct {
	Total     int `json:"total"`
	WithAlt   int `json:"withAlt"`
	WithTitle int `json:"withTitle"`
	Optimized int `json:"optimized"` // lazy-loaded or next-gen format
}

// ContentAnalysis holds the content-level signals extracted from the body.
type ContentAnalysis struct {
	WordCount        int              `json:"wordCount"`
	HeadingStructure HeadingStructure `json:"headingStructure"`
	InternalLinks    int              `json:"internalLinks"`
	ExternalLinks    int              `json:"externalLinks"`
	Images           ImageAnalysis    `json:"images"`
	ListsCount       int              `json:"listsCount"`
	TablesCount      int              `json:"tablesCount"`
	HasContactInfo   bool             `json:"hasContactInfo"`
	HasAddressInfo   bool             `json:"hasAddressInfo"`
}
