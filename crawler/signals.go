package crawler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// TechnicalSignals are the transport-level and environment facts a
// diagnosis scores against, independent of page content.
type TechnicalSignals struct {
	IsHTTPS           bool `json:"isHttps"`
	HasRobotsTxt      bool `json:"hasRobotsTxt"`
	HasSitemap        bool `json:"hasSitemap"`
	HasLlmsTxt        bool `json:"hasLlmsTxt"`
	HasStructuredData bool `json:"hasStructuredData"`
	HasHreflang       bool `json:"hasHreflang"`
	HasCanonical      bool `json:"hasCanonical"`
	HasViewport       bool `json:"hasViewport"`
	LoadTimeMs        int  `json:"loadTime"`
	PageSize          int  `json:"pageSize"`
	ResponseCode      int  `json:"responseCode"`
}

// Detector collects technical signals for a fetched page. Reachability
// probes (robots.txt, sitemap.xml, llms.txt) use a short-timeout client
// separate from the page fetch budget.
type Detector struct {
	probeClient *http.Client
	userAgent   string
}

// NewDetector creates a Detector with a 5s probe timeout.
func NewDetector() *Detector {
	return &Detector{
		probeClient: &http.Client{Timeout: 5 * time.Second},
		userAgent:   defaultUserAgent,
	}
}

// Detect inspects the page URL, the fetch result and the markup and
// probes the site's well-known files. Probe failures degrade to false,
// never to an error: a diagnosis must not die on a missing robots.txt.
func (d *Detector) Detect(ctx context.Context, pageURL string, fetch *FetchResult) TechnicalSignals {
	signals := TechnicalSignals{
		IsHTTPS:      strings.HasPrefix(pageURL, "https://"),
		LoadTimeMs:   fetch.LoadTimeMs,
		PageSize:     fetch.ByteSize,
		ResponseCode: fetch.StatusCode,
	}

	d.detectMarkupSignals(fetch.HTML, &signals)

	if base := siteBase(pageURL); base != "" {
		signals.HasRobotsTxt = d.resourceExists(ctx, base+"/robots.txt")
		signals.HasSitemap = d.resourceExists(ctx, base+"/sitemap.xml")
		signals.HasLlmsTxt = d.resourceExists(ctx, base+"/llms.txt")
	}

	return signals
}

func (d *Detector) detectMarkupSignals(html string, signals *TechnicalSignals) {
	signals.HasStructuredData = strings.Contains(html, "application/ld+json") ||
		strings.Contains(html, "itemscope")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	signals.HasCanonical = doc.Find(`link[rel="canonical"]`).Length() > 0
	signals.HasHreflang = doc.Find("link[hreflang]").Length() > 0

	if content, ok := doc.Find(`meta[name="viewport"]`).First().Attr("content"); ok {
		signals.HasViewport = strings.TrimSpace(content) != ""
	}
}

// resourceExists probes with HEAD and falls back to GET for servers
// that reject HEAD.
func (d *Detector) resourceExists(ctx context.Context, url string) bool {
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return false
		}
		req.Header.Set("User-Agent", d.userAgent)

		resp, err := d.probeClient.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return true
		}
		if resp.StatusCode != http.StatusMethodNotAllowed {
			return false
		}
	}
	return false
}

func siteBase(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
