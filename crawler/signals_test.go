package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectorProbes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt", "/llms.txt":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	d := NewDetector()
	signals := d.Detect(context.Background(), server.URL+"/page", &FetchResult{HTML: "<html></html>"})

	assert.True(t, signals.HasRobotsTxt)
	assert.True(t, signals.HasLlmsTxt)
	assert.False(t, signals.HasSitemap)
	assert.False(t, signals.IsHTTPS, "httptest server is plain http")
}

func TestDetectorHeadFallsBackToGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDetector()
	signals := d.Detect(context.Background(), server.URL, &FetchResult{HTML: ""})

	assert.True(t, signals.HasRobotsTxt)
}

func TestDetectMarkupSignals(t *testing.T) {
	d := NewDetector()

	t.Run("all markup signals", func(t *testing.T) {
		html := `<html><head>
			<script type="application/ld+json">{}</script>
			<link rel="canonical" href="https://example.com/">
			<link rel="alternate" hreflang="en" href="https://example.com/en">
			<meta name="viewport" content="width=device-width">
		</head><body></body></html>`

		var signals TechnicalSignals
		d.detectMarkupSignals(html, &signals)

		assert.True(t, signals.HasStructuredData)
		assert.True(t, signals.HasCanonical)
		assert.True(t, signals.HasHreflang)
		assert.True(t, signals.HasViewport)
	})

	t.Run("microdata counts as structured data", func(t *testing.T) {
		var signals TechnicalSignals
		d.detectMarkupSignals(`<div itemscope itemtype="https://schema.org/Article"></div>`, &signals)
		assert.True(t, signals.HasStructuredData)
	})

	t.Run("empty viewport content does not count", func(t *testing.T) {
		var signals TechnicalSignals
		d.detectMarkupSignals(`<meta name="viewport" content="">`, &signals)
		assert.False(t, signals.HasViewport)
	})

	t.Run("bare page has nothing", func(t *testing.T) {
		var signals TechnicalSignals
		d.detectMarkupSignals("<html><body><p>text</p></body></html>", &signals)
		assert.False(t, signals.HasStructuredData)
		assert.False(t, signals.HasCanonical)
		assert.False(t, signals.HasHreflang)
		assert.False(t, signals.HasViewport)
	})
}

func TestDetectCarriesFetchFacts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d := NewDetector()
	fetch := &FetchResult{HTML: "", StatusCode: 200, LoadTimeMs: 850, ByteSize: 4096}
	signals := d.Detect(context.Background(), server.URL, fetch)

	assert.Equal(t, 850, signals.LoadTimeMs)
	assert.Equal(t, 4096, signals.PageSize)
	assert.Equal(t, 200, signals.ResponseCode)
}

func TestSiteBase(t *testing.T) {
	assert.Equal(t, "https://example.com", siteBase("https://example.com/deep/path?q=1"))
	assert.Equal(t, "http://example.com:8080", siteBase("http://example.com:8080/page"))
	assert.Equal(t, "", siteBase("not a url"))
}
