package crawler

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserFetcher retrieves pages through a headless Chrome instance so
// that JS-rendered content is present in the HTML handed to the parser.
type BrowserFetcher struct {
	width  int
	height int
}

// NewBrowserFetcher creates a BrowserFetcher with a desktop viewport.
func NewBrowserFetcher() *BrowserFetcher {
	return &BrowserFetcher{width: 1920, height: 1080}
}

func (f *BrowserFetcher) chromeOptions(opts Options) []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.WindowSize(f.width, f.height),
		chromedp.UserAgent(opts.UserAgent),
	)
}

// Fetch navigates to the URL, waits for the document to settle and
// returns the rendered HTML. Load time covers navigation through render.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string, opts Options) (*FetchResult, error) {
	opts = opts.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.chromeOptions(opts)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	start := time.Now()
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	loadTime := time.Since(start)

	return &FetchResult{
		HTML: html,
		// chromedp only surfaces the main document status via network
		// events; a rendered document implies a successful navigation.
		StatusCode: 200,
		LoadTimeMs: int(loadTime.Milliseconds()),
		ByteSize:   len(html),
	}, nil
}
