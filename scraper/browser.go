package scraper

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"powersearch/utils"
)

// BrowserFetcher renders pages in headless Chrome so storefronts that build
// their result grid client-side can still be extracted.
type BrowserFetcher struct {
	chromeBin string
	settle    time.Duration
	logger    *utils.Logger

	once        sync.Once
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	cancelRoot  context.CancelFunc
}

// NewBrowserFetcher creates a BrowserFetcher. chromeBin may be empty to
// auto-detect an installed browser.
func NewBrowserFetcher(chromeBin string, logger *utils.Logger) *BrowserFetcher {
	return &BrowserFetcher{chromeBin: chromeBin, settle: 3 * time.Second, logger: logger}
}

func (b *BrowserFetcher) init() {
	bin := b.chromeBin
	if bin == "" {
		bin = findChromeBinary()
	}
	b.logger.Info("[browser] Using browser binary: %s", bin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	// Suppress chromedp log noise
	rootCtx, cancelRoot := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	b.allocCtx = rootCtx
	b.cancelAlloc = cancelAlloc
	b.cancelRoot = cancelRoot
}

// Fetch implements Fetcher. The geo hint is not applicable to a local browser.
func (b *BrowserFetcher) Fetch(ctx context.Context, target string, opts FetchOptions) (string, error) {
	b.once.Do(b.init)

	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	// propagate cancellation of the caller's context into the tab
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(target),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", eris.Wrapf(ErrFetchFailure, "chromedp %s: %v", target, err)
	}
	if !IsDocument(html) {
		return "", ErrNonDocument
	}
	return html, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() {
	if b.cancelRoot != nil {
		b.cancelRoot()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
