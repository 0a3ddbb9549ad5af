package scraper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"powersearch/utils"
)

var (
	ErrFetchFailure = eris.New("fetch failed")
	ErrNonDocument  = eris.New("response is not an HTML document")
	ErrNoListings   = eris.New("no listings extracted")

	// ErrAdapterMissing is logged when a site falls back to generic extraction.
	ErrAdapterMissing = eris.New("no adapter registered")
)

const maxBodyBytes = 10 << 20

// FetchOptions are passed to the fetch capability on every call.
type FetchOptions struct {
	GeoHint    string
	RenderJS   bool
	Timeout    time.Duration
	RetryCount int
}

// Fetcher obtains raw page content for a URL. Implementations must honour
// ctx cancellation and opts.Timeout.
type Fetcher interface {
	Fetch(ctx context.Context, target string, opts FetchOptions) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, target string, opts FetchOptions) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, target string, opts FetchOptions) (string, error) {
	return f(ctx, target, opts)
}

// IsDocument reports whether content looks like an HTML page.
func IsDocument(content string) bool {
	head := content
	if len(head) > 4096 {
		head = head[:4096]
	}
	head = strings.ToLower(head)
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

// HTTPFetcher fetches pages over plain HTTP, optionally through a scraping
// proxy API that handles geo routing and JavaScript rendering.
type HTTPFetcher struct {
	client *http.Client
	apiKey string
	apiURL string
	logger *utils.Logger
}

// NewHTTPFetcher creates an HTTPFetcher. An empty apiKey fetches directly.
func NewHTTPFetcher(apiKey, apiURL string, logger *utils.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		apiKey: apiKey,
		apiURL: apiURL,
		logger: logger,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string, opts FetchOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	reqURL := f.requestURL(target, opts)
	retry := &utils.RetryConfig{
		MaxAttempts: opts.RetryCount + 1,
		BaseDelay:   500 * time.Millisecond,
		Logger:      f.logger,
	}

	var body string
	err := retry.Do(ctx, "fetch "+target, func(int) error {
		content, err := f.get(ctx, reqURL)
		if err != nil {
			return err
		}
		body = content
		return nil
	})
	if err != nil {
		return "", err
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, reqURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", eris.Wrap(ErrFetchFailure, err.Error())
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrap(ErrFetchFailure, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", eris.Wrapf(ErrFetchFailure, "status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", eris.Wrap(ErrFetchFailure, err.Error())
	}
	content := string(raw)
	if !IsDocument(content) {
		return "", ErrNonDocument
	}
	return content, nil
}

func (f *HTTPFetcher) requestURL(target string, opts FetchOptions) string {
	if f.apiKey == "" {
		return target
	}
	v := url.Values{}
	v.Set("api_key", f.apiKey)
	v.Set("url", target)
	if opts.GeoHint != "" {
		v.Set("country_code", opts.GeoHint)
	}
	if opts.RenderJS {
		v.Set("render", "true")
	}
	return strings.TrimRight(f.apiURL, "/") + "/?" + v.Encode()
}
