package scraper

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"powersearch/models"
	"powersearch/scraper/adapters"
	"powersearch/utils"
)

func testRegistry(sites ...string) *adapters.Registry {
	r := adapters.NewEmptyRegistry()
	for _, s := range sites {
		s := s
		r.Register(adapters.Adapter{
			Site: s,
			BuildURL: func(q string, _, _ *float64, _ int) string {
				return "https://" + s + "/search?q=" + q
			},
			Extract: func(content, _ string) []models.Listing {
				var out []models.Listing
				for _, line := range strings.Split(content, "\n") {
					if title, ok := strings.CutPrefix(line, "item:"); ok {
						out = append(out, models.Listing{Title: title, Price: models.Float(10)})
					}
				}
				return out
			},
		})
	}
	return r
}

func page(titles ...string) string {
	var b strings.Builder
	b.WriteString("<html>")
	for _, t := range titles {
		b.WriteString("\nitem:" + t)
	}
	return b.String()
}

// fakeFetcher answers per site host and counts calls.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(ctx context.Context, host string, call int, opts FetchOptions) (string, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, target string, opts FetchOptions) (string, error) {
	host := strings.TrimPrefix(target, "https://")
	host = host[:strings.Index(host, "/")]

	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[host]++
	call := f.calls[host]
	f.mu.Unlock()

	return f.respond(ctx, host, call, opts)
}

func (f *fakeFetcher) count(host string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[host]
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func testConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxWorkers:  5,
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		TaskTimeout: time.Second,
		Deadline:    5 * time.Second,
		Sleep:       noSleep,
	}
}

func TestRunPartialFailure(t *testing.T) {
	f := &fakeFetcher{respond: func(_ context.Context, host string, _ int, _ FetchOptions) (string, error) {
		if host == "good" {
			return page("Acme X100", "Acme Y200"), nil
		}
		return "", ErrFetchFailure
	}}
	o := NewOrchestrator(testRegistry("good", "bad"), f, testConfig(), utils.NewNopLogger())

	res := o.Run(context.Background(), FetchRequest{Query: "acme", Sites: []string{"good", "bad"}})

	if len(res.Listings) != 2 {
		t.Fatalf("listings: got %d, want 2", len(res.Listings))
	}
	for _, l := range res.Listings {
		if l.Site != "good" {
			t.Errorf("site: got %q, want good", l.Site)
		}
		if l.URL != "https://good/search?q=acme" {
			t.Errorf("URL fallback: got %q", l.URL)
		}
		if l.ID == "" {
			t.Error("ID should be assigned")
		}
	}
	if res.FallbackUsed {
		t.Error("fallback should not run when a site succeeded")
	}
	if !res.Statuses[0].OK || res.Statuses[0].Count != 2 {
		t.Errorf("good status: %+v", res.Statuses[0])
	}
	if res.Statuses[1].OK || res.Statuses[1].Attempts != 3 {
		t.Errorf("bad status: %+v", res.Statuses[1])
	}
	if got := f.count("bad"); got != 3 {
		t.Errorf("bad fetch calls: got %d, want 3", got)
	}
}

func TestRunRetriesEmptyAndNonDocumentPages(t *testing.T) {
	f := &fakeFetcher{respond: func(_ context.Context, host string, call int, _ FetchOptions) (string, error) {
		switch {
		case host == "empty" && call == 1:
			return "<html><body></body></html>", nil
		case host == "json" && call == 1:
			return `{"error":"blocked"}`, nil
		}
		return page("Acme X100"), nil
	}}
	o := NewOrchestrator(testRegistry("empty", "json"), f, testConfig(), utils.NewNopLogger())

	res := o.Run(context.Background(), FetchRequest{Query: "acme", Sites: []string{"empty", "json"}})

	if len(res.Listings) != 2 {
		t.Fatalf("listings: got %d, want 2", len(res.Listings))
	}
	for _, st := range res.Statuses {
		if !st.OK || st.Attempts != 2 {
			t.Errorf("%s: got %+v, want OK on attempt 2", st.Site, st)
		}
	}
}

func TestRunFallbackUsesLongerTimeout(t *testing.T) {
	cfg := testConfig()
	f := &fakeFetcher{respond: func(_ context.Context, host string, _ int, opts FetchOptions) (string, error) {
		if host == "first" && opts.Timeout == 2*cfg.TaskTimeout {
			return page("Acme X100"), nil
		}
		return page(), nil
	}}
	o := NewOrchestrator(testRegistry("first", "second"), f, cfg, utils.NewNopLogger())

	res := o.Run(context.Background(), FetchRequest{Query: "acme", Sites: []string{"first", "second"}})

	if !res.FallbackUsed {
		t.Fatal("fallback should run when every site yields nothing")
	}
	if len(res.Listings) != 1 || res.Listings[0].Site != "first" {
		t.Errorf("fallback listings: got %+v", res.Listings)
	}
	if !res.Statuses[0].OK {
		t.Errorf("first status after fallback: %+v", res.Statuses[0])
	}
	if got := f.count("second"); got != 3 {
		t.Errorf("second should not be retried by the fallback: got %d calls", got)
	}
}

func TestRunAllSitesFail(t *testing.T) {
	f := &fakeFetcher{respond: func(context.Context, string, int, FetchOptions) (string, error) {
		return "", ErrFetchFailure
	}}
	o := NewOrchestrator(testRegistry("a", "b"), f, testConfig(), utils.NewNopLogger())

	res := o.Run(context.Background(), FetchRequest{Query: "acme", Sites: []string{"a", "b"}})

	if len(res.Listings) != 0 {
		t.Errorf("listings: got %d, want 0", len(res.Listings))
	}
	for _, st := range res.Statuses {
		if st.OK || st.Error == "" {
			t.Errorf("%s should report an error: %+v", st.Site, st)
		}
	}
	if !strings.Contains(res.Statuses[0].Error, ErrFetchFailure.Error()) {
		t.Errorf("status error should carry the fetch failure: %q", res.Statuses[0].Error)
	}
}

func TestRunDeadlineDiscardsSlowSites(t *testing.T) {
	cfg := testConfig()
	cfg.Deadline = 50 * time.Millisecond
	cfg.MaxAttempts = 1
	f := &fakeFetcher{respond: func(ctx context.Context, host string, _ int, _ FetchOptions) (string, error) {
		if host == "slow" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return page("Acme X100"), nil
	}}
	o := NewOrchestrator(testRegistry("fast", "slow"), f, cfg, utils.NewNopLogger())

	start := time.Now()
	res := o.Run(context.Background(), FetchRequest{Query: "acme", Sites: []string{"fast", "slow"}})

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Run took %v, want close to the deadline", elapsed)
	}
	if len(res.Listings) != 1 || res.Listings[0].Title != "Acme X100" {
		t.Errorf("listings: got %+v", res.Listings)
	}
	if res.Statuses[1].OK {
		t.Errorf("slow site should not be reported OK: %+v", res.Statuses[1])
	}
}

func TestRunDropsDuplicateListings(t *testing.T) {
	f := &fakeFetcher{respond: func(context.Context, string, int, FetchOptions) (string, error) {
		return page("Acme X100", "Acme X100", "Acme Y200"), nil
	}}
	o := NewOrchestrator(testRegistry("shop"), f, testConfig(), utils.NewNopLogger())

	res := o.Run(context.Background(), FetchRequest{Query: "acme", Sites: []string{"shop"}})

	if len(res.Listings) != 2 {
		t.Errorf("listings: got %d, want 2 after dedupe", len(res.Listings))
	}
}

func TestRunRecoversFromPanickingExtractor(t *testing.T) {
	r := adapters.NewEmptyRegistry()
	r.Register(adapters.Adapter{
		Site:     "broken",
		BuildURL: func(string, *float64, *float64, int) string { return "https://broken/s" },
		Extract:  func(string, string) []models.Listing { panic("boom") },
	})
	f := &fakeFetcher{respond: func(context.Context, string, int, FetchOptions) (string, error) {
		return page("x"), nil
	}}
	o := NewOrchestrator(r, f, testConfig(), utils.NewNopLogger())

	res := o.Run(context.Background(), FetchRequest{Query: "acme", Sites: []string{"broken"}})

	if len(res.Listings) != 0 || res.Statuses[0].OK {
		t.Errorf("panicking extractor should count as a failed site: %+v", res.Statuses[0])
	}
}

func TestRunRecoversFromPanickingFetcher(t *testing.T) {
	var broken map[string]int
	f := FetcherFunc(func(_ context.Context, target string, _ FetchOptions) (string, error) {
		if strings.Contains(target, "//broken/") {
			broken[target]++
		}
		return page("Acme X100"), nil
	})
	o := NewOrchestrator(testRegistry("good", "broken"), f, testConfig(), utils.NewNopLogger())

	res := o.Run(context.Background(), FetchRequest{Query: "acme", Sites: []string{"good", "broken"}})

	if len(res.Listings) != 1 || res.Listings[0].Site != "good" {
		t.Errorf("listings: got %+v, want one from good", res.Listings)
	}
	st := res.Statuses[1]
	if st.OK || st.Attempts != 3 || !strings.Contains(st.Error, ErrFetchFailure.Error()) {
		t.Errorf("panicking fetcher should count as a failed fetch: %+v", st)
	}
}

func TestDrainOutcomesKeepsFinishedSites(t *testing.T) {
	ch := make(chan siteOutcome, 2)
	ch <- siteOutcome{idx: 1, listings: []models.Listing{{Title: "late"}}, status: models.SiteStatus{Site: "b", OK: true, Count: 1}}

	perSite := make([][]models.Listing, 2)
	statuses := []models.SiteStatus{{Site: "a", Error: "pending"}, {Site: "b", Error: "pending"}}
	drainOutcomes(ch, perSite, statuses)

	if len(perSite[1]) != 1 || !statuses[1].OK {
		t.Errorf("buffered outcome not recorded: %+v %+v", perSite[1], statuses[1])
	}
	if statuses[0].Error != "pending" {
		t.Errorf("unfinished site changed: %+v", statuses[0])
	}

	close(ch)
	drainOutcomes(ch, perSite, statuses)
}

func TestIsDocument(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"<!DOCTYPE html><html></html>", true},
		{"<HTML lang=en>", true},
		{`{"a":1}`, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsDocument(tt.in); got != tt.want {
			t.Errorf("IsDocument(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestHTTPFetcherProxyURL(t *testing.T) {
	f := NewHTTPFetcher("k123", "https://api.scraperapi.com/", utils.NewNopLogger())
	got := f.requestURL("https://www.amazon.de/s?k=tv", FetchOptions{GeoHint: "de", RenderJS: true})
	for _, want := range []string{"api_key=k123", "country_code=de", "render=true", "url=https%3A%2F%2Fwww.amazon.de%2Fs%3Fk%3Dtv"} {
		if !strings.Contains(got, want) {
			t.Errorf("proxy URL %q missing %q", got, want)
		}
	}
	if direct := NewHTTPFetcher("", "", utils.NewNopLogger()).requestURL("https://x/s", FetchOptions{}); direct != "https://x/s" {
		t.Errorf("direct URL: got %q", direct)
	}
}
