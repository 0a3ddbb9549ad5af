package scraper

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"powersearch/models"
	"powersearch/scraper/adapters"
	"powersearch/utils"
)

// storePage is the storefront results page requested from every site.
// Result pagination happens after reconciliation.
const storePage = 1

// OrchestratorConfig tunes the fan-out.
type OrchestratorConfig struct {
	MaxWorkers   int
	RateLimitMs  int
	MaxAttempts  int
	BaseDelay    time.Duration
	TaskTimeout  time.Duration
	Deadline     time.Duration
	FetchRetries int
	RenderJS     bool
	// Sleep is used between retry attempts. Defaults to utils.SleepContext.
	Sleep utils.Sleeper
}

// FetchRequest describes one search fan-out.
type FetchRequest struct {
	Query    string
	Sites    []string
	MinPrice *float64
	MaxPrice *float64
}

// FetchResult is the combined output of all site tasks that finished in time.
type FetchResult struct {
	Listings     []models.Listing
	Statuses     []models.SiteStatus
	FallbackUsed bool
}

// Orchestrator runs one fetch+extract task per site with bounded
// concurrency, per-site retries and an aggregate deadline.
type Orchestrator struct {
	registry *adapters.Registry
	fetcher  Fetcher
	cfg      OrchestratorConfig
	logger   *utils.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(registry *adapters.Registry, fetcher Fetcher, cfg OrchestratorConfig, logger *utils.Logger) *Orchestrator {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Orchestrator{registry: registry, fetcher: fetcher, cfg: cfg, logger: logger}
}

type siteOutcome struct {
	idx      int
	listings []models.Listing
	status   models.SiteStatus
}

// Run fans out over req.Sites. It never fails as a whole: sites that error
// or miss the deadline contribute no listings and are reported in Statuses.
func (o *Orchestrator) Run(ctx context.Context, req FetchRequest) FetchResult {
	result := FetchResult{Statuses: make([]models.SiteStatus, len(req.Sites))}
	if len(req.Sites) == 0 {
		return result
	}

	workers := o.cfg.MaxWorkers
	if len(req.Sites) < workers {
		workers = len(req.Sites)
	}
	o.logger.Info("[fetch] Searching %d sites for %q with %d workers", len(req.Sites), req.Query, workers)

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if o.cfg.Deadline > 0 {
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.Deadline)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	seen := utils.NewURLSet()
	pool := utils.NewWorkerPool(workers, o.cfg.RateLimitMs)
	outcomes := make(chan siteOutcome, len(req.Sites))

	for i, site := range req.Sites {
		result.Statuses[i] = models.SiteStatus{Site: site, Error: "not completed before deadline"}
	}

	go func() {
		for i, site := range req.Sites {
			i, site := i, site
			pool.Submit(runCtx, func(taskCtx context.Context) {
				listings, status := o.searchSite(taskCtx, site, req, o.cfg.TaskTimeout, seen)
				outcomes <- siteOutcome{idx: i, listings: listings, status: status}
			})
		}
		pool.Wait()
		close(outcomes)
	}()

	perSite := make([][]models.Listing, len(req.Sites))
collect:
	for {
		select {
		case out, ok := <-outcomes:
			if !ok {
				break collect
			}
			perSite[out.idx] = out.listings
			result.Statuses[out.idx] = out.status
		case <-runCtx.Done():
			drainOutcomes(outcomes, perSite, result.Statuses)
			o.logger.Warn("[fetch] Aggregate deadline reached, discarding unfinished sites")
			break collect
		}
	}

	for _, l := range perSite {
		result.Listings = append(result.Listings, l...)
	}

	if len(result.Listings) == 0 && ctx.Err() == nil {
		site := req.Sites[0]
		o.logger.Warn("[fetch] No listings from any site, retrying %s with extended timeout", site)
		listings, status := o.searchSite(ctx, site, req, 2*o.cfg.TaskTimeout, seen)
		result.Statuses[0] = status
		result.Listings = listings
		result.FallbackUsed = true
	}

	o.logger.Info("[fetch] Collected %d listings", len(result.Listings))
	return result
}

// drainOutcomes records every outcome already buffered in ch without
// blocking, so sites that finished just as the deadline fired still count.
func drainOutcomes(ch <-chan siteOutcome, perSite [][]models.Listing, statuses []models.SiteStatus) {
	for {
		select {
		case out, ok := <-ch:
			if !ok {
				return
			}
			perSite[out.idx] = out.listings
			statuses[out.idx] = out.status
		default:
			return
		}
	}
}

// searchSite runs the retried fetch+extract task for a single site.
func (o *Orchestrator) searchSite(ctx context.Context, site string, req FetchRequest, timeout time.Duration, seen *utils.URLSet) ([]models.Listing, models.SiteStatus) {
	adapter, registered := o.registry.Get(site)
	if !registered {
		o.logger.Warn("[fetch] %s: %v, using generic extraction", site, ErrAdapterMissing)
	}
	searchURL := adapter.BuildURL(req.Query, req.MinPrice, req.MaxPrice, storePage)
	status := models.SiteStatus{Site: site}

	retry := &utils.RetryConfig{
		MaxAttempts: o.cfg.MaxAttempts,
		BaseDelay:   o.cfg.BaseDelay,
		Logger:      o.logger,
		Sleep:       o.cfg.Sleep,
	}

	var extracted []models.Listing
	err := retry.Do(ctx, "search "+site, func(attempt int) error {
		status.Attempts = attempt
		content, err := safeFetch(ctx, o.fetcher, searchURL, FetchOptions{
			GeoHint:    adapter.GeoHint,
			RenderJS:   o.cfg.RenderJS,
			Timeout:    timeout,
			RetryCount: o.cfg.FetchRetries,
		})
		if err != nil {
			return err
		}
		if content == "" || !IsDocument(content) {
			return ErrNonDocument
		}
		extracted = safeExtract(adapter.Extract, content, searchURL)
		if len(extracted) == 0 {
			return eris.Wrapf(ErrNoListings, "%s", site)
		}
		return nil
	})
	if err != nil {
		o.logger.Error("[fetch] %s failed: %v", site, err)
		status.Error = err.Error()
		return nil, status
	}

	listings := make([]models.Listing, 0, len(extracted))
	for _, l := range extracted {
		l.Site = site
		if l.URL == "" {
			l.URL = searchURL
		}
		if l.ID == "" {
			l.ID = adapters.ListingID(l.Title, l.URL)
		}
		if !seen.Add(site + "|" + l.URL + "|" + l.Title) {
			continue
		}
		listings = append(listings, l)
	}

	status.OK = true
	status.Count = len(listings)
	o.logger.Info("[fetch] %s returned %d listings (attempt %d)", site, len(listings), status.Attempts)
	return listings, status
}

func safeExtract(extract adapters.Extractor, content, baseURL string) (listings []models.Listing) {
	defer func() {
		if recover() != nil {
			listings = nil
		}
	}()
	return extract(content, baseURL)
}

func safeFetch(ctx context.Context, fetcher Fetcher, target string, opts FetchOptions) (content string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			content = ""
			err = eris.Wrapf(ErrFetchFailure, "fetcher panicked: %v", rec)
		}
	}()
	return fetcher.Fetch(ctx, target, opts)
}
