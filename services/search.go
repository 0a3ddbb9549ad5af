package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"powersearch/models"
	"powersearch/scraper"
	"powersearch/scraper/adapters"
	"powersearch/storage"
	"powersearch/utils"
)

// SearchDeps wires the pipeline stages into a SearchService.
type SearchDeps struct {
	Rewriter     *QueryRewriter
	Orchestrator *scraper.Orchestrator
	Validator    *Validator
	Reconciler   *Reconciler
	Scorer       *Scorer
	// SearchLog is optional.
	SearchLog storage.SearchLogWriter
	// SitesFor defaults to adapters.SitesForRegion.
	SitesFor func(region string) []string
	Logger   *utils.Logger
}

// SearchService runs the full search pipeline for one query at a time.
// It is safe for concurrent use; nothing is shared between requests.
type SearchService struct {
	deps SearchDeps
}

// NewSearchService creates a SearchService.
func NewSearchService(deps SearchDeps) *SearchService {
	if deps.SitesFor == nil {
		deps.SitesFor = adapters.SitesForRegion
	}
	if deps.Scorer == nil {
		deps.Scorer = NewScorer()
	}
	if deps.Logger == nil {
		deps.Logger = utils.NewNopLogger()
	}
	if deps.Validator == nil {
		deps.Validator = NewValidator(deps.Logger, ValidatorOptions{})
	}
	if deps.Reconciler == nil {
		deps.Reconciler = NewReconciler(nil, deps.Logger)
	}
	return &SearchService{deps: deps}
}

// Search runs the pipeline. The only error it returns is ErrEmptyQuery;
// every other failure is reported in the result's Error field.
func (s *SearchService) Search(ctx context.Context, q models.SearchQuery) (result *models.SearchResult, err error) {
	q = q.Normalize()
	if q.Text == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	result = &models.SearchResult{
		RequestID: uuid.New().String(),
		Products:  []models.ScoredProduct{},
		Page:      q.Page,
		Limit:     q.Limit,
		Query:     q.Text,
	}
	logger := s.deps.Logger.With("request_id", result.RequestID)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("[search] Recovered from panic: %v", rec)
			result.Products = []models.ScoredProduct{}
			result.TotalResults = 0
			result.Facets = nil
			result.Error = fmt.Sprintf("search failed: %v", rec)
			err = nil
		}
		result.SearchTime = round2(time.Since(start).Seconds())
		s.record(ctx, q, result, logger)
	}()

	s.run(ctx, q, result, logger)
	return result, nil
}

func (s *SearchService) run(ctx context.Context, q models.SearchQuery, result *models.SearchResult, logger *utils.Logger) {
	prepared := s.deps.Rewriter.Prepare(ctx, q.Text)
	result.Rewritten = prepared.Rewritten

	sites := s.deps.SitesFor(q.Region)
	logger.Info("[search] %q in %s across %v", prepared.Rewritten, q.Region, sites)

	fetched := s.deps.Orchestrator.Run(ctx, scraper.FetchRequest{
		Query:    prepared.Rewritten,
		Sites:    sites,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
	})
	diag := &result.Diagnostics
	diag.SitesQueried = len(sites)
	diag.Sites = fetched.Statuses
	diag.FallbackUsed = fetched.FallbackUsed
	diag.ListingsFetched = len(fetched.Listings)
	for _, st := range fetched.Statuses {
		if st.OK {
			diag.SitesSucceeded++
		}
	}
	result.RawListings = fetched.Listings

	valid, dropped := s.deps.Validator.Validate(ctx, fetched.Listings)
	diag.ValidationDropped = dropped
	if len(valid) == 0 {
		logger.Warn("[search] No valid listings for %q", q.Text)
		result.Error = ErrNoResults.Error()
		return
	}

	products, strategy := s.deps.Reconciler.Reconcile(ctx, valid)
	diag.Clusters = len(products)
	diag.Strategy = strategy

	scored := s.deps.Scorer.Score(products, prepared.Rewritten, prepared.Hints)
	filtered := ApplyFilters(FilterByPrice(scored, q.MinPrice, q.MaxPrice), q.Filters)
	if len(filtered) == 0 {
		logger.Warn("[search] All %d products filtered out for %q", len(scored), q.Text)
		result.Error = ErrNoResults.Error()
		return
	}

	sorted := SortProducts(filtered, q.Sort)
	result.Facets = BuildFacets(filtered)
	result.TotalResults = len(sorted)
	result.Products = Paginate(sorted, q.Page, q.Limit)
	logger.Info("[search] %d products, returning page %d (%d items)", result.TotalResults, q.Page, len(result.Products))
}

func (s *SearchService) record(ctx context.Context, q models.SearchQuery, r *models.SearchResult, logger *utils.Logger) {
	if s.deps.SearchLog == nil {
		return
	}
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	entry := storage.SearchLogEntry{
		RequestID:    r.RequestID,
		Query:        q.Text,
		Rewritten:    r.Rewritten,
		Region:       q.Region,
		Sort:         string(q.Sort),
		Page:         q.Page,
		Limit:        q.Limit,
		TotalResults: r.TotalResults,
		SitesOK:      r.Diagnostics.SitesSucceeded,
		SitesQueried: r.Diagnostics.SitesQueried,
		ElapsedMs:    int64(r.SearchTime * 1000),
		Error:        r.Error,
		CreatedAt:    time.Now(),
	}
	if err := s.deps.SearchLog.Record(logCtx, entry); err != nil {
		logger.Warn("[search] Failed to record search log: %v", err)
	}
}
