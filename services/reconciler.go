package services

import (
	"context"
	"sort"
	"strings"

	"powersearch/models"
	"powersearch/utils"
)

const (
	StrategyEmbedding = "embedding"
	StrategyFuzzy     = "fuzzy"

	embeddingThreshold = 0.85
	titleThreshold     = 0.8
)

// Reconciler clusters listings that describe the same product and merges
// each cluster into one ReconciledProduct.
type Reconciler struct {
	embedder Embedder
	logger   *utils.Logger
}

// NewReconciler creates a Reconciler. embedder may be nil, in which case
// only fuzzy matching is used.
func NewReconciler(embedder Embedder, logger *utils.Logger) *Reconciler {
	return &Reconciler{embedder: embedder, logger: logger}
}

// Reconcile partitions listings into clusters and merges them. The output
// depends only on the input set, not its order. It returns the strategy
// that produced the clusters.
func (r *Reconciler) Reconcile(ctx context.Context, listings []models.Listing) ([]models.ReconciledProduct, string) {
	if len(listings) == 0 {
		return []models.ReconciledProduct{}, ""
	}

	canonical := make([]models.Listing, len(listings))
	copy(canonical, listings)
	sort.SliceStable(canonical, func(i, j int) bool {
		if canonical[i].Site != canonical[j].Site {
			return canonical[i].Site < canonical[j].Site
		}
		return canonical[i].ID < canonical[j].ID
	})

	strategy := StrategyFuzzy
	var clusters [][]int
	if r.embedder != nil {
		if c, err := r.embeddingClusters(ctx, canonical); err != nil {
			r.logger.Warn("[reconcile] Embedding failed, falling back to fuzzy matching: %v", err)
		} else {
			clusters = c
			strategy = StrategyEmbedding
		}
	}
	if clusters == nil {
		clusters = fuzzyClusters(canonical)
	}

	products := make([]models.ReconciledProduct, 0, len(clusters))
	for _, idx := range clusters {
		members := make([]models.Listing, len(idx))
		for i, k := range idx {
			members[i] = canonical[k]
		}
		products = append(products, Merge(members))
	}

	r.logger.Info("[reconcile] %d listings → %d products (%s)", len(listings), len(products), strategy)
	return products, strategy
}

func (r *Reconciler) embeddingClusters(ctx context.Context, listings []models.Listing) ([][]int, error) {
	titles := make([]string, len(listings))
	for i, l := range listings {
		titles[i] = l.Title
	}
	vecs, err := r.embedder.Embed(ctx, titles)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(listings) {
		return nil, errEmbeddingCount
	}

	used := make([]bool, len(listings))
	var clusters [][]int
	for i := range listings {
		if used[i] {
			continue
		}
		used[i] = true
		group := []int{i}
		for j := i + 1; j < len(listings); j++ {
			if !used[j] && Cosine(vecs[i], vecs[j]) > embeddingThreshold {
				used[j] = true
				group = append(group, j)
			}
		}
		clusters = append(clusters, group)
	}
	return clusters, nil
}

// fuzzyClusters groups by shared brand and model first, then by title
// similarity among whatever is left.
func fuzzyClusters(listings []models.Listing) [][]int {
	type entity struct{ brand, model, title string }
	info := make([]entity, len(listings))
	for i := range listings {
		info[i] = entity{
			brand: ExtractBrand(&listings[i]),
			model: ExtractModel(listings[i].Title),
			title: strings.ToLower(listings[i].Title),
		}
	}

	used := make([]bool, len(listings))
	var clusters [][]int

	for i := range info {
		if used[i] || info[i].brand == "" || info[i].model == "" {
			continue
		}
		group := []int{i}
		for j := i + 1; j < len(info); j++ {
			if !used[j] && info[j].brand == info[i].brand && info[j].model == info[i].model {
				group = append(group, j)
			}
		}
		if len(group) > 1 {
			for _, k := range group {
				used[k] = true
			}
			clusters = append(clusters, group)
		}
	}

	for i := range info {
		if used[i] {
			continue
		}
		used[i] = true
		group := []int{i}
		for j := i + 1; j < len(info); j++ {
			if !used[j] && TitleRatio(info[i].title, info[j].title) > titleThreshold {
				used[j] = true
				group = append(group, j)
			}
		}
		clusters = append(clusters, group)
	}
	return clusters
}

// Merge folds a cluster into one product. members[0] is the cluster seed.
func Merge(members []models.Listing) models.ReconciledProduct {
	seed := members[0]
	if len(members) == 1 {
		return models.ReconciledProduct{
			Listing:     seed,
			AllSources:  []string{seed.Site},
			SourceCount: 1,
		}
	}

	best := 0
	for i, m := range members {
		if m.Price == nil {
			continue
		}
		if members[best].Price == nil || *m.Price < *members[best].Price {
			best = i
		}
	}

	merged := seed
	cheapest := members[best]
	merged.Price = cheapest.Price
	merged.Site = cheapest.Site
	merged.URL = cheapest.URL
	merged.ID = cheapest.ID
	merged.OriginalPrice = cheapest.OriginalPrice
	merged.DiscountPercentage = cheapest.DiscountPercentage

	siteSet := make(map[string]struct{})
	var similar []models.SimilarListing
	var lo, hi *float64
	for i, m := range members {
		if len(m.Image) > len(merged.Image) {
			merged.Image = m.Image
		}
		if m.Rating != nil && (merged.Rating == nil || *m.Rating > *merged.Rating) {
			merged.Rating = m.Rating
		}
		if m.ReviewCount != nil && (merged.ReviewCount == nil || *m.ReviewCount > *merged.ReviewCount) {
			merged.ReviewCount = m.ReviewCount
		}
		if m.FreeShipping {
			merged.FreeShipping = true
		}
		siteSet[m.Site] = struct{}{}
		if m.Price != nil {
			if lo == nil || *m.Price < *lo {
				lo = m.Price
			}
			if hi == nil || *m.Price > *hi {
				hi = m.Price
			}
		}
		if i != best {
			similar = append(similar, models.SimilarListing{
				Site:         m.Site,
				Price:        m.Price,
				URL:          m.URL,
				FreeShipping: m.FreeShipping,
			})
		}
	}

	sources := make([]string, 0, len(siteSet))
	for s := range siteSet {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	var diff float64
	if lo != nil && hi != nil {
		diff = round2(*hi - *lo)
	}

	return models.ReconciledProduct{
		Listing:         merged,
		AllSources:      sources,
		SourceCount:     len(sources),
		SimilarListings: similar,
		PriceDifference: diff,
	}
}
