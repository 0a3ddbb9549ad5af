package services

import (
	"sort"
	"strings"

	"powersearch/models"
)

// FilterByPrice keeps products within the inclusive bounds. When either
// bound is set, products without a price are excluded.
func FilterByPrice(products []models.ScoredProduct, min, max *float64) []models.ScoredProduct {
	if min == nil && max == nil {
		return products
	}
	out := make([]models.ScoredProduct, 0, len(products))
	for _, p := range products {
		if p.Price == nil {
			continue
		}
		if min != nil && *p.Price < *min {
			continue
		}
		if max != nil && *p.Price > *max {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ApplyFilters narrows products by brand, category, source, rating,
// shipping and deal score. Empty criteria match everything.
func ApplyFilters(products []models.ScoredProduct, f models.Filters) []models.ScoredProduct {
	brands := lowerSet(f.Brands)
	categories := lowerSet(f.Categories)
	sources := lowerSet(f.Sources)

	out := make([]models.ScoredProduct, 0, len(products))
	for _, p := range products {
		if len(brands) > 0 && !brands[strings.ToLower(p.Brand)] {
			continue
		}
		if len(categories) > 0 && !categories[strings.ToLower(p.Category)] {
			continue
		}
		if len(sources) > 0 && !anyIn(sources, p.AllSources) {
			continue
		}
		if f.MinRating != nil && models.FloatOr(p.Rating, 0) < *f.MinRating {
			continue
		}
		if f.FreeShipping && !p.FreeShipping {
			continue
		}
		if f.MinDealScore != nil && p.DealScore < *f.MinDealScore {
			continue
		}
		out = append(out, p)
	}
	return out
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = true
		}
	}
	return set
}

func anyIn(set map[string]bool, values []string) bool {
	for _, v := range values {
		if set[strings.ToLower(v)] {
			return true
		}
	}
	return false
}

// SortProducts returns a stably sorted copy. Unknown modes sort by relevance.
func SortProducts(products []models.ScoredProduct, mode models.SortMode) []models.ScoredProduct {
	out := make([]models.ScoredProduct, len(products))
	copy(out, products)

	var less func(a, b *models.ScoredProduct) bool
	switch mode {
	case models.SortPriceAsc:
		less = func(a, b *models.ScoredProduct) bool {
			if a.Price == nil || b.Price == nil {
				return a.Price != nil && b.Price == nil
			}
			return *a.Price < *b.Price
		}
	case models.SortPriceDesc:
		less = func(a, b *models.ScoredProduct) bool {
			if a.Price == nil || b.Price == nil {
				return a.Price != nil && b.Price == nil
			}
			return *a.Price > *b.Price
		}
	case models.SortRating:
		less = func(a, b *models.ScoredProduct) bool {
			ra, rb := models.FloatOr(a.Rating, 0), models.FloatOr(b.Rating, 0)
			if ra != rb {
				return ra > rb
			}
			return models.IntOr(a.ReviewCount, 0) > models.IntOr(b.ReviewCount, 0)
		}
	case models.SortDiscount:
		less = func(a, b *models.ScoredProduct) bool {
			return models.FloatOr(a.DiscountPercentage, 0) > models.FloatOr(b.DiscountPercentage, 0)
		}
	default:
		less = func(a, b *models.ScoredProduct) bool {
			return a.RelevanceScore > b.RelevanceScore
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

type bucket struct {
	name  string
	match func(float64) bool
}

var priceBuckets = []bucket{
	{"under-50", func(p float64) bool { return p < 50 }},
	{"50-100", func(p float64) bool { return p >= 50 && p < 100 }},
	{"100-200", func(p float64) bool { return p >= 100 && p < 200 }},
	{"200-500", func(p float64) bool { return p >= 200 && p < 500 }},
	{"500-1000", func(p float64) bool { return p >= 500 && p < 1000 }},
	{"over-1000", func(p float64) bool { return p >= 1000 }},
}

var ratingBuckets = []bucket{
	{"5 star", func(r float64) bool { return r >= 4.8 }},
	{"4 star", func(r float64) bool { return r >= 4 && r < 4.8 }},
	{"3 star", func(r float64) bool { return r >= 3 && r < 4 }},
	{"under 3", func(r float64) bool { return r > 0 && r < 3 }},
	{"unrated", func(r float64) bool { return r == 0 }},
}

// BuildFacets counts products by brand, category, price range, source and
// rating. Empty buckets are omitted and each list is ordered by count.
func BuildFacets(products []models.ScoredProduct) *models.FacetSet {
	brands := map[string]int{}
	categories := map[string]int{}
	sources := map[string]int{}
	prices := make([]int, len(priceBuckets))
	ratings := make([]int, len(ratingBuckets))

	for _, p := range products {
		if p.Brand != "" {
			brands[p.Brand]++
		}
		if p.Category != "" {
			categories[p.Category]++
		}
		if p.Site != "" {
			sources[p.Site]++
		}
		if p.Price != nil {
			for i, b := range priceBuckets {
				if b.match(*p.Price) {
					prices[i]++
					break
				}
			}
		}
		r := models.FloatOr(p.Rating, 0)
		for i, b := range ratingBuckets {
			if b.match(r) {
				ratings[i]++
				break
			}
		}
	}

	return &models.FacetSet{
		Brands:      namedBuckets(brands),
		Categories:  namedBuckets(categories),
		PriceRanges: fixedBuckets(priceBuckets, prices),
		Sources:     namedBuckets(sources),
		Ratings:     fixedBuckets(ratingBuckets, ratings),
	}
}

func namedBuckets(counts map[string]int) []models.FacetBucket {
	out := make([]models.FacetBucket, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.FacetBucket{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func fixedBuckets(defs []bucket, counts []int) []models.FacetBucket {
	out := make([]models.FacetBucket, 0, len(defs))
	for i, d := range defs {
		if counts[i] > 0 {
			out = append(out, models.FacetBucket{Name: d.name, Count: counts[i]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Paginate returns the 1-based page of size limit. Pages past the end are empty.
func Paginate(products []models.ScoredProduct, page, limit int) []models.ScoredProduct {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = models.DefaultLimit
	}
	pages := (len(products) + limit - 1) / limit
	if page > pages {
		return []models.ScoredProduct{}
	}
	offset := (page - 1) * limit
	end := offset + limit
	if end > len(products) {
		end = len(products)
	}
	return products[offset:end]
}
